package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// SessionStore owns the current Session and its persisted snapshot slot.
// The orchestrator is its only writer.
type SessionStore struct {
	mu        sync.Mutex
	store     SnapshotStore
	auth      Authenticator
	validator PrincipalValidator
	slot      string
	logger    Logger
	now       func() time.Time

	session          Session
	lastKnownBalance uint64
}

type SessionStoreConfig struct {
	Store         SnapshotStore
	Authenticator Authenticator
	Validator     PrincipalValidator
	Slot          string
	Logger        Logger
	Now           func() time.Time
}

func NewSessionStore(cfg SessionStoreConfig) (*SessionStore, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("core: snapshot store is required")
	}
	slot := strings.TrimSpace(cfg.Slot)
	if slot == "" {
		slot = DefaultSnapshotSlot
	}
	validator := cfg.Validator
	if validator == nil {
		validator = SyntaxPrincipalValidator{}
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &SessionStore{
		store:     cfg.Store,
		auth:      cfg.Authenticator,
		validator: validator,
		slot:      slot,
		logger:    cfg.Logger,
		now:       now,
	}, nil
}

// Restore loads the persisted principal and confirms it against the identity
// collaborator. Anything short of a confirmed match yields an inactive session
// and an erased slot.
func (s *SessionStore) Restore(ctx context.Context) (Session, error) {
	snapshot, ok, err := s.store.Load(ctx, s.slot)
	if err != nil {
		s.reset()
		return InactiveSession(), err
	}
	if !ok || strings.TrimSpace(snapshot.PrincipalID) == "" {
		s.reset()
		return InactiveSession(), nil
	}

	if err := validatePrincipal(s.validator, snapshot.PrincipalID); err != nil {
		s.discard(ctx, "persisted principal is malformed")
		return InactiveSession(), nil
	}
	if s.auth == nil {
		s.discard(ctx, "no identity collaborator to confirm session")
		return InactiveSession(), nil
	}
	identity, active, err := s.auth.CurrentIdentity(ctx)
	if err != nil || !active || identity == nil {
		s.discard(ctx, "identity collaborator reports no active session")
		return InactiveSession(), nil
	}
	if identity.Principal() != snapshot.PrincipalID {
		s.discard(ctx, "identity collaborator reports a different principal")
		return InactiveSession(), nil
	}

	s.mu.Lock()
	s.session = ActiveSession(snapshot.PrincipalID)
	s.lastKnownBalance = snapshot.LastKnownBalance
	session := s.session
	s.mu.Unlock()
	return session, nil
}

func (s *SessionStore) Activate(ctx context.Context, principalID string) (Session, error) {
	if err := validatePrincipal(s.validator, principalID); err != nil {
		return InactiveSession(), err
	}

	var balance uint64
	if existing, ok, err := s.store.Load(ctx, s.slot); err == nil && ok && existing.PrincipalID == principalID {
		balance = existing.LastKnownBalance
	}

	if err := s.store.Save(ctx, s.slot, PersistedSnapshot{
		PrincipalID:      principalID,
		LastKnownBalance: balance,
		UpdatedAt:        s.now(),
	}); err != nil {
		return InactiveSession(), err
	}

	s.mu.Lock()
	s.session = ActiveSession(principalID)
	s.lastKnownBalance = balance
	session := s.session
	s.mu.Unlock()
	return session, nil
}

// RecordBalance overwrites the persisted balance for the active principal.
func (s *SessionStore) RecordBalance(ctx context.Context, balance uint64) error {
	s.mu.Lock()
	session := s.session
	if session.Active {
		s.lastKnownBalance = balance
	}
	s.mu.Unlock()

	if !session.Active {
		return ErrNotAuthenticated
	}
	return s.store.Save(ctx, s.slot, PersistedSnapshot{
		PrincipalID:      session.PrincipalID,
		LastKnownBalance: balance,
		UpdatedAt:        s.now(),
	})
}

// Clear always succeeds; a failing delete is only logged.
func (s *SessionStore) Clear(ctx context.Context) {
	s.reset()
	if err := s.store.Delete(ctx, s.slot); err != nil && s.logger != nil {
		s.logger.Error("session snapshot delete failed", "slot", s.slot, "error", err.Error())
	}
}

func (s *SessionStore) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *SessionStore) LastKnownBalance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastKnownBalance
}

func (s *SessionStore) Slot() string {
	return s.slot
}

func (s *SessionStore) reset() {
	s.mu.Lock()
	s.session = InactiveSession()
	s.lastKnownBalance = 0
	s.mu.Unlock()
}

func (s *SessionStore) discard(ctx context.Context, reason string) {
	if s.logger != nil {
		s.logger.Info("discarding persisted session", "slot", s.slot, "reason", reason)
	}
	s.Clear(ctx)
}
