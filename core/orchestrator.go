package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Orchestrator drives the wallet session state machine:
//
//	LoggedOut --Login--> Authenticating --ok--> LoggedIn(view, pending)
//	                                    \--fail--> LoggedOut
//	LoggedIn --Logout--> LoggedOut
//
// The pending tag is a single slot gate: while it is not PendingNone every
// other operation fails fast with ErrOperationInProgress. Ledger calls run
// outside the lock; their results are applied only if the session epoch has
// not moved since dispatch, so a logout discards whatever is still in flight.
type Orchestrator struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	auth            Authenticator
	ledger          Ledger
	sessions        *SessionStore
	notifier        NotificationSink
	validator       PrincipalValidator
	recheckEnqueuer JobEnqueuer
	now             func() time.Time

	mu       sync.Mutex
	state    State
	view     WalletView
	pending  PendingOperation
	stable   bool
	degraded bool
	epoch    uint64
	seqs     fieldSequences
}

func NewOrchestrator(cfg Config, opts ...Option) (*Orchestrator, error) {
	builder := defaultOrchestratorBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("wallet", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("wallet"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = MapError
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.snapshotStore == nil {
		builder.snapshotStore = NewMemorySnapshotStore()
	}
	if builder.notifier == nil {
		builder.notifier = NopNotificationSink{}
	}
	if builder.principalValidator == nil {
		builder.principalValidator = SyntaxPrincipalValidator{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.authenticator == nil {
		return nil, fmt.Errorf("core: authenticator is required")
	}
	if builder.ledger == nil {
		return nil, fmt.Errorf("core: ledger is required")
	}

	sessions, err := NewSessionStore(SessionStoreConfig{
		Store:         builder.snapshotStore,
		Authenticator: builder.authenticator,
		Validator:     builder.principalValidator,
		Slot:          finalConfig.SnapshotSlot,
		Logger:        logger,
		Now:           builder.now,
	})
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		auth:            builder.authenticator,
		ledger:          builder.ledger,
		sessions:        sessions,
		notifier:        builder.notifier,
		validator:       builder.principalValidator,
		recheckEnqueuer: builder.recheckEnqueuer,
		now:             builder.now,
		state:           StateLoggedOut,
	}, nil
}

func (o *Orchestrator) Config() Config {
	if o == nil {
		return Config{}
	}
	return o.config
}

func (o *Orchestrator) Sessions() *SessionStore {
	if o == nil {
		return nil
	}
	return o.sessions
}

func (o *Orchestrator) LoggerProvider() LoggerProvider {
	if o == nil {
		return nil
	}
	return o.loggerProvider
}

func (o *Orchestrator) Ledger() Ledger {
	if o == nil {
		return nil
	}
	return o.ledger
}

func (o *Orchestrator) Snapshot() WalletSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return WalletSnapshot{
		State:    o.state,
		Session:  o.sessions.Current(),
		View:     o.view,
		Pending:  o.pending,
		Stable:   o.stable,
		Degraded: o.degraded,
	}
}

// Start restores a persisted session, if the identity collaborator still
// vouches for it, and runs the fetch sequence for it. The identity call runs
// outside the lock; a logout meanwhile wins over the restored session.
func (o *Orchestrator) Start(ctx context.Context) (err error) {
	startedAt := o.now()
	fields := map[string]any{}
	defer func() { o.observeOperation(ctx, startedAt, "restore", err, fields) }()

	o.mu.Lock()
	if o.state != StateLoggedOut {
		o.mu.Unlock()
		return nil
	}
	o.state = StateAuthenticating
	o.epoch++
	epoch := o.epoch
	o.mu.Unlock()

	session, err := o.sessions.Restore(ctx)

	o.mu.Lock()
	if o.epoch != epoch {
		if o.state != StateLoggedIn {
			o.sessions.reset()
		}
		o.mu.Unlock()
		o.logger.Info("restored session discarded after session change", "principal_id", session.PrincipalID)
		return nil
	}
	if err != nil || !session.Active {
		o.state = StateLoggedOut
		o.view = WalletView{}
		o.mu.Unlock()
		if err != nil {
			o.notifyError(ctx, "restore", "Error restoring session", err)
		}
		return err
	}
	o.enterLoggedInLocked()
	o.mu.Unlock()

	fields["principal_id"] = session.PrincipalID
	fields["degraded"] = o.fetchSequence(ctx, epoch, session.PrincipalID) != nil
	return nil
}

// Login returns once the identity collaborator has completed and the fetch
// sequence has reached a stable (possibly degraded) state.
func (o *Orchestrator) Login(ctx context.Context) (err error) {
	startedAt := o.now()
	fields := map[string]any{"provider_url": o.config.ProviderURL}
	defer func() { o.observeOperation(ctx, startedAt, "login", err, fields) }()

	o.mu.Lock()
	switch o.state {
	case StateAuthenticating:
		o.mu.Unlock()
		o.notifyError(ctx, "login", "Another operation is in progress", ErrOperationInProgress)
		return ErrOperationInProgress
	case StateLoggedIn:
		o.mu.Unlock()
		return nil
	}
	o.state = StateAuthenticating
	o.epoch++
	epoch := o.epoch
	o.mu.Unlock()

	identity, authErr := o.auth.Authenticate(ctx, o.config.ProviderURL)
	if authErr == nil && identity == nil {
		authErr = fmt.Errorf("identity provider returned no identity")
	}
	if authErr != nil {
		err = fmt.Errorf("%w: %w", ErrAuthenticationFailed, authErr)
		o.mu.Lock()
		if o.epoch == epoch {
			o.state = StateLoggedOut
		}
		o.mu.Unlock()
		o.notifyError(ctx, "login", "Error logging in", err)
		return err
	}

	principalID := identity.Principal()
	fields["principal_id"] = principalID

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		o.logger.Info("login result discarded after session change", "principal_id", principalID)
		return ErrNotAuthenticated
	}
	if _, err = o.sessions.Activate(ctx, principalID); err != nil {
		o.state = StateLoggedOut
		o.mu.Unlock()
		o.notifyError(ctx, "login", "Error logging in", err)
		return err
	}
	o.enterLoggedInLocked()
	o.mu.Unlock()

	fields["degraded"] = o.fetchSequence(ctx, epoch, principalID) != nil
	return nil
}

// Logout always leaves the orchestrator logged out with an empty view, even
// when the identity collaborator fails to end its session.
func (o *Orchestrator) Logout(ctx context.Context) (err error) {
	startedAt := o.now()
	fields := map[string]any{}
	defer func() { o.observeOperation(ctx, startedAt, "logout", err, fields) }()

	o.mu.Lock()
	fields["principal_id"] = o.sessions.Current().PrincipalID
	fields["discarded_pending"] = o.pending.String()
	o.epoch++
	o.state = StateLoggedOut
	o.view = WalletView{}
	o.pending = PendingNone
	o.stable = false
	o.degraded = false
	o.sessions.Clear(ctx)
	o.mu.Unlock()

	if endErr := o.auth.EndSession(ctx); endErr != nil {
		err = endErr
		o.notifyError(ctx, "logout", "Error logging out", err)
		return err
	}
	return nil
}

// enterLoggedInLocked seeds the view from the last known balance; the fetch
// sequence replaces it as results arrive.
func (o *Orchestrator) enterLoggedInLocked() {
	o.state = StateLoggedIn
	o.view = WalletView{Balance: o.sessions.LastKnownBalance()}
	o.pending = PendingCheckingBalance
	o.stable = false
	o.degraded = false
}

// acquireLocked checks the gate for a new operation. Callers hold o.mu.
func (o *Orchestrator) acquireLocked(op PendingOperation) (uint64, Session, error) {
	if o.state != StateLoggedIn {
		return 0, Session{}, ErrNotAuthenticated
	}
	if o.pending != PendingNone {
		return 0, Session{}, ErrOperationInProgress
	}
	o.pending = op
	return o.epoch, o.sessions.Current(), nil
}

func (o *Orchestrator) release(epoch uint64, op PendingOperation) {
	o.mu.Lock()
	if o.epoch == epoch && o.pending == op {
		o.pending = PendingNone
	}
	o.mu.Unlock()
}

// currentLocked reports whether results dispatched under epoch may still be
// applied. Callers hold o.mu.
func (o *Orchestrator) currentLocked(epoch uint64) bool {
	return o.epoch == epoch && o.state == StateLoggedIn
}

func (o *Orchestrator) gateError(ctx context.Context, operation string, err error) error {
	switch {
	case errors.Is(err, ErrOperationInProgress):
		o.notifyError(ctx, operation, "Another operation is in progress", err)
	case errors.Is(err, ErrNotAuthenticated):
		o.notifyError(ctx, operation, "Please log in first", err)
	case errors.Is(err, ErrMintUnavailable):
		o.notifyError(ctx, operation, "Minting is on cooldown", err)
	}
	return err
}

func (o *Orchestrator) notify(ctx context.Context, operation string, severity Severity, message string) {
	o.notifier.Notify(ctx, Notification{
		Message:   message,
		Severity:  severity,
		Operation: operation,
		At:        o.now(),
	})
}

func (o *Orchestrator) notifyError(ctx context.Context, operation string, message string, err error) {
	code := ""
	if mapped := o.errorMapper(err); mapped != nil {
		code = mapped.TextCode
	}
	o.notifier.Notify(ctx, Notification{
		Message:   message,
		Severity:  SeverityError,
		Operation: operation,
		Code:      code,
		At:        o.now(),
	})
}
