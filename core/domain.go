package core

import (
	"strings"
	"time"
)

type Identity interface {
	Principal() string
}

// PrincipalIdentity is the minimal Identity implementation used when only the
// textual principal is known (restored sessions, static authenticators).
type PrincipalIdentity string

func (p PrincipalIdentity) Principal() string {
	return strings.TrimSpace(string(p))
}

type Session struct {
	PrincipalID string
	Active      bool
}

func InactiveSession() Session {
	return Session{}
}

func ActiveSession(principalID string) Session {
	principalID = strings.TrimSpace(principalID)
	return Session{PrincipalID: principalID, Active: principalID != ""}
}

type WalletView struct {
	Balance     uint64
	CanMint     bool
	TotalSupply uint64
}

func (v WalletView) IsZero() bool {
	return v == WalletView{}
}

type TransferRequest struct {
	Recipient string
	Amount    uint64
}

type PendingOperation int

const (
	PendingNone PendingOperation = iota
	PendingCheckingBalance
	PendingMinting
	PendingTransferring
)

func (p PendingOperation) String() string {
	switch p {
	case PendingNone:
		return "none"
	case PendingCheckingBalance:
		return "checking_balance"
	case PendingMinting:
		return "minting"
	case PendingTransferring:
		return "transferring"
	default:
		return "unknown"
	}
}

type State int

const (
	StateLoggedOut State = iota
	StateAuthenticating
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateAuthenticating:
		return "authenticating"
	case StateLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// WalletSnapshot is a read-only copy of the orchestrator state. Stable is
// false while the post-login fetch sequence is still running; Degraded marks
// a fetch sequence that finished with missing or timed out reads.
type WalletSnapshot struct {
	State    State
	Session  Session
	View     WalletView
	Pending  PendingOperation
	Stable   bool
	Degraded bool
}

type PersistedSnapshot struct {
	PrincipalID      string
	LastKnownBalance uint64
	UpdatedAt        time.Time
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

type Notification struct {
	Message   string
	Severity  Severity
	Operation string
	Code      string
	At        time.Time
}
