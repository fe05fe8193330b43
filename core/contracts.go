package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Authenticator is the identity collaborator. Authenticate suspends until the
// provider flow completes; CurrentIdentity reports the identity of a session
// that survived a restart, if any.
type Authenticator interface {
	Authenticate(ctx context.Context, providerURL string) (Identity, error)
	CurrentIdentity(ctx context.Context) (Identity, bool, error)
	EndSession(ctx context.Context) error
}

// Ledger is the remote ledger capability set. Implementations perform exactly
// one remote call per method and never retry or cache.
type Ledger interface {
	BalanceOf(ctx context.Context, principalID string) (uint64, error)
	CanMint(ctx context.Context, principalID string) (bool, error)
	Mint(ctx context.Context) (uint64, error)
	Transfer(ctx context.Context, recipient string, amount uint64) error
	TotalSupply(ctx context.Context) (uint64, error)
}

// SnapshotStore persists the minimal session snapshot under a fixed slot.
// Load returns ok=false when the slot is empty.
type SnapshotStore interface {
	Load(ctx context.Context, slot string) (PersistedSnapshot, bool, error)
	Save(ctx context.Context, slot string, snapshot PersistedSnapshot) error
	Delete(ctx context.Context, slot string) error
}

// NotificationSink receives user facing events. Notify must not block.
type NotificationSink interface {
	Notify(ctx context.Context, notification Notification)
}

type PrincipalValidator interface {
	ValidatePrincipal(principalID string) error
}

type PrincipalValidatorFunc func(principalID string) error

func (f PrincipalValidatorFunc) ValidatePrincipal(principalID string) error {
	return f(principalID)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type NopNotificationSink struct{}

func (NopNotificationSink) Notify(context.Context, Notification) {}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}
