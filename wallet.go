package wallet

import (
	"context"

	"github.com/goliatone/go-wallet/core"
	"github.com/goliatone/go-wallet/ledger"
	"github.com/goliatone/go-wallet/notify"
)

type Config = core.Config

type Option = core.Option

type Orchestrator = core.Orchestrator

type Session = core.Session
type WalletView = core.WalletView
type WalletSnapshot = core.WalletSnapshot
type PersistedSnapshot = core.PersistedSnapshot
type TransferRequest = core.TransferRequest
type PendingOperation = core.PendingOperation
type State = core.State
type Notification = core.Notification
type Severity = core.Severity

type Authenticator = core.Authenticator
type Ledger = core.Ledger
type SnapshotStore = core.SnapshotStore
type NotificationSink = core.NotificationSink
type PrincipalValidator = core.PrincipalValidator
type MetricsRecorder = core.MetricsRecorder

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorMapper        = core.WithErrorMapper
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithAuthenticator      = core.WithAuthenticator
	WithLedger             = core.WithLedger
	WithSnapshotStore      = core.WithSnapshotStore
	WithNotificationSink   = core.WithNotificationSink
	WithPrincipalValidator = core.WithPrincipalValidator
	WithRecheckEnqueuer    = core.WithRecheckEnqueuer
	WithClock              = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewOrchestrator(cfg Config, opts ...Option) (*Orchestrator, error) {
	return core.NewOrchestrator(cfg, opts...)
}

// Runtime is a fully wired wallet: the orchestrator, its notification hub and
// the command/query facade over both.
type Runtime struct {
	orchestrator *core.Orchestrator
	hub          *notify.Hub
	facade       *Facade
	bundles      map[string]any
}

// Setup wires an orchestrator whose notifications go to an in-process hub
// and to the wallet logger, in that order. A WithNotificationSink option
// replaces that default. Ledger clients without a signer get one that
// forwards the active session principal.
func Setup(cfg Config, opts ...Option) (*Runtime, error) {
	return SetupWithExtensions(cfg, nil, opts...)
}

func SetupWithExtensions(cfg Config, hooks *ExtensionHooks, opts ...Option) (*Runtime, error) {
	hub := notify.NewHub(core.DefaultNotificationHistory)

	logSink := &deferredLogSink{}
	sinks := notify.Multi{hub, logSink}
	sinks = append(sinks, hooks.Sinks()...)

	base := []Option{core.WithNotificationSink(sinks)}
	orchestrator, err := core.NewOrchestrator(cfg, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	logSink.bind(orchestrator)
	hub.SetLimit(orchestrator.Config().NotificationHistory)
	if client, ok := orchestrator.Ledger().(*ledger.Client); ok && client.Signer == nil {
		client.Signer = ledger.SessionSigner(orchestrator.Sessions())
	}

	facade, err := NewFacade(orchestrator, WithNotificationReader(hub))
	if err != nil {
		return nil, err
	}
	bundles, err := hooks.BuildCommandQueryBundles(facade)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		orchestrator: orchestrator,
		hub:          hub,
		facade:       facade,
		bundles:      bundles,
	}, nil
}

func (r *Runtime) Orchestrator() *core.Orchestrator {
	if r == nil {
		return nil
	}
	return r.orchestrator
}

func (r *Runtime) Hub() *notify.Hub {
	if r == nil {
		return nil
	}
	return r.hub
}

func (r *Runtime) Facade() *Facade {
	if r == nil {
		return nil
	}
	return r.facade
}

// Bundle returns the command/query bundle an extension registered under name.
func (r *Runtime) Bundle(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	bundle, ok := r.bundles[name]
	return bundle, ok
}

func (r *Runtime) Start(ctx context.Context) error {
	return r.orchestrator.Start(ctx)
}

// deferredLogSink logs through the orchestrator's resolved logger provider,
// which only exists once the orchestrator is built.
type deferredLogSink struct {
	sink *notify.LogSink
}

func (d *deferredLogSink) bind(orchestrator *core.Orchestrator) {
	d.sink = notify.NewLogSink(orchestrator.LoggerProvider(), nil)
}

func (d *deferredLogSink) Notify(ctx context.Context, notification core.Notification) {
	if d.sink == nil {
		return
	}
	d.sink.Notify(ctx, notification)
}
