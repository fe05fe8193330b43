package adapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"

	wallet "github.com/goliatone/go-wallet"
	"github.com/goliatone/go-wallet/adapters/gocommand"
	"github.com/goliatone/go-wallet/adapters/gojob"
	"github.com/goliatone/go-wallet/adapters/gologger"
	walletcommand "github.com/goliatone/go-wallet/command"
	"github.com/goliatone/go-wallet/core"
	"github.com/goliatone/go-wallet/ledger/ledgertest"
	walletquery "github.com/goliatone/go-wallet/query"
)

func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	provider := &compatProvider{logger: compatLogger{}}
	_, _, jobProvider, jobLogger := gologger.ResolveForJob("wallet", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	backend := ledgertest.New()
	backend.Credit("2vxsx-fae", 100)
	enqueueProbe := &compatEnqueuer{}

	cfg := wallet.DefaultConfig()
	cfg.MintRecheckDelay = time.Hour
	opts := append(gologger.OrchestratorOptions(provider, nil),
		wallet.WithAuthenticator(wallet.StaticAuthenticator("2vxsx-fae")),
		wallet.WithLedger(backend.As("2vxsx-fae")),
		wallet.WithRecheckEnqueuer(gojob.NewEnqueuerAdapter(enqueueProbe)),
	)
	runtime, err := wallet.Setup(cfg, opts...)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	queueRegistry := jobqueuecommand.NewRegistry()
	commandAdapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := commandAdapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	subs, err := gocommand.RegisterWallet(commandAdapter, runtime.Facade())
	if err != nil {
		t.Fatalf("register wallet commands: %v", err)
	}
	defer subs.Unsubscribe()
	if err := commandAdapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get(walletcommand.TypeMint); !ok {
		t.Fatalf("expected mint command to be mirrored into go-job queue registry")
	}

	if err := gocommand.Dispatch(ctx, walletcommand.LoginMessage{}); err != nil {
		t.Fatalf("dispatch login: %v", err)
	}
	if err := gocommand.Dispatch(ctx, walletcommand.MintMessage{}); err != nil {
		t.Fatalf("dispatch mint: %v", err)
	}
	if enqueueProbe.last == nil || enqueueProbe.last.JobID != gojob.JobIDMintRecheck {
		t.Fatalf("expected mint to schedule a recheck through the go-job enqueuer")
	}

	snapshot, err := gocommand.Query[walletquery.WalletSnapshotMessage, core.WalletSnapshot](ctx, walletquery.WalletSnapshotMessage{})
	if err != nil {
		t.Fatalf("query snapshot: %v", err)
	}
	if snapshot.View.Balance != 100+ledgertest.DefaultMintAmount || snapshot.View.CanMint {
		t.Fatalf("unexpected snapshot after mint: %+v", snapshot)
	}
}

type compatEnqueuer struct {
	last *job.ExecutionMessage
}

func (e *compatEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	e.last = msg
	return nil
}

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }
