package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

type stubAuthenticator struct {
	authenticateFn func(ctx context.Context, providerURL string) (Identity, error)
	currentFn      func(ctx context.Context) (Identity, bool, error)
	endFn          func(ctx context.Context) error
}

func (s stubAuthenticator) Authenticate(ctx context.Context, providerURL string) (Identity, error) {
	if s.authenticateFn == nil {
		return PrincipalIdentity("alice"), nil
	}
	return s.authenticateFn(ctx, providerURL)
}

func (s stubAuthenticator) CurrentIdentity(ctx context.Context) (Identity, bool, error) {
	if s.currentFn == nil {
		return nil, false, nil
	}
	return s.currentFn(ctx)
}

func (s stubAuthenticator) EndSession(ctx context.Context) error {
	if s.endFn == nil {
		return nil
	}
	return s.endFn(ctx)
}

type stubLedger struct {
	mu sync.Mutex

	balanceFn     func(ctx context.Context, principalID string) (uint64, error)
	canMintFn     func(ctx context.Context, principalID string) (bool, error)
	mintFn        func(ctx context.Context) (uint64, error)
	transferFn    func(ctx context.Context, recipient string, amount uint64) error
	totalSupplyFn func(ctx context.Context) (uint64, error)

	calls map[string]int
}

func (s *stubLedger) count(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[name]++
}

func (s *stubLedger) callCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubLedger) BalanceOf(ctx context.Context, principalID string) (uint64, error) {
	s.count("balance_of")
	if s.balanceFn == nil {
		return 100, nil
	}
	return s.balanceFn(ctx, principalID)
}

func (s *stubLedger) CanMint(ctx context.Context, principalID string) (bool, error) {
	s.count("can_mint")
	if s.canMintFn == nil {
		return true, nil
	}
	return s.canMintFn(ctx, principalID)
}

func (s *stubLedger) Mint(ctx context.Context) (uint64, error) {
	s.count("mint")
	if s.mintFn == nil {
		return 10, nil
	}
	return s.mintFn(ctx)
}

func (s *stubLedger) Transfer(ctx context.Context, recipient string, amount uint64) error {
	s.count("transfer")
	if s.transferFn == nil {
		return nil
	}
	return s.transferFn(ctx, recipient, amount)
}

func (s *stubLedger) TotalSupply(ctx context.Context) (uint64, error) {
	s.count("total_supply")
	if s.totalSupplyFn == nil {
		return 1000, nil
	}
	return s.totalSupplyFn(ctx)
}

type captureSink struct {
	mu    sync.Mutex
	items []Notification
}

func (s *captureSink) Notify(_ context.Context, notification Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, notification)
}

func (s *captureSink) snapshot() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

func (s *captureSink) has(severity Severity, message string) bool {
	for _, item := range s.snapshot() {
		if item.Severity == severity && item.Message == message {
			return true
		}
	}
	return false
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

type walletFixture struct {
	orchestrator *Orchestrator
	ledger       *stubLedger
	sink         *captureSink
	store        *MemorySnapshotStore
}

func newWalletFixture(t *testing.T, auth Authenticator, ledger *stubLedger, opts ...Option) walletFixture {
	t.Helper()
	if auth == nil {
		auth = stubAuthenticator{}
	}
	if ledger == nil {
		ledger = &stubLedger{}
	}
	sink := &captureSink{}
	store := NewMemorySnapshotStore()
	base := []Option{
		WithAuthenticator(auth),
		WithLedger(ledger),
		WithNotificationSink(sink),
		WithSnapshotStore(store),
		WithLogger(stubLogger{}),
		WithLoggerProvider(stubLoggerProvider{logger: stubLogger{}}),
	}
	orchestrator, err := NewOrchestrator(Config{}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return walletFixture{orchestrator: orchestrator, ledger: ledger, sink: sink, store: store}
}

func loginFixture(t *testing.T, fx walletFixture) {
	t.Helper()
	if err := fx.orchestrator.Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func waitForPending(t *testing.T, o *Orchestrator, want PendingOperation) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o.Snapshot().Pending == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for pending=%s, got %s", want, o.Snapshot().Pending)
}
