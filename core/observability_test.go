package core

import (
	"context"
	"errors"
	"maps"
	"sync"
	"testing"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: maps.Clone(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: maps.Clone(tags)})
}

func (m *captureMetricsRecorder) hasCounter(name string, status string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, counter := range m.counters {
		if counter.name == name && counter.tags["status"] == status {
			return true
		}
	}
	return false
}

func (m *captureMetricsRecorder) counterTag(name string, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, counter := range m.counters {
		if counter.name == name {
			return counter.tags[key]
		}
	}
	return ""
}

func (m *captureMetricsRecorder) hasHistogram(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, histogram := range m.histograms {
		if histogram.name == name {
			return true
		}
	}
	return false
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) hasLog(level string, msg string) (capturedLog, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, record := range *l.records {
		if record.level == level && record.msg == msg {
			return record, true
		}
	}
	return capturedLog{}, false
}

func TestOrchestratorObservability_MintSuccess(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	fx := newWalletFixture(t, nil, nil,
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	loginFixture(t, fx)
	if _, err := fx.orchestrator.Mint(context.Background()); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if !metrics.hasCounter("wallet.login.total", "success") {
		t.Fatalf("expected wallet.login.total success counter")
	}
	if !metrics.hasCounter("wallet.mint.total", "success") {
		t.Fatalf("expected wallet.mint.total success counter")
	}
	if !metrics.hasHistogram("wallet.mint.duration_ms") {
		t.Fatalf("expected wallet.mint.duration_ms histogram")
	}
	record, ok := logger.hasLog("info", "mint succeeded")
	if !ok {
		t.Fatalf("expected mint succeeded structured log")
	}
	if record.fields["principal_id"] != "alice" || record.fields["event_type"] != "mint" {
		t.Fatalf("unexpected log fields %+v", record.fields)
	}
}

func TestOrchestratorObservability_GateRejectionCarriesErrorCode(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	fx := newWalletFixture(t, nil, nil,
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)

	if _, err := fx.orchestrator.Mint(context.Background()); err == nil {
		t.Fatalf("expected mint to fail while logged out")
	}
	if !metrics.hasCounter("wallet.mint.total", "rejected") {
		t.Fatalf("expected mint rejected counter")
	}
	if got := metrics.counterTag("wallet.mint.total", "error_code"); got != WalletErrorNotAuthenticated {
		t.Fatalf("expected error_code tag %s, got %q", WalletErrorNotAuthenticated, got)
	}
	if _, ok := logger.hasLog("warn", "mint rejected"); !ok {
		t.Fatalf("expected mint rejected warn log")
	}
}

func TestOrchestratorObservability_LedgerFailureLogsError(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	ledger := &stubLedger{mintFn: func(context.Context) (uint64, error) {
		return 0, RemoteUnavailable("mint", errors.New("connection refused"))
	}}
	fx := newWalletFixture(t, nil, ledger,
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	loginFixture(t, fx)

	if _, err := fx.orchestrator.Mint(context.Background()); err == nil {
		t.Fatalf("expected mint to fail")
	}
	if !metrics.hasCounter("wallet.mint.total", "failure") {
		t.Fatalf("expected mint failure counter")
	}
	if _, ok := logger.hasLog("error", "mint failed"); !ok {
		t.Fatalf("expected mint failed log")
	}
}

func TestNormalizeOperation(t *testing.T) {
	if got := normalizeOperation(" Total-Supply check "); got != "total_supply_check" {
		t.Fatalf("unexpected normalized operation %q", got)
	}
}
