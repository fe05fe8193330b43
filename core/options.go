package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type orchestratorBuilder struct {
	runtimeConfig      Config
	logger             Logger
	loggerProvider     LoggerProvider
	metricsRecorder    MetricsRecorder
	errorMapper        ErrorMapper
	configProvider     ConfigProvider
	optionsResolver    OptionsResolver
	authenticator      Authenticator
	ledger             Ledger
	snapshotStore      SnapshotStore
	notifier           NotificationSink
	principalValidator PrincipalValidator
	recheckEnqueuer    JobEnqueuer
	now                func() time.Time
}

type Option func(*orchestratorBuilder)

func WithLogger(logger Logger) Option {
	return func(b *orchestratorBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *orchestratorBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *orchestratorBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *orchestratorBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *orchestratorBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *orchestratorBuilder) {
		b.optionsResolver = resolver
	}
}

func WithAuthenticator(authenticator Authenticator) Option {
	return func(b *orchestratorBuilder) {
		b.authenticator = authenticator
	}
}

func WithLedger(ledger Ledger) Option {
	return func(b *orchestratorBuilder) {
		b.ledger = ledger
	}
}

func WithSnapshotStore(store SnapshotStore) Option {
	return func(b *orchestratorBuilder) {
		b.snapshotStore = store
	}
}

func WithNotificationSink(sink NotificationSink) Option {
	return func(b *orchestratorBuilder) {
		b.notifier = sink
	}
}

func WithPrincipalValidator(validator PrincipalValidator) Option {
	return func(b *orchestratorBuilder) {
		b.principalValidator = validator
	}
}

// WithRecheckEnqueuer enables the delayed mint eligibility re-check job that
// is scheduled after every successful mint when mint_recheck_delay > 0.
func WithRecheckEnqueuer(enqueuer JobEnqueuer) Option {
	return func(b *orchestratorBuilder) {
		b.recheckEnqueuer = enqueuer
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *orchestratorBuilder) {
		b.now = now
	}
}

func defaultOrchestratorBuilder(runtime Config) orchestratorBuilder {
	loggerProvider, logger := glog.Resolve("wallet", nil, nil)
	return orchestratorBuilder{
		runtimeConfig:      runtime,
		loggerProvider:     loggerProvider,
		logger:             logger,
		metricsRecorder:    NopMetricsRecorder{},
		errorMapper:        MapError,
		configProvider:     NewCfgxConfigProvider(nil),
		optionsResolver:    GoOptionsResolver{},
		snapshotStore:      NewMemorySnapshotStore(),
		notifier:           NopNotificationSink{},
		principalValidator: SyntaxPrincipalValidator{},
		now:                func() time.Time { return time.Now().UTC() },
	}
}

type StaticConfigLoader struct {
	Values map[string]any
}

func (l StaticConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults < loaded config < runtime config. Zero
// values in the loaded and runtime layers do not override lower layers.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.ProviderURL) != "" {
		layer["provider_url"] = cfg.ProviderURL
	}
	if includeZero || strings.TrimSpace(cfg.SnapshotSlot) != "" {
		layer["snapshot_slot"] = cfg.SnapshotSlot
	}
	if includeZero || cfg.FetchTimeout > 0 {
		layer["fetch_timeout"] = cfg.FetchTimeout
	}
	if includeZero || cfg.MintRecheckDelay > 0 {
		layer["mint_recheck_delay"] = cfg.MintRecheckDelay
	}
	if includeZero || cfg.NotificationHistory > 0 {
		layer["notification_history"] = cfg.NotificationHistory
	}
	return layer
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return err
}
