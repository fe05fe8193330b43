package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ SnapshotStore      = (*MemorySnapshotStore)(nil)
	_ NotificationSink   = NopNotificationSink{}
	_ PrincipalValidator = SyntaxPrincipalValidator{}
	_ PrincipalValidator = PrincipalValidatorFunc(nil)
	_ MetricsRecorder    = NopMetricsRecorder{}
	_ ConfigProvider     = (*CfgxConfigProvider)(nil)
	_ OptionsResolver    = GoOptionsResolver{}
	_ RawConfigLoader    = StaticConfigLoader{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
