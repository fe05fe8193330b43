package notify

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-wallet/core"
)

// LogSink writes notifications to a glog logger, errors at error level.
type LogSink struct {
	logger core.Logger
}

func NewLogSink(provider core.LoggerProvider, logger core.Logger) *LogSink {
	_, resolved := glog.Resolve("wallet.notify", provider, logger)
	return &LogSink{logger: glog.Ensure(resolved)}
}

func (s *LogSink) Notify(ctx context.Context, notification core.Notification) {
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	args := []any{
		"severity", string(notification.Severity),
		"operation", notification.Operation,
	}
	if notification.Code != "" {
		args = append(args, "error_code", notification.Code)
	}
	if notification.Severity == core.SeverityError {
		logger.Error(notification.Message, args...)
		return
	}
	logger.Info(notification.Message, args...)
}

type Func func(ctx context.Context, notification core.Notification)

func (f Func) Notify(ctx context.Context, notification core.Notification) {
	if f != nil {
		f(ctx, notification)
	}
}

// Multi delivers to every sink in order.
type Multi []core.NotificationSink

func (m Multi) Notify(ctx context.Context, notification core.Notification) {
	for _, sink := range m {
		if sink != nil {
			sink.Notify(ctx, notification)
		}
	}
}

var (
	_ core.NotificationSink = (*Hub)(nil)
	_ core.NotificationSink = (*LogSink)(nil)
	_ core.NotificationSink = Func(nil)
	_ core.NotificationSink = Multi(nil)
)
