package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-wallet/core"
)

const JobIDMintRecheck = core.JobIDMintRecheck

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts core.JobNackOptions, attempt int) core.JobNackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage maps a wallet job message to go-job.
func ToExecutionMessage(msg *core.JobExecutionMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

// FromExecutionMessage maps a go-job message into the wallet contract.
func FromExecutionMessage(msg *job.ExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	return &core.JobExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

// ToNackOptions maps wallet nack options to go-job.
func ToNackOptions(opts core.JobNackOptions) queue.NackOptions {
	return queue.NackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

// FromNackOptions maps go-job nack options to wallet ones.
func FromNackOptions(opts queue.NackOptions) core.JobNackOptions {
	return core.JobNackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	return a.enqueuer.Enqueue(ctx, ToExecutionMessage(msg))
}

type DeliveryAdapter struct {
	delivery queue.Delivery
	policy   RetryPolicy
}

func NewDeliveryAdapter(delivery queue.Delivery, policy RetryPolicy) *DeliveryAdapter {
	return &DeliveryAdapter{delivery: delivery, policy: policy}
}

func (d *DeliveryAdapter) Message() *core.JobExecutionMessage {
	if d == nil || d.delivery == nil {
		return nil
	}
	return FromExecutionMessage(d.delivery.Message())
}

func (d *DeliveryAdapter) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Ack(ctx)
}

func (d *DeliveryAdapter) Nack(ctx context.Context, opts core.JobNackOptions) error {
	return d.NackForAttempt(ctx, opts, 0)
}

func (d *DeliveryAdapter) NackForAttempt(ctx context.Context, opts core.JobNackOptions, attempt int) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	normalized := d.policy.NormalizeAttempt(opts, attempt)
	return d.delivery.Nack(ctx, ToNackOptions(normalized))
}

type DequeuerAdapter struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy
}

func NewDequeuerAdapter(dequeuer queue.Dequeuer, policy RetryPolicy) *DequeuerAdapter {
	return &DequeuerAdapter{dequeuer: dequeuer, policy: policy}
}

func (a *DequeuerAdapter) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if a == nil || a.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := a.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	return NewDeliveryAdapter(delivery, a.policy), nil
}

// MetricsHook reports recheck worker lifecycle events as wallet metrics.
type MetricsHook struct {
	recorder core.MetricsRecorder
	logger   core.Logger
}

func NewMetricsHook(recorder core.MetricsRecorder, logger core.Logger) *MetricsHook {
	if recorder == nil {
		recorder = core.NopMetricsRecorder{}
	}
	return &MetricsHook{recorder: recorder, logger: glog.Ensure(logger)}
}

func (h *MetricsHook) OnStart(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.recorder.IncCounter(ctx, "wallet.job.started", 1, jobTags(event))
}

func (h *MetricsHook) OnSuccess(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	tags := jobTags(event)
	h.recorder.IncCounter(ctx, "wallet.job.succeeded", 1, tags)
	h.recorder.ObserveHistogram(ctx, "wallet.job.duration_ms", float64(event.Duration.Milliseconds()), tags)
}

func (h *MetricsHook) OnFailure(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	tags := jobTags(event)
	h.recorder.IncCounter(ctx, "wallet.job.failed", 1, tags)
	h.recorder.ObserveHistogram(ctx, "wallet.job.duration_ms", float64(event.Duration.Milliseconds()), tags)
	args := []any{"job_id", tags["job_id"], "attempt", event.Attempt}
	if event.Err != nil {
		args = append(args, "error", event.Err.Error())
	}
	h.logger.Error("wallet job failed", args...)
}

func (h *MetricsHook) OnRetry(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.recorder.IncCounter(ctx, "wallet.job.retried", 1, jobTags(event))
	h.logger.Info("wallet job retry scheduled", "job_id", jobTags(event)["job_id"], "attempt", event.Attempt, "delay", event.Delay.String())
}

func jobTags(event worker.Event) map[string]string {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	jobID := "unknown"
	if message != nil && strings.TrimSpace(message.JobID) != "" {
		jobID = strings.TrimSpace(message.JobID)
	}
	return map[string]string{"job_id": jobID}
}

// RecheckHandler processes go-job deliveries of mint recheck jobs against an
// orchestrator.
type RecheckHandler struct {
	orchestrator *core.Orchestrator
	policy       RetryPolicy
}

func NewRecheckHandler(orchestrator *core.Orchestrator, policy RetryPolicy) *RecheckHandler {
	return &RecheckHandler{orchestrator: orchestrator, policy: policy}
}

func (h *RecheckHandler) Handle(ctx context.Context, delivery queue.Delivery) error {
	if h == nil || h.orchestrator == nil {
		return fmt.Errorf("gojob: recheck orchestrator is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	return h.orchestrator.ProcessRecheck(ctx, NewDeliveryAdapter(delivery, h.policy))
}

// Run consumes deliveries until ctx is done.
func (h *RecheckHandler) Run(ctx context.Context, dequeuer queue.Dequeuer) error {
	if h == nil || h.orchestrator == nil {
		return fmt.Errorf("gojob: recheck orchestrator is not configured")
	}
	return h.orchestrator.RunRecheckWorker(ctx, NewDequeuerAdapter(dequeuer, h.policy))
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.JobEnqueuer = (*EnqueuerAdapter)(nil)
	_ core.JobDelivery = (*DeliveryAdapter)(nil)
	_ core.JobDequeuer = (*DequeuerAdapter)(nil)
	_ worker.Hook      = (*MetricsHook)(nil)
)
