package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	JobIDMintRecheck = "wallet.mint.recheck"

	recheckParamPrincipal = "principal_id"
	recheckParamNotBefore = "not_before"

	recheckBusyDelay = time.Second
)

// NewMintRecheckMessage builds the job that re-reads mint eligibility once the
// server side cooldown is expected to be over.
func NewMintRecheckMessage(principalID string, notBefore time.Time) *JobExecutionMessage {
	return &JobExecutionMessage{
		JobID: JobIDMintRecheck,
		Parameters: map[string]any{
			recheckParamPrincipal: strings.TrimSpace(principalID),
			recheckParamNotBefore: notBefore.UTC().Format(time.RFC3339Nano),
		},
		IdempotencyKey: JobIDMintRecheck + ":" + uuid.NewString(),
	}
}

func (o *Orchestrator) scheduleRecheck(ctx context.Context, principalID string) {
	if o.recheckEnqueuer == nil || o.config.MintRecheckDelay <= 0 {
		return
	}
	msg := NewMintRecheckMessage(principalID, o.now().Add(o.config.MintRecheckDelay))
	if err := o.recheckEnqueuer.Enqueue(ctx, msg); err != nil {
		o.logger.Error("enqueue mint recheck failed", "principal_id", principalID, "error", err.Error())
	}
}

// ProcessRecheck handles one delivery of a mint re-check job. Deliveries that
// are not yet due, or that arrive while another operation holds the gate, are
// requeued with a delay. Deliveries for a principal that is no longer logged
// in are acknowledged and dropped.
func (o *Orchestrator) ProcessRecheck(ctx context.Context, delivery JobDelivery) error {
	if delivery == nil {
		return fmt.Errorf("core: job delivery is required")
	}
	msg := delivery.Message()
	if msg == nil || strings.TrimSpace(msg.JobID) != JobIDMintRecheck {
		return delivery.Nack(ctx, JobNackOptions{DeadLetter: true, Reason: "unsupported job"})
	}

	principalID, _ := msg.Parameters[recheckParamPrincipal].(string)
	if notBefore, ok := parseNotBefore(msg.Parameters[recheckParamNotBefore]); ok {
		if wait := notBefore.Sub(o.now()); wait > 0 {
			return delivery.Nack(ctx, JobNackOptions{Delay: wait, Requeue: true, Reason: "not due"})
		}
	}

	session := o.sessions.Current()
	if !session.Active || session.PrincipalID != strings.TrimSpace(principalID) {
		return delivery.Ack(ctx)
	}

	if _, err := o.RefreshEligibility(ctx); err != nil {
		if errors.Is(err, ErrOperationInProgress) {
			return delivery.Nack(ctx, JobNackOptions{Delay: recheckBusyDelay, Requeue: true, Reason: "operation in progress"})
		}
		o.logger.Info("mint recheck finished with error", "principal_id", principalID, "error", err.Error())
	}
	return delivery.Ack(ctx)
}

// RunRecheckWorker consumes re-check deliveries until ctx is done.
func (o *Orchestrator) RunRecheckWorker(ctx context.Context, dequeuer JobDequeuer) error {
	if dequeuer == nil {
		return fmt.Errorf("core: job dequeuer is required")
	}
	for {
		delivery, err := dequeuer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := o.ProcessRecheck(ctx, delivery); err != nil {
			o.logger.Error("mint recheck delivery failed", "error", err.Error())
		}
	}
}

func parseNotBefore(raw any) (time.Time, bool) {
	switch typed := raw.(type) {
	case time.Time:
		return typed.UTC(), true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(typed))
		if err != nil {
			return time.Time{}, false
		}
		return parsed.UTC(), true
	default:
		return time.Time{}, false
	}
}
