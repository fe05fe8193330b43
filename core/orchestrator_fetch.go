package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrFetchTimeout = errors.New("core: wallet fetch timed out")

// fetchSequence issues balanceOf, canMint and totalSupply concurrently. Each
// result is applied as soon as it arrives. The sequence is considered stable
// once all three finished or fetch_timeout elapsed; reads still in flight at
// that point keep running and are applied on arrival if the epoch holds and
// no newer value for the same field has been applied meanwhile.
func (o *Orchestrator) fetchSequence(ctx context.Context, epoch uint64, principalID string) error {
	ledgerCtx := context.WithoutCancel(ctx)

	var (
		group    errgroup.Group
		mu       sync.Mutex
		failures []error
	)
	record := func(err error) error {
		if err != nil {
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
		}
		return nil
	}

	group.Go(func() error {
		return record(o.readBalance(ledgerCtx, epoch, principalID))
	})
	group.Go(func() error {
		return record(o.readCanMint(ledgerCtx, epoch, principalID))
	})
	group.Go(func() error {
		return record(o.readTotalSupply(ledgerCtx, epoch))
	})

	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()

	timer := time.NewTimer(o.config.FetchTimeout)
	defer timer.Stop()

	timedOut := false
	select {
	case <-done:
	case <-timer.C:
		timedOut = true
	case <-ctx.Done():
		timedOut = true
	}

	mu.Lock()
	errs := append([]error(nil), failures...)
	mu.Unlock()
	if timedOut {
		errs = append(errs, ErrFetchTimeout)
	}
	degraded := len(errs) > 0

	o.mu.Lock()
	applied := o.currentLocked(epoch)
	if applied {
		o.stable = true
		o.degraded = degraded
		if o.pending == PendingCheckingBalance {
			o.pending = PendingNone
		}
	}
	o.mu.Unlock()

	if applied && degraded {
		o.notify(ctx, "fetch", SeverityInfo, "Some wallet data could not be loaded; showing last known values")
	}
	return errors.Join(errs...)
}

// Refresh re-runs the full fetch sequence on demand.
func (o *Orchestrator) Refresh(ctx context.Context) (err error) {
	startedAt := o.now()
	fields := map[string]any{}
	defer func() { o.observeOperation(ctx, startedAt, "refresh", err, fields) }()

	o.mu.Lock()
	epoch, session, err := o.acquireLocked(PendingCheckingBalance)
	if err == nil {
		o.stable = false
	}
	o.mu.Unlock()
	if err != nil {
		return o.gateError(ctx, "refresh", err)
	}
	defer o.release(epoch, PendingCheckingBalance)

	fields["principal_id"] = session.PrincipalID
	return o.fetchSequence(ctx, epoch, session.PrincipalID)
}

func (o *Orchestrator) RefreshBalance(ctx context.Context) (balance uint64, err error) {
	startedAt := o.now()
	fields := map[string]any{}
	defer func() { o.observeOperation(ctx, startedAt, "balance", err, fields) }()

	o.mu.Lock()
	epoch, session, err := o.acquireLocked(PendingCheckingBalance)
	o.mu.Unlock()
	if err != nil {
		return 0, o.gateError(ctx, "balance", err)
	}
	defer o.release(epoch, PendingCheckingBalance)

	fields["principal_id"] = session.PrincipalID
	if err := o.readBalance(context.WithoutCancel(ctx), epoch, session.PrincipalID); err != nil {
		return 0, err
	}
	return o.Snapshot().View.Balance, nil
}

// RefreshEligibility re-reads the mint eligibility flag only.
func (o *Orchestrator) RefreshEligibility(ctx context.Context) (canMint bool, err error) {
	startedAt := o.now()
	fields := map[string]any{}
	defer func() { o.observeOperation(ctx, startedAt, "eligibility", err, fields) }()

	o.mu.Lock()
	epoch, session, err := o.acquireLocked(PendingCheckingBalance)
	wasEligible := o.view.CanMint
	o.mu.Unlock()
	if err != nil {
		return false, err
	}
	defer o.release(epoch, PendingCheckingBalance)

	fields["principal_id"] = session.PrincipalID
	if err := o.readCanMint(context.WithoutCancel(ctx), epoch, session.PrincipalID); err != nil {
		return false, err
	}
	canMint = o.Snapshot().View.CanMint
	if canMint && !wasEligible {
		o.notify(ctx, "eligibility", SeverityInfo, "Minting is available again")
	}
	return canMint, nil
}

type viewField int

const (
	fieldBalance viewField = iota
	fieldCanMint
	fieldTotalSupply
	viewFieldCount
)

// Each view field carries a read sequence. A read takes the next number when
// it is dispatched and is applied only if nothing newer has been applied to
// that field yet. Local writes (mint, transfer) claim a number too, so a read
// that outlives the fetch timeout cannot overwrite them.
type fieldSequences struct {
	issued  [viewFieldCount]uint64
	applied [viewFieldCount]uint64
}

func (s *fieldSequences) next(field viewField) uint64 {
	s.issued[field]++
	return s.issued[field]
}

func (s *fieldSequences) accept(field viewField, seq uint64) bool {
	if seq <= s.applied[field] {
		return false
	}
	s.applied[field] = seq
	return true
}

func (s *fieldSequences) fresh(field viewField, seq uint64) bool {
	return seq > s.applied[field]
}

// supersedeLocked marks field as written locally. Callers hold o.mu.
func (o *Orchestrator) supersedeLocked(field viewField) {
	o.seqs.accept(field, o.seqs.next(field))
}

func (o *Orchestrator) dispatchRead(field viewField) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.seqs.next(field)
}

// readFailed reports whether a failed read should still be surfaced.
func (o *Orchestrator) readFailed(epoch uint64, field viewField, seq uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentLocked(epoch) && o.seqs.fresh(field, seq)
}

func (o *Orchestrator) readBalance(ctx context.Context, epoch uint64, principalID string) error {
	seq := o.dispatchRead(fieldBalance)
	balance, err := o.ledger.BalanceOf(ctx, principalID)
	if err != nil {
		if o.readFailed(epoch, fieldBalance, seq) {
			o.notifyError(ctx, "balance", "Error checking balance", err)
		}
		return fmt.Errorf("balance: %w", err)
	}
	o.applyBalance(ctx, epoch, seq, balance)
	return nil
}

func (o *Orchestrator) readCanMint(ctx context.Context, epoch uint64, principalID string) error {
	seq := o.dispatchRead(fieldCanMint)
	canMint, err := o.ledger.CanMint(ctx, principalID)
	if err != nil {
		if o.readFailed(epoch, fieldCanMint, seq) {
			o.notifyError(ctx, "can_mint", "Error checking mint ability", err)
		}
		return fmt.Errorf("can mint: %w", err)
	}
	o.mu.Lock()
	if o.currentLocked(epoch) && o.seqs.accept(fieldCanMint, seq) {
		o.view.CanMint = canMint
	}
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) readTotalSupply(ctx context.Context, epoch uint64) error {
	seq := o.dispatchRead(fieldTotalSupply)
	supply, err := o.ledger.TotalSupply(ctx)
	if err != nil {
		if o.readFailed(epoch, fieldTotalSupply, seq) {
			o.notifyError(ctx, "total_supply", "Error getting total supply", err)
		}
		return fmt.Errorf("total supply: %w", err)
	}
	o.mu.Lock()
	if o.currentLocked(epoch) && o.seqs.accept(fieldTotalSupply, seq) {
		o.view.TotalSupply = supply
	}
	o.mu.Unlock()
	return nil
}

// applyBalance replaces the cached balance and overwrites the persisted
// snapshot. Results for a stale epoch, or older than the last applied
// balance, are dropped.
func (o *Orchestrator) applyBalance(ctx context.Context, epoch uint64, seq uint64, balance uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.currentLocked(epoch) || !o.seqs.accept(fieldBalance, seq) {
		return false
	}
	o.view.Balance = balance
	if err := o.sessions.RecordBalance(ctx, balance); err != nil {
		o.logger.Error("persist balance snapshot failed", "error", err.Error())
	}
	return true
}

func (o *Orchestrator) isCurrent(epoch uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentLocked(epoch)
}
