package core

import (
	"context"
	"errors"
	"fmt"
)

// Mint asks the ledger to mint for the caller. The local CanMint flag only
// gates obviously futile calls; the ledger's answer decides the outcome. On
// success the balance is advanced by the minted amount without re-querying.
func (o *Orchestrator) Mint(ctx context.Context) (minted uint64, err error) {
	startedAt := o.now()
	fields := map[string]any{}
	defer func() { o.observeOperation(ctx, startedAt, "mint", err, fields) }()

	o.mu.Lock()
	if o.state == StateLoggedIn && o.pending == PendingNone && !o.view.CanMint {
		o.mu.Unlock()
		return 0, o.gateError(ctx, "mint", ErrMintUnavailable)
	}
	epoch, session, err := o.acquireLocked(PendingMinting)
	o.mu.Unlock()
	if err != nil {
		return 0, o.gateError(ctx, "mint", err)
	}
	defer o.release(epoch, PendingMinting)
	fields["principal_id"] = session.PrincipalID

	ledgerCtx := context.WithoutCancel(ctx)
	minted, err = o.ledger.Mint(ledgerCtx)
	if err != nil {
		if o.isCurrent(epoch) {
			o.notifyError(ctx, "mint", failureMessage("Error minting tokens", err), err)
		}
		return 0, err
	}
	fields["minted"] = minted

	o.mu.Lock()
	if !o.currentLocked(epoch) {
		o.mu.Unlock()
		o.logger.Info("mint result discarded after session change", "minted", minted)
		return 0, ErrNotAuthenticated
	}
	o.view.Balance += minted
	o.view.CanMint = false
	o.supersedeLocked(fieldBalance)
	o.supersedeLocked(fieldCanMint)
	if recordErr := o.sessions.RecordBalance(ctx, o.view.Balance); recordErr != nil {
		o.logger.Error("persist balance snapshot failed", "error", recordErr.Error())
	}
	o.mu.Unlock()

	o.notify(ctx, "mint", SeveritySuccess, fmt.Sprintf("Successfully minted %d tokens!", minted))
	_ = o.readTotalSupply(ledgerCtx, epoch)
	o.scheduleRecheck(ctx, session.PrincipalID)
	return minted, nil
}

// TransferInput parses the amount typed by the user before delegating to
// Transfer.
func (o *Orchestrator) TransferInput(ctx context.Context, recipient string, amountInput string) error {
	amount, err := ParseTransferAmount(amountInput)
	if err != nil {
		o.notifyError(ctx, "transfer", "Invalid transfer amount", err)
		return err
	}
	return o.Transfer(ctx, TransferRequest{Recipient: recipient, Amount: amount})
}

// Transfer never adjusts the balance locally: after a successful transfer the
// balance is replaced by a fresh balanceOf read.
func (o *Orchestrator) Transfer(ctx context.Context, req TransferRequest) (err error) {
	startedAt := o.now()
	fields := map[string]any{"recipient": req.Recipient, "amount": req.Amount}
	defer func() { o.observeOperation(ctx, startedAt, "transfer", err, fields) }()

	o.mu.Lock()
	loggedIn := o.state == StateLoggedIn
	o.mu.Unlock()
	if !loggedIn {
		return o.gateError(ctx, "transfer", ErrNotAuthenticated)
	}
	if err := ValidateTransfer(req, o.validator); err != nil {
		message := "Invalid transfer amount"
		if errors.Is(err, ErrInvalidIdentity) {
			message = "Invalid recipient"
		}
		o.notifyError(ctx, "transfer", message, err)
		return err
	}

	o.mu.Lock()
	epoch, session, err := o.acquireLocked(PendingTransferring)
	o.mu.Unlock()
	if err != nil {
		return o.gateError(ctx, "transfer", err)
	}
	defer o.release(epoch, PendingTransferring)
	fields["principal_id"] = session.PrincipalID

	ledgerCtx := context.WithoutCancel(ctx)
	if err = o.ledger.Transfer(ledgerCtx, req.Recipient, req.Amount); err != nil {
		if o.isCurrent(epoch) {
			o.notifyError(ctx, "transfer", failureMessage("Error transferring tokens", err), err)
		}
		return err
	}
	o.mu.Lock()
	current := o.currentLocked(epoch)
	if current {
		o.supersedeLocked(fieldBalance)
	}
	o.mu.Unlock()
	if !current {
		o.logger.Info("transfer result discarded after session change", "recipient", req.Recipient)
		return nil
	}

	o.notify(ctx, "transfer", SeveritySuccess, "Tokens transferred successfully!")
	_ = o.readBalance(ledgerCtx, epoch, session.PrincipalID)
	return nil
}

func failureMessage(prefix string, err error) string {
	if reason, ok := LedgerReason(err); ok && reason != "" {
		return prefix + ": " + reason
	}
	return prefix
}
