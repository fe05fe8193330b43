package command

import (
	"context"
	"strings"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-wallet/core"
)

type WalletService interface {
	Start(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	RefreshBalance(ctx context.Context) (uint64, error)
	RefreshEligibility(ctx context.Context) (bool, error)
	Mint(ctx context.Context) (uint64, error)
	Transfer(ctx context.Context, req core.TransferRequest) error
	TransferInput(ctx context.Context, recipient string, amountInput string) error
	Snapshot() core.WalletSnapshot
}

type MintResult struct {
	Minted   uint64
	Snapshot core.WalletSnapshot
}

type LoginCommand struct {
	service WalletService
}

func NewLoginCommand(service WalletService) *LoginCommand {
	return &LoginCommand{service: service}
}

func (c *LoginCommand) Execute(ctx context.Context, _ LoginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	if err := c.service.Login(ctx); err != nil {
		return err
	}
	storeResult(ctx, c.service.Snapshot())
	return nil
}

type LogoutCommand struct {
	service WalletService
}

func NewLogoutCommand(service WalletService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

// Execute stores the reset snapshot even when ending the identity session
// failed, since the wallet is logged out either way.
func (c *LogoutCommand) Execute(ctx context.Context, _ LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: logout service is required")
	}
	err := c.service.Logout(ctx)
	storeResult(ctx, c.service.Snapshot())
	return err
}

type RestoreSessionCommand struct {
	service WalletService
}

func NewRestoreSessionCommand(service WalletService) *RestoreSessionCommand {
	return &RestoreSessionCommand{service: service}
}

func (c *RestoreSessionCommand) Execute(ctx context.Context, _ RestoreSessionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: restore service is required")
	}
	if err := c.service.Start(ctx); err != nil {
		return err
	}
	storeResult(ctx, c.service.Snapshot())
	return nil
}

type RefreshWalletCommand struct {
	service WalletService
}

func NewRefreshWalletCommand(service WalletService) *RefreshWalletCommand {
	return &RefreshWalletCommand{service: service}
}

func (c *RefreshWalletCommand) Execute(ctx context.Context, _ RefreshWalletMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refresh service is required")
	}
	err := c.service.Refresh(ctx)
	storeResult(ctx, c.service.Snapshot())
	return err
}

type RefreshBalanceCommand struct {
	service WalletService
}

func NewRefreshBalanceCommand(service WalletService) *RefreshBalanceCommand {
	return &RefreshBalanceCommand{service: service}
}

func (c *RefreshBalanceCommand) Execute(ctx context.Context, _ RefreshBalanceMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: balance service is required")
	}
	balance, err := c.service.RefreshBalance(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, balance)
	return nil
}

type RefreshEligibilityCommand struct {
	service WalletService
}

func NewRefreshEligibilityCommand(service WalletService) *RefreshEligibilityCommand {
	return &RefreshEligibilityCommand{service: service}
}

func (c *RefreshEligibilityCommand) Execute(ctx context.Context, _ RefreshEligibilityMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: eligibility service is required")
	}
	canMint, err := c.service.RefreshEligibility(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, canMint)
	return nil
}

type MintCommand struct {
	service WalletService
}

func NewMintCommand(service WalletService) *MintCommand {
	return &MintCommand{service: service}
}

func (c *MintCommand) Execute(ctx context.Context, _ MintMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: mint service is required")
	}
	minted, err := c.service.Mint(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, MintResult{Minted: minted, Snapshot: c.service.Snapshot()})
	return nil
}

type TransferCommand struct {
	service WalletService
}

func NewTransferCommand(service WalletService) *TransferCommand {
	return &TransferCommand{service: service}
}

func (c *TransferCommand) Execute(ctx context.Context, msg TransferMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: transfer service is required")
	}
	var err error
	if strings.TrimSpace(msg.AmountInput) != "" {
		err = c.service.TransferInput(ctx, msg.Recipient, msg.AmountInput)
	} else {
		err = c.service.Transfer(ctx, core.TransferRequest{Recipient: msg.Recipient, Amount: msg.Amount})
	}
	if err != nil {
		return err
	}
	storeResult(ctx, c.service.Snapshot())
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
