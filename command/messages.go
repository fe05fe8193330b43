package command

import (
	"strings"

	"github.com/goliatone/go-wallet/core"
)

const (
	TypeLogin              = "wallet.command.login"
	TypeLogout             = "wallet.command.logout"
	TypeRestoreSession     = "wallet.command.session.restore"
	TypeRefreshWallet      = "wallet.command.refresh"
	TypeRefreshBalance     = "wallet.command.balance.refresh"
	TypeRefreshEligibility = "wallet.command.eligibility.refresh"
	TypeMint               = "wallet.command.mint"
	TypeTransfer           = "wallet.command.transfer"
)

type LoginMessage struct{}

func (LoginMessage) Type() string { return TypeLogin }

func (LoginMessage) Validate() error { return nil }

type LogoutMessage struct{}

func (LogoutMessage) Type() string { return TypeLogout }

func (LogoutMessage) Validate() error { return nil }

type RestoreSessionMessage struct{}

func (RestoreSessionMessage) Type() string { return TypeRestoreSession }

func (RestoreSessionMessage) Validate() error { return nil }

type RefreshWalletMessage struct{}

func (RefreshWalletMessage) Type() string { return TypeRefreshWallet }

func (RefreshWalletMessage) Validate() error { return nil }

type RefreshBalanceMessage struct{}

func (RefreshBalanceMessage) Type() string { return TypeRefreshBalance }

func (RefreshBalanceMessage) Validate() error { return nil }

type RefreshEligibilityMessage struct{}

func (RefreshEligibilityMessage) Type() string { return TypeRefreshEligibility }

func (RefreshEligibilityMessage) Validate() error { return nil }

type MintMessage struct{}

func (MintMessage) Type() string { return TypeMint }

func (MintMessage) Validate() error { return nil }

// TransferMessage carries either a parsed Amount or the raw AmountInput typed
// by the user. AmountInput wins when both are set.
type TransferMessage struct {
	Recipient   string
	Amount      uint64
	AmountInput string
}

func (TransferMessage) Type() string { return TypeTransfer }

func (m TransferMessage) Validate() error {
	if strings.TrimSpace(m.Recipient) == "" {
		return commandValidationError("recipient", "recipient is required", core.WalletErrorInvalidIdentity)
	}
	if m.Amount == 0 && strings.TrimSpace(m.AmountInput) == "" {
		return commandValidationError("amount", "amount must be greater than zero", core.WalletErrorInvalidAmount)
	}
	return nil
}
