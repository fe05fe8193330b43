package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[LoginMessage]              = (*LoginCommand)(nil)
	_ gocmd.Commander[LogoutMessage]             = (*LogoutCommand)(nil)
	_ gocmd.Commander[RestoreSessionMessage]     = (*RestoreSessionCommand)(nil)
	_ gocmd.Commander[RefreshWalletMessage]      = (*RefreshWalletCommand)(nil)
	_ gocmd.Commander[RefreshBalanceMessage]     = (*RefreshBalanceCommand)(nil)
	_ gocmd.Commander[RefreshEligibilityMessage] = (*RefreshEligibilityCommand)(nil)
	_ gocmd.Commander[MintMessage]               = (*MintCommand)(nil)
	_ gocmd.Commander[TransferMessage]           = (*TransferCommand)(nil)
)
