package wallet

import (
	"fmt"

	walletcommand "github.com/goliatone/go-wallet/command"
	walletquery "github.com/goliatone/go-wallet/query"
)

type CommandQueryService interface {
	walletcommand.WalletService
	walletquery.SnapshotReader
}

type Commands struct {
	Login              *walletcommand.LoginCommand
	Logout             *walletcommand.LogoutCommand
	RestoreSession     *walletcommand.RestoreSessionCommand
	Refresh            *walletcommand.RefreshWalletCommand
	RefreshBalance     *walletcommand.RefreshBalanceCommand
	RefreshEligibility *walletcommand.RefreshEligibilityCommand
	Mint               *walletcommand.MintCommand
	Transfer           *walletcommand.TransferCommand
}

type Queries struct {
	Snapshot      *walletquery.WalletSnapshotQuery
	Session       *walletquery.SessionQuery
	Notifications *walletquery.NotificationsQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	notificationReader walletquery.NotificationReader
}

func WithNotificationReader(reader walletquery.NotificationReader) FacadeOption {
	return func(options *facadeOptions) {
		options.notificationReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("wallet: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.notificationReader
	if reader == nil {
		reader, _ = service.(walletquery.NotificationReader)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Login:              walletcommand.NewLoginCommand(service),
		Logout:             walletcommand.NewLogoutCommand(service),
		RestoreSession:     walletcommand.NewRestoreSessionCommand(service),
		Refresh:            walletcommand.NewRefreshWalletCommand(service),
		RefreshBalance:     walletcommand.NewRefreshBalanceCommand(service),
		RefreshEligibility: walletcommand.NewRefreshEligibilityCommand(service),
		Mint:               walletcommand.NewMintCommand(service),
		Transfer:           walletcommand.NewTransferCommand(service),
	}
	facade.queries = Queries{
		Snapshot:      walletquery.NewWalletSnapshotQuery(service),
		Session:       walletquery.NewSessionQuery(service),
		Notifications: walletquery.NewNotificationsQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
