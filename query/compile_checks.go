package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-wallet/core"
	"github.com/goliatone/go-wallet/notify"
)

var (
	_ gocmd.Querier[WalletSnapshotMessage, core.WalletSnapshot] = (*WalletSnapshotQuery)(nil)
	_ gocmd.Querier[SessionMessage, core.Session]               = (*SessionQuery)(nil)
	_ gocmd.Querier[NotificationsMessage, []notify.Event]       = (*NotificationsQuery)(nil)

	_ NotificationReader = (*notify.Hub)(nil)
)
