package query

import "github.com/goliatone/go-wallet/core"

const (
	TypeWalletSnapshot = "wallet.query.snapshot"
	TypeSession        = "wallet.query.session"
	TypeNotifications  = "wallet.query.notifications"
)

type WalletSnapshotMessage struct{}

func (WalletSnapshotMessage) Type() string { return TypeWalletSnapshot }

func (WalletSnapshotMessage) Validate() error { return nil }

type SessionMessage struct{}

func (SessionMessage) Type() string { return TypeSession }

func (SessionMessage) Validate() error { return nil }

// NotificationsMessage asks for retained notifications newer than AfterSeq.
type NotificationsMessage struct {
	AfterSeq int64
	Severity core.Severity
}

func (NotificationsMessage) Type() string { return TypeNotifications }

func (m NotificationsMessage) Validate() error {
	if m.AfterSeq < 0 {
		return queryValidationError("after_seq", "after_seq must be >= 0")
	}
	switch m.Severity {
	case "", core.SeverityInfo, core.SeveritySuccess, core.SeverityError:
		return nil
	default:
		return queryValidationError("severity", "severity must be info, success or error")
	}
}
