package query

import (
	"context"

	"github.com/goliatone/go-wallet/core"
	"github.com/goliatone/go-wallet/notify"
)

type SnapshotReader interface {
	Snapshot() core.WalletSnapshot
}

type NotificationReader interface {
	History() []notify.Event
}

type WalletSnapshotQuery struct {
	reader SnapshotReader
}

func NewWalletSnapshotQuery(reader SnapshotReader) *WalletSnapshotQuery {
	return &WalletSnapshotQuery{reader: reader}
}

func (q *WalletSnapshotQuery) Query(_ context.Context, _ WalletSnapshotMessage) (core.WalletSnapshot, error) {
	if q == nil || q.reader == nil {
		return core.WalletSnapshot{}, queryDependencyError("query: wallet snapshot reader is required")
	}
	return q.reader.Snapshot(), nil
}

type SessionQuery struct {
	reader SnapshotReader
}

func NewSessionQuery(reader SnapshotReader) *SessionQuery {
	return &SessionQuery{reader: reader}
}

func (q *SessionQuery) Query(_ context.Context, _ SessionMessage) (core.Session, error) {
	if q == nil || q.reader == nil {
		return core.Session{}, queryDependencyError("query: session reader is required")
	}
	return q.reader.Snapshot().Session, nil
}

type NotificationsQuery struct {
	reader NotificationReader
}

func NewNotificationsQuery(reader NotificationReader) *NotificationsQuery {
	return &NotificationsQuery{reader: reader}
}

func (q *NotificationsQuery) Query(_ context.Context, msg NotificationsMessage) ([]notify.Event, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: notification reader is required")
	}
	events := []notify.Event{}
	for _, event := range q.reader.History() {
		if event.Seq <= msg.AfterSeq {
			continue
		}
		if msg.Severity != "" && event.Notification.Severity != msg.Severity {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
