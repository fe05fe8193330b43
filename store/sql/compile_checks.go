package sqlstore

import "github.com/goliatone/go-wallet/core"

var (
	_ core.SnapshotStore = (*SnapshotStore)(nil)
	_ core.SnapshotStore = (*CachedSnapshotStore)(nil)
)
