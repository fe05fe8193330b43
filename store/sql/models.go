package sqlstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goliatone/go-wallet/core"
	"github.com/uptrace/bun"
)

type snapshotRecord struct {
	bun.BaseModel `bun:"table:wallet_snapshots,alias:ws"`

	ID               string    `bun:"id,pk"`
	Slot             string    `bun:"slot,notnull"`
	PrincipalID      string    `bun:"principal_id,notnull"`
	LastKnownBalance string    `bun:"last_known_balance,notnull"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Balances are stored as decimal text so the full uint64 range survives
// both dialects.
func formatBalance(balance uint64) string {
	return strconv.FormatUint(balance, 10)
}

func (r *snapshotRecord) toDomain() (core.PersistedSnapshot, error) {
	if r == nil {
		return core.PersistedSnapshot{}, nil
	}
	balance, err := strconv.ParseUint(r.LastKnownBalance, 10, 64)
	if err != nil {
		return core.PersistedSnapshot{}, fmt.Errorf("sqlstore: snapshot %s has invalid balance %q: %w", r.Slot, r.LastKnownBalance, err)
	}
	return core.PersistedSnapshot{
		PrincipalID:      r.PrincipalID,
		LastKnownBalance: balance,
		UpdatedAt:        r.UpdatedAt.UTC(),
	}, nil
}
