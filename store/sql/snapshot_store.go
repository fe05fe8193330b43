package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-wallet/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SnapshotStore keeps one persisted wallet snapshot per slot in the
// wallet_snapshots table.
type SnapshotStore struct {
	db   *bun.DB
	repo repository.Repository[*snapshotRecord]
}

func NewSnapshotStore(db *bun.DB) (*SnapshotStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*snapshotRecord](db, snapshotHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid snapshot repository wiring: %w", err)
		}
	}
	return &SnapshotStore{db: db, repo: repo}, nil
}

func (s *SnapshotStore) Load(ctx context.Context, slot string) (core.PersistedSnapshot, bool, error) {
	if s == nil || s.repo == nil {
		return core.PersistedSnapshot{}, false, fmt.Errorf("sqlstore: snapshot store is not configured")
	}
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return core.PersistedSnapshot{}, false, fmt.Errorf("sqlstore: snapshot slot is required")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("slot", "=", slot),
		repository.OrderBy("updated_at DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.PersistedSnapshot{}, false, err
	}
	if len(records) == 0 {
		return core.PersistedSnapshot{}, false, nil
	}
	snapshot, err := records[0].toDomain()
	if err != nil {
		return core.PersistedSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func (s *SnapshotStore) Save(ctx context.Context, slot string, snapshot core.PersistedSnapshot) error {
	if s == nil || s.db == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: snapshot store is not configured")
	}
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return fmt.Errorf("sqlstore: snapshot slot is required")
	}
	principalID := strings.TrimSpace(snapshot.PrincipalID)
	if principalID == "" {
		return fmt.Errorf("sqlstore: snapshot principal is required")
	}
	updatedAt := snapshot.UpdatedAt.UTC()
	if snapshot.UpdatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findSnapshotTx(ctx, tx, slot)
		if err != nil {
			return err
		}
		if record == nil {
			record = &snapshotRecord{
				ID:               uuid.NewString(),
				Slot:             slot,
				PrincipalID:      principalID,
				LastKnownBalance: formatBalance(snapshot.LastKnownBalance),
				CreatedAt:        updatedAt,
				UpdatedAt:        updatedAt,
			}
			_, createErr := s.repo.CreateTx(ctx, tx, record)
			return createErr
		}

		record.PrincipalID = principalID
		record.LastKnownBalance = formatBalance(snapshot.LastKnownBalance)
		record.UpdatedAt = updatedAt
		_, updateErr := tx.NewUpdate().
			Model(record).
			Column("principal_id", "last_known_balance", "updated_at").
			Where("id = ?", record.ID).
			Exec(ctx)
		return updateErr
	})
}

func (s *SnapshotStore) Delete(ctx context.Context, slot string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: snapshot store is not configured")
	}
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return fmt.Errorf("sqlstore: snapshot slot is required")
	}
	_, err := s.db.NewDelete().
		Model((*snapshotRecord)(nil)).
		Where("slot = ?", slot).
		Exec(ctx)
	return err
}

func findSnapshotTx(ctx context.Context, tx bun.Tx, slot string) (*snapshotRecord, error) {
	record := &snapshotRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.slot = ?", slot).
		OrderExpr("?TableAlias.updated_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
