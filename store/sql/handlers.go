package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func snapshotHandlers() repository.ModelHandlers[*snapshotRecord] {
	return repository.ModelHandlers[*snapshotRecord]{
		NewRecord: func() *snapshotRecord {
			return &snapshotRecord{}
		},
		GetID: func(record *snapshotRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *snapshotRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "slot"
		},
		GetIdentifierValue: func(record *snapshotRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.Slot)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
