package workflow

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists workflow records and their history. Writes that touch
// both the record and the history table are atomic: either the new version
// and its history entry both land, or neither does.
type Repository interface {
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*Record, error)
	// CreateWithHistory inserts a fresh version-1 record together with its
	// initial history entry. A record already present for the patient
	// surfaces as ErrVersionConflict.
	CreateWithHistory(ctx context.Context, rec *Record, entry *HistoryEntry) error
	// UpdateWithHistory applies rec only when the stored row still holds
	// expectedVersion, appending entry in the same transaction. A version
	// mismatch surfaces as ErrVersionConflict, a missing row as ErrNotFound.
	UpdateWithHistory(ctx context.Context, rec *Record, expectedVersion int, entry *HistoryEntry) error
	ListHistory(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error)
	ListByStatus(ctx context.Context, statusID uuid.UUID, limit, offset int) ([]*Record, int, error)
}
