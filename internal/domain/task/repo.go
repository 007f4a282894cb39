package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("task not found")
	ErrAlreadyCompleted = errors.New("task already completed")
)

type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context, patientID uuid.UUID, filter Filter, limit, offset int) ([]*Task, int, error)
	// ListOpenIDs returns the ids of incomplete tasks a patient holds under
	// the given status.
	ListOpenIDs(ctx context.Context, patientID, statusID uuid.UUID) ([]uuid.UUID, error)
	// Complete marks a task done exactly once. A second attempt surfaces as
	// ErrAlreadyCompleted.
	Complete(ctx context.Context, id uuid.UUID, actorID string) (*Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
