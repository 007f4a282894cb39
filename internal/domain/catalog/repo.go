package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrStatusInUse         = errors.New("status is referenced by workflow data")
	ErrDuplicateTransition = errors.New("transition already exists")
)

type StatusRepository interface {
	Create(ctx context.Context, s *Status) error
	GetByID(ctx context.Context, id uuid.UUID) (*Status, error)
	List(ctx context.Context) ([]*Status, error)
	Update(ctx context.Context, s *Status) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ReferenceCount reports how many workflow records, history entries, and
	// tasks point at the status.
	ReferenceCount(ctx context.Context, id uuid.UUID) (int, error)
}

type TransitionRepository interface {
	Create(ctx context.Context, t *Transition) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transition, error)
	List(ctx context.Context) ([]*Transition, error)
	ListFrom(ctx context.Context, fromStatusID uuid.UUID) ([]*Transition, error)
	Find(ctx context.Context, fromStatusID, toStatusID uuid.UUID) (*Transition, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
