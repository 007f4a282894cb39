package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	statuses    StatusRepository
	transitions TransitionRepository
}

func NewService(statuses StatusRepository, transitions TransitionRepository) *Service {
	return &Service{statuses: statuses, transitions: transitions}
}

// -- Status --

func (s *Service) CreateStatus(ctx context.Context, st *Status) error {
	if st.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.statuses.Create(ctx, st)
}

func (s *Service) GetStatus(ctx context.Context, id uuid.UUID) (*Status, error) {
	return s.statuses.GetByID(ctx, id)
}

func (s *Service) ListStatuses(ctx context.Context) ([]*Status, error) {
	return s.statuses.List(ctx)
}

func (s *Service) UpdateStatus(ctx context.Context, st *Status) error {
	if st.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.statuses.Update(ctx, st)
}

// DeleteStatus removes a status only when nothing references it, so that
// workflow records and the audit history never point at a missing status.
func (s *Service) DeleteStatus(ctx context.Context, id uuid.UUID) error {
	count, err := s.statuses.ReferenceCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrStatusInUse
	}
	return s.statuses.Delete(ctx, id)
}

// -- Transition --

func (s *Service) CreateTransition(ctx context.Context, t *Transition) error {
	if t.FromStatusID == t.ToStatusID {
		return fmt.Errorf("transition cannot point at its own source status")
	}
	if _, err := s.statuses.GetByID(ctx, t.FromStatusID); err != nil {
		return fmt.Errorf("from status: %w", err)
	}
	if _, err := s.statuses.GetByID(ctx, t.ToStatusID); err != nil {
		return fmt.Errorf("to status: %w", err)
	}
	if _, err := s.transitions.Find(ctx, t.FromStatusID, t.ToStatusID); err == nil {
		return ErrDuplicateTransition
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.transitions.Create(ctx, t)
}

func (s *Service) ListTransitions(ctx context.Context) ([]*Transition, error) {
	return s.transitions.List(ctx)
}

func (s *Service) ListTransitionsFrom(ctx context.Context, fromStatusID uuid.UUID) ([]*Transition, error) {
	return s.transitions.ListFrom(ctx, fromStatusID)
}

func (s *Service) DeleteTransition(ctx context.Context, id uuid.UUID) error {
	return s.transitions.Delete(ctx, id)
}

// LegalTransition reports whether moving from one status to another is
// permitted and, when an explicit edge matched, returns it so callers can
// inspect its approval requirement. A source status with no configured edges
// accepts any target.
func (s *Service) LegalTransition(ctx context.Context, fromStatusID, toStatusID uuid.UUID) (bool, *Transition, error) {
	edges, err := s.transitions.ListFrom(ctx, fromStatusID)
	if err != nil {
		return false, nil, err
	}
	if len(edges) == 0 {
		return true, nil, nil
	}
	for _, e := range edges {
		if e.ToStatusID == toStatusID {
			return true, e, nil
		}
	}
	return false, nil, nil
}

// IsLegalTransition is LegalTransition without the matched edge.
func (s *Service) IsLegalTransition(ctx context.Context, fromStatusID, toStatusID uuid.UUID) (bool, error) {
	ok, _, err := s.LegalTransition(ctx, fromStatusID, toStatusID)
	return ok, err
}
