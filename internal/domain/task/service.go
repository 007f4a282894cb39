package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "task").Logger()}
}

func (s *Service) Create(ctx context.Context, t *Task) error {
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if t.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if t.StatusID == uuid.Nil {
		return fmt.Errorf("status_id is required")
	}
	return s.repo.Create(ctx, t)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID, filter Filter, limit, offset int) ([]*Task, int, error) {
	return s.repo.List(ctx, patientID, filter, limit, offset)
}

// ListOpenIDs is the surface the transition coordinator gates on.
func (s *Service) ListOpenIDs(ctx context.Context, patientID, statusID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ListOpenIDs(ctx, patientID, statusID)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID, actorID string) (*Task, error) {
	t, err := s.repo.Complete(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("task_id", id.String()).
		Str("patient_id", t.PatientID.String()).
		Str("actor", actorID).
		Msg("task completed")
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
