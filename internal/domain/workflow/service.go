package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/catalog"
	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/internal/platform/realtime"
)

// Catalog is the slice of the status catalog the coordinator consults.
type Catalog interface {
	GetStatus(ctx context.Context, id uuid.UUID) (*catalog.Status, error)
	LegalTransition(ctx context.Context, fromStatusID, toStatusID uuid.UUID) (bool, *catalog.Transition, error)
}

// TaskBoard reports which tasks still block a patient leaving a status.
type TaskBoard interface {
	ListOpenIDs(ctx context.Context, patientID, statusID uuid.UUID) ([]uuid.UUID, error)
}

type Service struct {
	repo      Repository
	catalog   Catalog
	tasks     TaskBoard
	approvals auth.ApprovalChecker
	publisher realtime.Publisher
	logger    zerolog.Logger
}

func NewService(repo Repository, cat Catalog, tasks TaskBoard, approvals auth.ApprovalChecker, publisher realtime.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		catalog:   cat,
		tasks:     tasks,
		approvals: approvals,
		publisher: publisher,
		logger:    logger.With().Str("component", "workflow").Logger(),
	}
}

func (s *Service) Get(ctx context.Context, patientID uuid.UUID) (*Record, error) {
	return s.repo.GetByPatient(ctx, patientID)
}

func (s *Service) History(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error) {
	return s.repo.ListHistory(ctx, patientID, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, statusID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.repo.ListByStatus(ctx, statusID, limit, offset)
}

// Initialize places a patient on the board at the given status with version 1
// and writes the opening history entry.
func (s *Service) Initialize(ctx context.Context, patientID, statusID uuid.UUID, actorID string, notes *string) (*Record, error) {
	return s.createRecord(ctx, patientID, statusID, actorID, nil, notes)
}

// createRecord is the version-1 path shared by Initialize and the implicit
// first transition. A patient without a record has no current status, so no
// legality, task, or approval checks apply.
func (s *Service) createRecord(ctx context.Context, patientID, statusID uuid.UUID, actorID string, assignedTo, notes *string) (*Record, error) {
	if _, err := s.catalog.GetStatus(ctx, statusID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, newTransitionError(CodeUnknownStatus, "initial status does not exist")
		}
		return nil, wrapTransitionError(CodeStorageFailure, "loading initial status", err)
	}

	rec := &Record{
		PatientID:       patientID,
		CurrentStatusID: statusID,
		AssignedTo:      assignedTo,
		Notes:           notes,
	}
	entry := &HistoryEntry{
		ToStatusID:  statusID,
		PerformedBy: actor(actorID),
		Notes:       notes,
	}
	if err := s.repo.CreateWithHistory(ctx, rec, entry); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, newTransitionError(CodeConcurrentModification, "patient already has a workflow record")
		}
		return nil, wrapTransitionError(CodeStorageFailure, "creating workflow record", err)
	}

	s.logger.Info().
		Str("patient_id", patientID.String()).
		Str("status_id", statusID.String()).
		Msg("workflow initialized")
	s.publish(rec, entry)
	return rec, nil
}

// Transition moves a patient to a new status, creating the record at version 1
// when the patient has none. All checks run against the record loaded at the
// start; the storage-level version match guarantees that of two racing
// attempts only one applies.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*Record, error) {
	rec, err := s.repo.GetByPatient(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// first transition for this patient creates the record
			if req.ExpectedVersion != 0 {
				return nil, newTransitionError(CodeConcurrentModification,
					fmt.Sprintf("expected version %d, patient has no record yet", req.ExpectedVersion))
			}
			return s.createRecord(ctx, req.PatientID, req.ToStatusID, req.ActorID, req.AssignedTo, req.Notes)
		}
		return nil, wrapTransitionError(CodeStorageFailure, "loading workflow record", err)
	}

	if req.ExpectedVersion != 0 && req.ExpectedVersion != rec.Version {
		return nil, newTransitionError(CodeConcurrentModification,
			fmt.Sprintf("expected version %d, record is at %d", req.ExpectedVersion, rec.Version))
	}

	current, err := s.catalog.GetStatus(ctx, rec.CurrentStatusID)
	if err != nil {
		return nil, wrapTransitionError(CodeStorageFailure, "loading current status", err)
	}
	if _, err := s.catalog.GetStatus(ctx, req.ToStatusID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, newTransitionError(CodeUnknownStatus, "target status does not exist")
		}
		return nil, wrapTransitionError(CodeStorageFailure, "loading target status", err)
	}

	legal, rule, err := s.catalog.LegalTransition(ctx, rec.CurrentStatusID, req.ToStatusID)
	if err != nil {
		return nil, wrapTransitionError(CodeStorageFailure, "checking transition rules", err)
	}
	if !legal {
		return nil, newTransitionError(CodeIllegalTransition,
			fmt.Sprintf("no transition from %q to the requested status", current.Name))
	}

	if current.RequireTasksComplete {
		open, err := s.tasks.ListOpenIDs(ctx, req.PatientID, rec.CurrentStatusID)
		if err != nil {
			return nil, wrapTransitionError(CodeStorageFailure, "checking open tasks", err)
		}
		if len(open) > 0 {
			te := newTransitionError(CodeOpenTasksRemain,
				fmt.Sprintf("%d open tasks block leaving %q", len(open), current.Name))
			te.BlockingTaskIDs = open
			return nil, te
		}
	}

	if rule != nil && rule.RequiresApproval && !s.approvals.CanApprove(ctx, req.ActorID) {
		return nil, newTransitionError(CodeApprovalRequired, "transition requires an approver role")
	}

	prev := rec.CurrentStatusID
	next := &Record{
		ID:               rec.ID,
		PatientID:        rec.PatientID,
		CurrentStatusID:  req.ToStatusID,
		PreviousStatusID: &prev,
		AssignedTo:       rec.AssignedTo,
		Notes:            rec.Notes,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        time.Now(),
	}
	if req.AssignedTo != nil {
		next.AssignedTo = req.AssignedTo
	}
	if req.Notes != nil {
		next.Notes = req.Notes
	}
	entry := &HistoryEntry{
		FromStatusID: &prev,
		ToStatusID:   req.ToStatusID,
		PerformedBy:  actor(req.ActorID),
		Notes:        req.Notes,
	}
	if rule != nil {
		entry.TransitionID = &rule.ID
	}

	if err := s.repo.UpdateWithHistory(ctx, next, rec.Version, entry); err != nil {
		switch {
		case errors.Is(err, ErrVersionConflict):
			return nil, newTransitionError(CodeConcurrentModification, "record changed since it was read")
		case errors.Is(err, ErrNotFound):
			return nil, err
		default:
			return nil, wrapTransitionError(CodeStorageFailure, "applying transition", err)
		}
	}

	s.logger.Info().
		Str("patient_id", req.PatientID.String()).
		Str("from_status_id", prev.String()).
		Str("to_status_id", req.ToStatusID.String()).
		Int("version", next.Version).
		Str("actor", req.ActorID).
		Msg("workflow transition applied")
	s.publish(next, entry)
	return next, nil
}

// publish runs after the transaction committed, so observers only ever see
// durable versions.
func (s *Service) publish(rec *Record, entry *HistoryEntry) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(realtime.Event{
		PatientID:        rec.PatientID,
		NewStatusID:      rec.CurrentStatusID,
		PreviousStatusID: rec.PreviousStatusID,
		HistoryEntryID:   entry.ID,
		Version:          rec.Version,
		OccurredAt:       entry.CreatedAt,
	})
}

func actor(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
