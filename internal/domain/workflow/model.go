package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Record maps to the patient_workflow table. Each patient has at most one
// record, and Version increases by one on every applied transition.
type Record struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	CurrentStatusID  uuid.UUID  `db:"current_status_id" json:"current_status_id"`
	PreviousStatusID *uuid.UUID `db:"previous_status_id" json:"previous_status_id,omitempty"`
	AssignedTo       *string    `db:"assigned_to" json:"assigned_to,omitempty"`
	Notes            *string    `db:"notes" json:"notes,omitempty"`
	Version          int        `db:"version" json:"version"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// HistoryEntry maps to the workflow_history table. Entries are append-only;
// the pair (patient_id, version) is unique so the audit trail and the record
// can never disagree about what happened at a given version.
type HistoryEntry struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	FromStatusID *uuid.UUID `db:"from_status_id" json:"from_status_id,omitempty"`
	ToStatusID   uuid.UUID  `db:"to_status_id" json:"to_status_id"`
	TransitionID *uuid.UUID `db:"transition_id" json:"transition_id,omitempty"`
	PerformedBy  *string    `db:"performed_by" json:"performed_by,omitempty"`
	Notes        *string    `db:"notes" json:"notes,omitempty"`
	Version      int        `db:"version" json:"version"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// TransitionRequest carries one attempt to move a patient to a new status.
// ExpectedVersion of zero skips the caller-side staleness check; the
// storage-level version match still applies.
type TransitionRequest struct {
	PatientID       uuid.UUID `json:"-"`
	ToStatusID      uuid.UUID `json:"to_status_id"`
	ExpectedVersion int       `json:"expected_version"`
	AssignedTo      *string   `json:"assigned_to,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	ActorID         string    `json:"-"`
}
