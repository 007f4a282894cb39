package task

import (
	"time"

	"github.com/google/uuid"
)

// Task maps to the workflow_tasks table. A task belongs to a patient and is
// pinned to the status it was raised under; open tasks on a gating status
// block that patient's next transition. Completion is one way.
type Task struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	StatusID    uuid.UUID  `db:"status_id" json:"status_id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	AssignedTo  *string    `db:"assigned_to" json:"assigned_to,omitempty"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy *string    `db:"completed_by" json:"completed_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Filter narrows task listings.
type Filter struct {
	StatusID  *uuid.UUID
	Completed *bool
}
