package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Status maps to the workflow_status table. Statuses are reference data
// maintained by administrators; a status is never deleted while a workflow
// record, history entry, or task still points at it.
type Status struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	Description          *string   `db:"description" json:"description,omitempty"`
	Color                *string   `db:"color" json:"color,omitempty"`
	RequireTasksComplete bool      `db:"require_tasks_complete" json:"require_tasks_complete"`
	SortOrder            int       `db:"sort_order" json:"sort_order"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// Transition maps to the workflow_transitions table and defines one legal
// edge of the status graph. A source status with no configured edges accepts
// any target (open-graph default).
type Transition struct {
	ID               uuid.UUID `db:"id" json:"id"`
	FromStatusID     uuid.UUID `db:"from_status_id" json:"from_status_id"`
	ToStatusID       uuid.UUID `db:"to_status_id" json:"to_status_id"`
	RequiresApproval bool      `db:"requires_approval" json:"requires_approval"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
