package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// -- StatusRepository --

type statusRepoPG struct{ pool *pgxpool.Pool }

func NewStatusRepoPG(pool *pgxpool.Pool) StatusRepository {
	return &statusRepoPG{pool: pool}
}

func (r *statusRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const statusCols = `id, name, description, color, require_tasks_complete, sort_order, created_at, updated_at`

func (r *statusRepoPG) scanStatus(row pgx.Row) (*Status, error) {
	var s Status
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Color,
		&s.RequireTasksComplete, &s.SortOrder, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *statusRepoPG) Create(ctx context.Context, s *Status) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO workflow_status (id, name, description, color, require_tasks_complete, sort_order)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.Name, s.Description, s.Color, s.RequireTasksComplete, s.SortOrder)
	return err
}

func (r *statusRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Status, error) {
	return r.scanStatus(r.conn(ctx).QueryRow(ctx,
		`SELECT `+statusCols+` FROM workflow_status WHERE id = $1`, id))
}

func (r *statusRepoPG) List(ctx context.Context) ([]*Status, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+statusCols+` FROM workflow_status ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Status
	for rows.Next() {
		s, err := r.scanStatus(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *statusRepoPG) Update(ctx context.Context, s *Status) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE workflow_status SET name=$2, description=$3, color=$4,
			require_tasks_complete=$5, sort_order=$6, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Description, s.Color, s.RequireTasksComplete, s.SortOrder)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *statusRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM workflow_status WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *statusRepoPG) ReferenceCount(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patient_workflow WHERE current_status_id = $1 OR previous_status_id = $1) +
			(SELECT COUNT(*) FROM workflow_history WHERE from_status_id = $1 OR to_status_id = $1) +
			(SELECT COUNT(*) FROM workflow_tasks WHERE status_id = $1)`,
		id).Scan(&count)
	return count, err
}

// -- TransitionRepository --

type transitionRepoPG struct{ pool *pgxpool.Pool }

func NewTransitionRepoPG(pool *pgxpool.Pool) TransitionRepository {
	return &transitionRepoPG{pool: pool}
}

func (r *transitionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const transitionCols = `id, from_status_id, to_status_id, requires_approval, created_at`

func (r *transitionRepoPG) scanTransition(row pgx.Row) (*Transition, error) {
	var t Transition
	err := row.Scan(&t.ID, &t.FromStatusID, &t.ToStatusID, &t.RequiresApproval, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}

func (r *transitionRepoPG) Create(ctx context.Context, t *Transition) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO workflow_transitions (id, from_status_id, to_status_id, requires_approval)
		VALUES ($1,$2,$3,$4)`,
		t.ID, t.FromStatusID, t.ToStatusID, t.RequiresApproval)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateTransition
	}
	return err
}

func (r *transitionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Transition, error) {
	return r.scanTransition(r.conn(ctx).QueryRow(ctx,
		`SELECT `+transitionCols+` FROM workflow_transitions WHERE id = $1`, id))
}

func (r *transitionRepoPG) List(ctx context.Context) ([]*Transition, error) {
	return r.queryTransitions(ctx,
		`SELECT `+transitionCols+` FROM workflow_transitions ORDER BY created_at`)
}

func (r *transitionRepoPG) ListFrom(ctx context.Context, fromStatusID uuid.UUID) ([]*Transition, error) {
	return r.queryTransitions(ctx,
		`SELECT `+transitionCols+` FROM workflow_transitions WHERE from_status_id = $1 ORDER BY created_at`,
		fromStatusID)
}

func (r *transitionRepoPG) queryTransitions(ctx context.Context, sql string, args ...interface{}) ([]*Transition, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Transition
	for rows.Next() {
		t, err := r.scanTransition(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *transitionRepoPG) Find(ctx context.Context, fromStatusID, toStatusID uuid.UUID) (*Transition, error) {
	return r.scanTransition(r.conn(ctx).QueryRow(ctx,
		`SELECT `+transitionCols+` FROM workflow_transitions WHERE from_status_id = $1 AND to_status_id = $2`,
		fromStatusID, toStatusID))
}

func (r *transitionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM workflow_transitions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
