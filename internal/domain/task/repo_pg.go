package task

import (
	"context"
	"errors"
	"fmt"
	"time"

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const taskCols = `id, patient_id, status_id, title, description, due_date, assigned_to, completed, completed_at, completed_by, created_at, updated_at`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.PatientID, &t.StatusID, &t.Title, &t.Description,
		&t.DueDate, &t.AssignedTo, &t.Completed, &t.CompletedAt, &t.CompletedBy,
		&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Task) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO workflow_tasks (id, patient_id, status_id, title, description, due_date, assigned_to)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.PatientID, t.StatusID, t.Title, t.Description, t.DueDate, t.AssignedTo)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	return scanTask(r.conn(ctx).QueryRow(ctx,
		`SELECT `+taskCols+` FROM workflow_tasks WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, patientID uuid.UUID, filter Filter, limit, offset int) ([]*Task, int, error) {
	where := `WHERE patient_id = $1`
	args := []interface{}{patientID}
	if filter.StatusID != nil {
		args = append(args, *filter.StatusID)
		where += fmt.Sprintf(` AND status_id = $%d`, len(args))
	}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		where += fmt.Sprintf(` AND completed = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM workflow_tasks `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+taskCols+` FROM workflow_tasks `+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListOpenIDs(ctx context.Context, patientID, statusID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id FROM workflow_tasks
		WHERE patient_id = $1 AND status_id = $2 AND NOT completed
		ORDER BY created_at`, patientID, statusID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) Complete(ctx context.Context, id uuid.UUID, actorID string) (*Task, error) {
	// conditional update so two racing completions cannot both win
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE workflow_tasks
		SET completed = TRUE, completed_at = $1, completed_by = $2, updated_at = $1
		WHERE id = $3 AND NOT completed
		RETURNING `+taskCols,
		time.Now(), actorID, id)
	t, err := scanTask(row)
	if errors.Is(err, ErrNotFound) {
		var completed bool
		if scanErr := r.conn(ctx).QueryRow(ctx,
			`SELECT completed FROM workflow_tasks WHERE id = $1`, id).Scan(&completed); scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, scanErr
		}
		if completed {
			return nil, ErrAlreadyCompleted
		}
		return nil, ErrNotFound
	}
	return t, err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM workflow_tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
