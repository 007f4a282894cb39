package workflow

import (
	"context"
	"errors"
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

const recordCols = `id, patient_id, current_status_id, previous_status_id, assigned_to, notes, version, created_at, updated_at`

const historyCols = `id, patient_id, from_status_id, to_status_id, transition_id, performed_by, notes, version, created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.CurrentStatusID, &rec.PreviousStatusID,
		&rec.AssignedTo, &rec.Notes, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &rec, err
}

func scanHistory(row pgx.Row) (*HistoryEntry, error) {
	var h HistoryEntry
	err := row.Scan(&h.ID, &h.PatientID, &h.FromStatusID, &h.ToStatusID,
		&h.TransitionID, &h.PerformedBy, &h.Notes, &h.Version, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &h, err
}

func (r *repoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*Record, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM patient_workflow WHERE patient_id = $1`, patientID))
}

func (r *repoPG) CreateWithHistory(ctx context.Context, rec *Record, entry *HistoryEntry) error {
	return r.inTx(ctx, func(ctx context.Context, q queryable) error {
		rec.ID = uuid.New()
		rec.Version = 1
		_, err := q.Exec(ctx, `
			INSERT INTO patient_workflow (id, patient_id, current_status_id, previous_status_id, assigned_to, notes, version)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			rec.ID, rec.PatientID, rec.CurrentStatusID, rec.PreviousStatusID,
			rec.AssignedTo, rec.Notes, rec.Version)
		if isUniqueViolation(err) {
			return ErrVersionConflict
		}
		if err != nil {
			return err
		}
		return r.insertHistory(ctx, q, rec, entry)
	})
}

func (r *repoPG) UpdateWithHistory(ctx context.Context, rec *Record, expectedVersion int, entry *HistoryEntry) error {
	return r.inTx(ctx, func(ctx context.Context, q queryable) error {
		rec.Version = expectedVersion + 1
		tag, err := q.Exec(ctx, `
			UPDATE patient_workflow
			SET current_status_id = $1, previous_status_id = $2, assigned_to = $3,
			    notes = $4, version = $5, updated_at = now()
			WHERE patient_id = $6 AND version = $7`,
			rec.CurrentStatusID, rec.PreviousStatusID, rec.AssignedTo,
			rec.Notes, rec.Version, rec.PatientID, expectedVersion)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := q.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM patient_workflow WHERE patient_id = $1)`,
				rec.PatientID).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return ErrVersionConflict
			}
			return ErrNotFound
		}
		return r.insertHistory(ctx, q, rec, entry)
	})
}

func (r *repoPG) insertHistory(ctx context.Context, q queryable, rec *Record, entry *HistoryEntry) error {
	entry.ID = uuid.New()
	entry.PatientID = rec.PatientID
	entry.Version = rec.Version
	entry.CreatedAt = time.Now()
	_, err := q.Exec(ctx, `
		INSERT INTO workflow_history (id, patient_id, from_status_id, to_status_id, transition_id, performed_by, notes, version, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		entry.ID, entry.PatientID, entry.FromStatusID, entry.ToStatusID,
		entry.TransitionID, entry.PerformedBy, entry.Notes, entry.Version, entry.CreatedAt)
	if isUniqueViolation(err) {
		return ErrVersionConflict
	}
	return err
}

// inTx runs fn inside the transaction already carried by ctx, or opens and
// commits its own when there is none.
func (r *repoPG) inTx(ctx context.Context, fn func(context.Context, queryable) error) error {
	if tx := db.TxFromContext(ctx); tx != nil {
		return fn(ctx, tx)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *repoPG) ListHistory(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM workflow_history WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+historyCols+` FROM workflow_history
		 WHERE patient_id = $1 ORDER BY version DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*HistoryEntry
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListByStatus(ctx context.Context, statusID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_workflow WHERE current_status_id = $1`, statusID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM patient_workflow
		 WHERE current_status_id = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`,
		statusID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}
