package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mamisoa/oph4py-sub000/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const entryCols = `id, transaction_id, operation, target_table, record_id,
	status, error_message, retry_count, created_at, updated_at`

func (r *repoPG) scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.TransactionID, &e.Operation, &e.TargetTable, &e.RecordID,
		&e.Status, &e.ErrorMessage, &e.RetryCount, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *repoPG) Append(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_entry (id, transaction_id, operation, target_table, record_id,
			status, error_message, retry_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.TransactionID, e.Operation, e.TargetTable, e.RecordID,
		e.Status, e.ErrorMessage, e.RetryCount)
	return err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE audit_entry SET status=$2, error_message=$3, updated_at=NOW()
		WHERE id = $1`,
		id, status, errMsg)
	return err
}

func (r *repoPG) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE audit_entry SET retry_count = retry_count + 1, updated_at=NOW()
		WHERE id = $1`, id)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return r.scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM audit_entry WHERE id = $1`, id))
}

func (r *repoPG) ListByTransaction(ctx context.Context, transactionID string) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entryCols+` FROM audit_entry WHERE transaction_id = $1 ORDER BY created_at, id`,
		transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*Entry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repoPG) List(ctx context.Context, transactionID string, limit, offset int) ([]*Entry, int, error) {
	where := ``
	args := []interface{}{}
	if transactionID != "" {
		where = ` WHERE transaction_id = $1`
		args = append(args, transactionID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_entry`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+entryCols+` FROM audit_entry`+where+
		` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var entries []*Entry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// LockTransaction takes a transaction-scoped advisory lock keyed on the
// transaction id. Released automatically at commit or rollback.
func (r *repoPG) LockTransaction(ctx context.Context, transactionID string) error {
	_, err := r.conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, transactionID)
	return err
}
