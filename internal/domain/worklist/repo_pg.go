package worklist

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

type itemRepoPG struct{ pool *pgxpool.Pool }

func NewItemRepoPG(pool *pgxpool.Pool) ItemRepository { return &itemRepoPG{pool: pool} }

func (r *itemRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const itemCols = `id, patient_id, sending_app, sending_facility, receiving_app,
	receiving_facility, message_unique_id, procedure_id, provider_id, senior_id,
	requested_time, modality_dest_id, laterality, status_flag, counter, warning,
	transaction_id, created_at, updated_at`

func (r *itemRepoPG) scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.PatientID, &it.SendingApp, &it.SendingFacility, &it.ReceivingApp,
		&it.ReceivingFacility, &it.MessageUniqueID, &it.ProcedureID, &it.ProviderID, &it.SeniorID,
		&it.RequestedTime, &it.ModalityDestID, &it.Laterality, &it.StatusFlag, &it.Counter, &it.Warning,
		&it.TransactionID, &it.CreatedAt, &it.UpdatedAt)
	return &it, err
}

func (r *itemRepoPG) Insert(ctx context.Context, item *Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO worklist_item (id, patient_id, sending_app, sending_facility, receiving_app,
			receiving_facility, message_unique_id, procedure_id, provider_id, senior_id,
			requested_time, modality_dest_id, laterality, status_flag, counter, warning, transaction_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		item.ID, item.PatientID, item.SendingApp, item.SendingFacility, item.ReceivingApp,
		item.ReceivingFacility, item.MessageUniqueID, item.ProcedureID, item.ProviderID, item.SeniorID,
		item.RequestedTime, item.ModalityDestID, item.Laterality, item.StatusFlag, item.Counter,
		item.Warning, item.TransactionID)
	return err
}

func (r *itemRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	return r.scanItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemCols+` FROM worklist_item WHERE id = $1`, id))
}

func (r *itemRepoPG) ListByTransaction(ctx context.Context, transactionID string) ([]*Item, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+itemCols+` FROM worklist_item WHERE transaction_id = $1 ORDER BY created_at, id`,
		transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		it, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *itemRepoPG) List(ctx context.Context, patientID *int, transactionID string, limit, offset int) ([]*Item, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if patientID != nil {
		args = append(args, *patientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if transactionID != "" {
		args = append(args, transactionID)
		where += fmt.Sprintf(` AND transaction_id = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM worklist_item`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+itemCols+` FROM worklist_item`+where+
		` ORDER BY requested_time DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		it, err := r.scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

func (r *itemRepoPG) UpdateStatusFlag(ctx context.Context, id uuid.UUID, statusFlag string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE worklist_item SET status_flag=$2, updated_at=NOW()
		WHERE id = $1`, id, statusFlag)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
