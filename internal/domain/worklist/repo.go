package worklist

import (
	"context"

	"github.com/google/uuid"
)

// ItemRepository persists worklist items.
type ItemRepository interface {
	Insert(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]*Item, error)
	List(ctx context.Context, patientID *int, transactionID string, limit, offset int) ([]*Item, int, error)
	UpdateStatusFlag(ctx context.Context, id uuid.UUID, statusFlag string) error
}
