package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists ledger entries.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error
	IncrementRetry(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]*Entry, error)
	List(ctx context.Context, transactionID string, limit, offset int) ([]*Entry, int, error)
	// LockTransaction serializes concurrent work on the same transaction id
	// for the duration of the surrounding database transaction.
	LockTransaction(ctx context.Context, transactionID string) error
}
