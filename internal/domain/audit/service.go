package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mamisoa/oph4py-sub000/internal/platform/db"
)

// Service wraps the ledger repository with validation and the best-effort
// write paths used on rollback, where a second failure must not mask the
// original error.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Append(ctx context.Context, e *Entry) error {
	if e.TransactionID == "" {
		return fmt.Errorf("transaction_id is required")
	}
	if !ValidOperations[e.Operation] {
		return fmt.Errorf("invalid operation: %s", e.Operation)
	}
	if e.Status == "" {
		e.Status = StatusInProgress
	}
	if !ValidStatuses[e.Status] {
		return fmt.Errorf("invalid status: %s", e.Status)
	}
	if e.TargetTable == "" {
		return fmt.Errorf("target_table is required")
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error {
	if !ValidStatuses[status] {
		return fmt.Errorf("invalid status: %s", status)
	}
	return s.repo.UpdateStatus(ctx, id, status, errMsg)
}

func (s *Service) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	return s.repo.IncrementRetry(ctx, id)
}

func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByTransaction(ctx context.Context, transactionID string) ([]*Entry, error) {
	return s.repo.ListByTransaction(ctx, transactionID)
}

func (s *Service) List(ctx context.Context, transactionID string, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, transactionID, limit, offset)
}

func (s *Service) LockTransaction(ctx context.Context, transactionID string) error {
	return s.repo.LockTransaction(ctx, transactionID)
}

// BestEffortAppend writes a ledger entry outside the failing path. A write
// failure is logged and swallowed so the caller's original error survives.
func (s *Service) BestEffortAppend(ctx context.Context, e *Entry) {
	err := s.guarded(ctx, func(ctx context.Context) error {
		return s.Append(ctx, e)
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("transaction_id", e.TransactionID).
			Str("operation", e.Operation).
			Msg("ledger append failed")
	}
}

// BestEffortUpdate updates a ledger entry status, logging instead of
// returning on failure.
func (s *Service) BestEffortUpdate(ctx context.Context, id uuid.UUID, status string, errMsg *string) {
	err := s.guarded(ctx, func(ctx context.Context) error {
		return s.UpdateStatus(ctx, id, status, errMsg)
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("entry_id", id.String()).
			Str("status", status).
			Msg("ledger status update failed")
	}
}

// BestEffortIncrementRetry bumps a retry counter, logging instead of
// returning on failure.
func (s *Service) BestEffortIncrementRetry(ctx context.Context, id uuid.UUID) {
	err := s.guarded(ctx, func(ctx context.Context) error {
		return s.IncrementRetry(ctx, id)
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("entry_id", id.String()).
			Msg("retry count update failed")
	}
}

// guarded runs a best-effort ledger write. When the context carries an open
// transaction the write goes through a savepoint, so a failed statement
// rolls back to the savepoint instead of aborting the whole transaction and
// the item statements that follow.
func (s *Service) guarded(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := db.TxFromContext(ctx)
	if tx == nil {
		return fn(ctx)
	}
	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("open savepoint: %w", err)
	}
	if err := fn(db.ContextWithTx(ctx, sp)); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}
