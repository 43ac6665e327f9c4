package worklist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/mamisoa/oph4py-sub000/internal/domain/audit"
)

// TxRunner executes fn inside one data-store transaction, committing on nil
// and rolling back on error. Repositories reached through ctx inside fn share
// that transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Defaults are applied to item fields the caller left blank.
type Defaults struct {
	SendingApp        string
	SendingFacility   int
	ReceivingApp      string
	ReceivingFacility int
}

// Service implements the batch processor, the status reporter and the
// recovery coordinator over one item repository and the ledger.
type Service struct {
	items    ItemRepository
	ledger   *audit.Service
	tx       TxRunner
	defaults Defaults
	logger   zerolog.Logger
}

func NewService(items ItemRepository, ledger *audit.Service, tx TxRunner, defaults Defaults, logger zerolog.Logger) *Service {
	return &Service{items: items, ledger: ledger, tx: tx, defaults: defaults, logger: logger}
}

// SubmitBatch validates a batch as a whole, then inserts every item under one
// transaction and one transaction id. On any insert failure all item rows roll
// back; the ledger keeps the failure record.
func (s *Service) SubmitBatch(ctx context.Context, inputs []ItemInput, transactionID string) (*BatchResult, error) {
	if len(inputs) == 0 {
		return nil, &ValidationError{Message: "batch must contain at least one item"}
	}

	callerSupplied := transactionID != ""
	if !callerSupplied {
		transactionID = uuid.New().String()
	}

	if callerSupplied {
		entries, err := s.ledger.ListByTransaction(ctx, transactionID)
		if err != nil {
			return nil, &ServerError{Message: "failed to check transaction id", Err: err}
		}
		for _, e := range entries {
			if e.Operation == audit.OpBatchCreate {
				return nil, &ValidationError{Message: fmt.Sprintf("transaction id %s already used", transactionID)}
			}
		}
	}

	if err := validateBatch(inputs); err != nil {
		msg := err.Error()
		s.ledger.BestEffortAppend(ctx, &audit.Entry{
			TransactionID: transactionID,
			Operation:     audit.OpBatchCreate,
			TargetTable:   ItemTable,
			Status:        audit.StatusFailed,
			ErrorMessage:  &msg,
		})
		return nil, &ValidationError{Message: msg}
	}

	// The main entry anchors the whole transaction in the ledger. Written
	// outside the item transaction so it survives a rollback.
	main := &audit.Entry{
		TransactionID: transactionID,
		Operation:     audit.OpBatchCreate,
		TargetTable:   ItemTable,
		Status:        audit.StatusInProgress,
	}
	if err := s.ledger.Append(ctx, main); err != nil {
		return nil, &ServerError{Message: "failed to open transaction ledger", Err: err}
	}

	created := make([]*Item, 0, len(inputs))
	var failing *Item
	err := s.tx(ctx, func(ctx context.Context) error {
		for i := range inputs {
			item := s.buildItem(&inputs[i], transactionID)
			if err := s.items.Insert(ctx, item); err != nil {
				failing = item
				return fmt.Errorf("insert worklist item %d: %w", i+1, err)
			}
			s.ledger.BestEffortAppend(ctx, &audit.Entry{
				TransactionID: transactionID,
				Operation:     audit.OpCreate,
				TargetTable:   ItemTable,
				RecordID:      &item.ID,
				Status:        audit.StatusComplete,
			})
			created = append(created, item)
		}
		return nil
	})
	if err != nil {
		msg := err.Error()
		var recordID *uuid.UUID
		if failing != nil {
			recordID = &failing.ID
		}
		// Per-item entries rolled back with the items; record the failure.
		s.ledger.BestEffortAppend(ctx, &audit.Entry{
			TransactionID: transactionID,
			Operation:     audit.OpCreate,
			TargetTable:   ItemTable,
			RecordID:      recordID,
			Status:        audit.StatusFailed,
			ErrorMessage:  &msg,
		})
		s.ledger.BestEffortUpdate(ctx, main.ID, audit.StatusFailed, &msg)
		s.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("batch insert failed")
		return nil, &ServerError{Message: "batch insert failed", Err: err}
	}

	s.ledger.BestEffortUpdate(ctx, main.ID, audit.StatusComplete, nil)
	s.logger.Info().Str("transaction_id", transactionID).Int("items", len(created)).Msg("batch committed")
	return &BatchResult{TransactionID: transactionID, Items: created, Success: true}, nil
}

func validateBatch(inputs []ItemInput) error {
	for i := range inputs {
		if err := inputs[i].Validate(i); err != nil {
			return err
		}
	}
	first := inputs[0].PatientID
	for i := range inputs {
		if inputs[i].PatientID != first {
			return fmt.Errorf("all items must reference the same patient (item %d has id_auth_user %d, expected %d)",
				i+1, inputs[i].PatientID, first)
		}
	}
	return nil
}

func (s *Service) buildItem(in *ItemInput, transactionID string) *Item {
	item := &Item{
		PatientID:         in.PatientID,
		ProcedureID:       in.Procedure,
		ProviderID:        in.Provider,
		SeniorID:          in.Senior,
		RequestedTime:     in.RequestedTime,
		ModalityDestID:    in.ModalityDest,
		Laterality:        in.Laterality,
		StatusFlag:        in.StatusFlag,
		TransactionID:     transactionID,
		SendingApp:        s.defaults.SendingApp,
		SendingFacility:   s.defaults.SendingFacility,
		ReceivingApp:      s.defaults.ReceivingApp,
		ReceivingFacility: s.defaults.ReceivingFacility,
		MessageUniqueID:   uuid.New().String(),
		Warning:           in.Warning,
	}
	if in.SendingApp != nil {
		item.SendingApp = *in.SendingApp
	}
	if in.SendingFacility != nil {
		item.SendingFacility = *in.SendingFacility
	}
	if in.ReceivingApp != nil {
		item.ReceivingApp = *in.ReceivingApp
	}
	if in.ReceivingFacility != nil {
		item.ReceivingFacility = *in.ReceivingFacility
	}
	if in.MessageUniqueID != nil && *in.MessageUniqueID != "" {
		item.MessageUniqueID = *in.MessageUniqueID
	}
	if in.Counter != nil {
		item.Counter = *in.Counter
	}
	return item
}

// GetTransactionStatus aggregates ledger entries and items for one
// transaction id. Pure read; an unknown id yields empty sets.
func (s *Service) GetTransactionStatus(ctx context.Context, transactionID string) (*TransactionStatus, error) {
	entries, err := s.ledger.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, &ServerError{Message: "failed to read ledger", Err: err}
	}
	items, err := s.items.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, &ServerError{Message: "failed to read worklist items", Err: err}
	}

	statuses := make([]string, 0, len(entries))
	for _, e := range entries {
		statuses = append(statuses, e.Status)
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}
	if items == nil {
		items = []*Item{}
	}

	return &TransactionStatus{
		TransactionID: transactionID,
		Status:        audit.AggregateStatus(statuses),
		ItemCount:     len(items),
		AuditRecords:  entries,
		Items:         items,
	}, nil
}

// RetryTransaction re-drives failed or partial entries of one transaction.
// Per-item failures are recorded and skipped; the pass always commits.
func (s *Service) RetryTransaction(ctx context.Context, transactionID string) (*RetryResult, error) {
	entries, err := s.ledger.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, &ServerError{Message: "failed to read ledger", Err: err}
	}
	if !hasRecoverable(entries) {
		return nil, &NotFoundError{Message: fmt.Sprintf("transaction %s has nothing to recover", transactionID)}
	}

	result := &RetryResult{
		TransactionID:  transactionID,
		RecoveredItems: []uuid.UUID{},
		FailedItems:    []uuid.UUID{},
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		// Serializes concurrent recovery passes on the same transaction id.
		if err := s.ledger.LockTransaction(ctx, transactionID); err != nil {
			return fmt.Errorf("lock transaction: %w", err)
		}

		// Re-read under the lock; another pass may have finished first.
		entries, err := s.ledger.ListByTransaction(ctx, transactionID)
		if err != nil {
			return fmt.Errorf("read ledger: %w", err)
		}

		var main *audit.Entry
		for _, e := range entries {
			if e.Operation == audit.OpBatchCreate {
				main = e
				break
			}
		}

		for _, e := range entries {
			if e.Operation == audit.OpBatchCreate || e.RecordID == nil {
				continue
			}
			if e.Status != audit.StatusFailed && e.Status != audit.StatusPartial {
				continue
			}

			s.ledger.BestEffortUpdate(ctx, e.ID, audit.StatusInProgress, nil)
			s.ledger.BestEffortIncrementRetry(ctx, e.ID)

			recordID := *e.RecordID
			if err := s.recoverItem(ctx, recordID); err != nil {
				msg := err.Error()
				s.ledger.BestEffortUpdate(ctx, e.ID, audit.StatusFailed, &msg)
				result.FailedItems = append(result.FailedItems, recordID)
				continue
			}
			s.ledger.BestEffortUpdate(ctx, e.ID, audit.StatusComplete, nil)
			result.RecoveredItems = append(result.RecoveredItems, recordID)
		}

		// Leave the main entry alone when no entry was retried; a pass that
		// touched nothing must not overwrite an earlier failure signal.
		if main != nil && len(result.RecoveredItems)+len(result.FailedItems) > 0 {
			var status string
			switch {
			case len(result.FailedItems) == 0:
				status = audit.StatusComplete
			case len(result.RecoveredItems) > 0:
				status = audit.StatusPartial
			default:
				status = audit.StatusFailed
			}
			s.ledger.BestEffortUpdate(ctx, main.ID, status, nil)
			s.ledger.BestEffortIncrementRetry(ctx, main.ID)
		}
		return nil
	})
	if err != nil {
		return nil, &ServerError{Message: "recovery pass failed", Err: err}
	}

	s.logger.Info().Str("transaction_id", transactionID).
		Int("recovered", len(result.RecoveredItems)).
		Int("failed", len(result.FailedItems)).
		Msg("recovery pass finished")
	return result, nil
}

// recoverItem resets one item's status flag so the modality flow can pick it
// up again.
func (s *Service) recoverItem(ctx context.Context, id uuid.UUID) error {
	_, err := s.items.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("item not found during recovery")
	}
	if err != nil {
		return err
	}
	return s.items.UpdateStatusFlag(ctx, id, StatusRequested)
}

func hasRecoverable(entries []*audit.Entry) bool {
	for _, e := range entries {
		if e.Status == audit.StatusFailed || e.Status == audit.StatusPartial {
			return true
		}
	}
	return false
}

// -- Supporting item operations --

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Message: fmt.Sprintf("worklist item %s not found", id)}
	}
	if err != nil {
		return nil, &ServerError{Message: "failed to read worklist item", Err: err}
	}
	return item, nil
}

func (s *Service) ListItems(ctx context.Context, patientID *int, transactionID string, limit, offset int) ([]*Item, int, error) {
	items, total, err := s.items.List(ctx, patientID, transactionID, limit, offset)
	if err != nil {
		return nil, 0, &ServerError{Message: "failed to list worklist items", Err: err}
	}
	if items == nil {
		items = []*Item{}
	}
	return items, total, nil
}

// UpdateItemStatus moves one item along the modality flow and writes a
// best-effort update entry to the ledger.
func (s *Service) UpdateItemStatus(ctx context.Context, id uuid.UUID, statusFlag string) (*Item, error) {
	if !ValidStatusFlags[statusFlag] {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid status_flag %q (must be requested, processing, done or cancelled)", statusFlag)}
	}
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.items.UpdateStatusFlag(ctx, id, statusFlag); err != nil {
		return nil, &ServerError{Message: "failed to update status", Err: err}
	}
	s.ledger.BestEffortAppend(ctx, &audit.Entry{
		TransactionID: item.TransactionID,
		Operation:     audit.OpUpdate,
		TargetTable:   ItemTable,
		RecordID:      &item.ID,
		Status:        audit.StatusComplete,
	})
	item.StatusFlag = statusFlag
	return item, nil
}
