package audit

import (
	"github.com/google/uuid"

	"github.com/mamisoa/oph4py-sub000/pkg/datetime"
)

// Ledger operations.
const (
	OpBatchCreate = "batch_create"
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
)

// Ledger statuses.
const (
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
	StatusPartial    = "partial"
)

// ValidOperations lists the operations a ledger entry may carry.
var ValidOperations = map[string]bool{
	OpBatchCreate: true,
	OpCreate:      true,
	OpUpdate:      true,
	OpDelete:      true,
}

// ValidStatuses lists the statuses a ledger entry may carry.
var ValidStatuses = map[string]bool{
	StatusInProgress: true,
	StatusComplete:   true,
	StatusFailed:     true,
	StatusPartial:    true,
}

// Entry maps to the audit_entry table. One row per tracked operation within a
// transaction; the batch_create row summarizes the whole batch.
type Entry struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	TransactionID string        `db:"transaction_id" json:"transaction_id"`
	Operation     string        `db:"operation" json:"operation"`
	TargetTable   string        `db:"target_table" json:"table_name"`
	RecordID      *uuid.UUID    `db:"record_id" json:"record_id,omitempty"`
	Status        string        `db:"status" json:"status"`
	ErrorMessage  *string       `db:"error_message" json:"error_message,omitempty"`
	RetryCount    int           `db:"retry_count" json:"retry_count"`
	CreatedAt     datetime.Time `db:"created_at" json:"created_at"`
	UpdatedAt     datetime.Time `db:"updated_at" json:"updated_at"`
}

// StatusRank orders ledger statuses by severity for transaction-level rollups.
// Higher means worse.
func StatusRank(status string) int {
	switch status {
	case StatusFailed:
		return 3
	case StatusInProgress:
		return 2
	case StatusPartial:
		return 1
	default:
		return 0
	}
}

// AggregateStatus rolls a set of entry statuses up to a single transaction
// status. An empty set means nothing is pending, which reads as complete.
func AggregateStatus(statuses []string) string {
	agg := StatusComplete
	for _, st := range statuses {
		if StatusRank(st) > StatusRank(agg) {
			agg = st
		}
	}
	return agg
}
