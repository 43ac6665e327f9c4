package worklist

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mamisoa/oph4py-sub000/internal/domain/audit"
	"github.com/mamisoa/oph4py-sub000/pkg/datetime"
)

// ItemTable is the ledger target for worklist rows.
const ItemTable = "worklist_item"

// Laterality values.
const (
	LateralityBoth  = "both"
	LateralityRight = "right"
	LateralityLeft  = "left"
	LateralityNone  = "none"
)

// Status flags. The modality flow moves items requested -> processing -> done.
const (
	StatusRequested  = "requested"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

var ValidLateralities = map[string]bool{
	LateralityBoth:  true,
	LateralityRight: true,
	LateralityLeft:  true,
	LateralityNone:  true,
}

var ValidStatusFlags = map[string]bool{
	StatusRequested:  true,
	StatusProcessing: true,
	StatusDone:       true,
	StatusCancelled:  true,
}

// Item maps to the worklist_item table. JSON keys follow the upstream EMR
// payload contract (id_auth_user, modality_dest and friends).
type Item struct {
	ID                uuid.UUID     `db:"id" json:"id"`
	PatientID         int           `db:"patient_id" json:"id_auth_user"`
	SendingApp        string        `db:"sending_app" json:"sending_app"`
	SendingFacility   int           `db:"sending_facility" json:"sending_facility"`
	ReceivingApp      string        `db:"receiving_app" json:"receiving_app"`
	ReceivingFacility int           `db:"receiving_facility" json:"receiving_facility"`
	MessageUniqueID   string        `db:"message_unique_id" json:"message_unique_id"`
	ProcedureID       int           `db:"procedure_id" json:"procedure"`
	ProviderID        int           `db:"provider_id" json:"provider"`
	SeniorID          int           `db:"senior_id" json:"senior"`
	RequestedTime     datetime.Time `db:"requested_time" json:"requested_time"`
	ModalityDestID    int           `db:"modality_dest_id" json:"modality_dest"`
	Laterality        string        `db:"laterality" json:"laterality"`
	StatusFlag        string        `db:"status_flag" json:"status_flag"`
	Counter           int           `db:"counter" json:"counter"`
	Warning           *string       `db:"warning" json:"warning,omitempty"`
	TransactionID     string        `db:"transaction_id" json:"transaction_id"`
	CreatedAt         datetime.Time `db:"created_at" json:"created_at"`
	UpdatedAt         datetime.Time `db:"updated_at" json:"updated_at"`
}

// ItemInput is one item payload within a batch submission.
type ItemInput struct {
	PatientID         int           `json:"id_auth_user"`
	Procedure         int           `json:"procedure"`
	Provider          int           `json:"provider"`
	Senior            int           `json:"senior"`
	RequestedTime     datetime.Time `json:"requested_time"`
	ModalityDest      int           `json:"modality_dest"`
	Laterality        string        `json:"laterality"`
	StatusFlag        string        `json:"status_flag"`
	SendingApp        *string       `json:"sending_app,omitempty"`
	SendingFacility   *int          `json:"sending_facility,omitempty"`
	ReceivingApp      *string       `json:"receiving_app,omitempty"`
	ReceivingFacility *int          `json:"receiving_facility,omitempty"`
	MessageUniqueID   *string       `json:"message_unique_id,omitempty"`
	Counter           *int          `json:"counter,omitempty"`
	Warning           *string       `json:"warning,omitempty"`
}

// Validate checks the per-item invariants. idx is the zero-based position in
// the batch, used in error messages.
func (in *ItemInput) Validate(idx int) error {
	var missing []string
	if in.PatientID <= 0 {
		missing = append(missing, "id_auth_user")
	}
	if in.Procedure <= 0 {
		missing = append(missing, "procedure")
	}
	if in.Provider <= 0 {
		missing = append(missing, "provider")
	}
	if in.Senior <= 0 {
		missing = append(missing, "senior")
	}
	if in.RequestedTime.IsZero() {
		missing = append(missing, "requested_time")
	}
	if in.ModalityDest <= 0 {
		missing = append(missing, "modality_dest")
	}
	if in.Laterality == "" {
		missing = append(missing, "laterality")
	}
	if in.StatusFlag == "" {
		missing = append(missing, "status_flag")
	}
	if len(missing) > 0 {
		return fmt.Errorf("item %d: missing required fields: %s", idx+1, strings.Join(missing, ", "))
	}
	if !ValidLateralities[in.Laterality] {
		return fmt.Errorf("item %d: invalid laterality %q (must be both, right, left or none)", idx+1, in.Laterality)
	}
	if !ValidStatusFlags[in.StatusFlag] {
		return fmt.Errorf("item %d: invalid status_flag %q (must be requested, processing, done or cancelled)", idx+1, in.StatusFlag)
	}
	return nil
}

// BatchResult is the outcome of a successful batch submission.
type BatchResult struct {
	TransactionID string  `json:"transaction_id"`
	Items         []*Item `json:"items"`
	Success       bool    `json:"success"`
}

// TransactionStatus aggregates ledger and item state for one transaction id.
type TransactionStatus struct {
	TransactionID string         `json:"transaction_id"`
	Status        string         `json:"status"`
	ItemCount     int            `json:"item_count"`
	AuditRecords  []*audit.Entry `json:"audit_records"`
	Items         []*Item        `json:"worklist_items"`
}

// RetryResult is the outcome of one recovery pass.
type RetryResult struct {
	TransactionID  string      `json:"transaction_id"`
	RecoveredItems []uuid.UUID `json:"recovered_items"`
	FailedItems    []uuid.UUID `json:"failed_items"`
}
