package audit

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mamisoa/oph4py-sub000/pkg/datetime"
)

func TestEntry_JSONDatetimeFormat(t *testing.T) {
	e := Entry{
		TransactionID: "tx-1",
		Operation:     OpBatchCreate,
		TargetTable:   "worklist_item",
		Status:        StatusComplete,
		CreatedAt:     datetime.New(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)),
		UpdatedAt:     datetime.New(time.Date(2024, 1, 1, 9, 0, 5, 0, time.UTC)),
	}
	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(string(out), `"created_at":"2024-01-01 09:00:00"`) {
		t.Errorf("expected space-separated created_at, got %s", out)
	}
	if !strings.Contains(string(out), `"updated_at":"2024-01-01 09:00:05"`) {
		t.Errorf("expected space-separated updated_at, got %s", out)
	}
	if strings.Contains(string(out), "T09:00") {
		t.Errorf("expected no RFC3339 rendering, got %s", out)
	}
}

func TestEntry_JSONKeys(t *testing.T) {
	e := Entry{TransactionID: "tx-1", Operation: OpCreate, TargetTable: "worklist_item", Status: StatusComplete}
	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"transaction_id", "operation", "table_name", "status", "retry_count"} {
		if _, ok := m[key]; !ok {
			t.Errorf("expected json key %q", key)
		}
	}
}
