package worklist

import (
	"encoding/json"
	"testing"

	"github.com/mamisoa/oph4py-sub000/pkg/datetime"
)

func TestItemInput_Validate(t *testing.T) {
	valid := validInput(5)
	if err := valid.Validate(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := valid
	missing.Procedure = 0
	if err := missing.Validate(0); err == nil {
		t.Error("expected error for missing procedure")
	}

	badLat := valid
	badLat.Laterality = "sideways"
	if err := badLat.Validate(0); err == nil {
		t.Error("expected error for invalid laterality")
	}

	badFlag := valid
	badFlag.StatusFlag = "waiting"
	if err := badFlag.Validate(0); err == nil {
		t.Error("expected error for invalid status_flag")
	}

	noTime := valid
	noTime.RequestedTime = datetime.Time{}
	if err := noTime.Validate(0); err == nil {
		t.Error("expected error for missing requested_time")
	}
}

func TestItem_JSONKeys(t *testing.T) {
	item := Item{PatientID: 5, ProcedureID: 1, ModalityDestID: 4}
	out, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"id_auth_user", "procedure", "modality_dest", "status_flag", "message_unique_id"} {
		if _, ok := m[key]; !ok {
			t.Errorf("expected json key %q", key)
		}
	}
}
