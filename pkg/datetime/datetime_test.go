package datetime

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTime_UnmarshalLayouts(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"iso", `"2024-01-01T09:00:00"`},
		{"space separated", `"2024-01-01 09:00:00"`},
		{"rfc3339", `"2024-01-01T09:00:00Z"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Time
			if err := json.Unmarshal([]byte(tt.input), &d); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Year() != 2024 || d.Month() != time.January || d.Hour() != 9 {
				t.Errorf("parsed wrong time: %v", d.Time)
			}
		})
	}
}

func TestTime_UnmarshalDateOnly(t *testing.T) {
	var d Time
	if err := json.Unmarshal([]byte(`"2024-03-15"`), &d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Day() != 15 || d.Hour() != 0 {
		t.Errorf("parsed wrong time: %v", d.Time)
	}
}

func TestTime_UnmarshalRejectsGarbage(t *testing.T) {
	var d Time
	if err := json.Unmarshal([]byte(`"not a date"`), &d); err == nil {
		t.Error("expected error for unparseable datetime")
	}
}

func TestTime_MarshalFormat(t *testing.T) {
	d := New(time.Date(2024, 1, 1, 9, 30, 15, 0, time.UTC))
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `"2024-01-01 09:30:15"` {
		t.Errorf("expected space-separated rendering, got %s", out)
	}
}

func TestTime_MarshalZeroAsNull(t *testing.T) {
	var d Time
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "null" {
		t.Errorf("expected null for zero time, got %s", out)
	}
}

func TestTime_ScanTime(t *testing.T) {
	var d Time
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := d.Scan(want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Equal(want) {
		t.Errorf("expected %v, got %v", want, d.Time)
	}
	if err := d.Scan(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.IsZero() {
		t.Errorf("expected zero time after nil scan, got %v", d.Time)
	}
}
