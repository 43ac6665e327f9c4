// Package datetime carries the wire format for timestamps: every datetime in
// a JSON response renders "YYYY-MM-DD HH:MM:SS", never a raw timestamp.
package datetime

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Layout is the rendering format for all response datetimes.
const Layout = "2006-01-02 15:04:05"

// inputLayouts are the formats accepted on the wire.
var inputLayouts = []string{
	"2006-01-02T15:04:05",
	Layout,
	time.RFC3339,
	"2006-01-02",
}

// Time renders as "YYYY-MM-DD HH:MM:SS" in JSON and accepts both ISO and
// space-separated layouts on input.
type Time struct {
	time.Time
}

func New(t time.Time) Time { return Time{Time: t} }

func (d Time) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(Layout) + `"`), nil
}

func (d *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("unsupported datetime format: %q", s)
}

// Scan implements sql.Scanner so pgx can populate the wrapper directly.
func (d *Time) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = v
		return nil
	case nil:
		d.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into datetime.Time", src)
}

// Value implements driver.Valuer.
func (d Time) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}
