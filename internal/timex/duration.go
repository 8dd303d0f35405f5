// Package timex provides a JSON-friendly time.Duration wrapper used by
// config overlays, so config files can write "60s" or "168h" instead of
// raw nanosecond integers. Referenced by the teacher's server/config/json.go
// (as internal/timex) but absent from the retrieval pack; rebuilt here in
// goose/encoding-json's own documented shape.
package timex

import (
	"encoding/json"
	"errors"
	"time"
)

// Duration wraps time.Duration so it can be unmarshalled from either a
// Go duration string ("1h30m") or a plain integer number of nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	case float64:
		d.Duration = time.Duration(v)
		return nil
	default:
		return errors.New("timex: invalid duration value")
	}
}
