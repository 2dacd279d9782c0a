package sessions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is written as RFC 3339 and also accepts the naive ISO-8601 form
// ("2024-05-01T10:00:00.123456") found in mapping files written by older launchers.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func ts(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// activity returns lastActive when set, otherwise createdAt
func activity(lastActive, createdAt Timestamp) time.Time {
	if !lastActive.IsZero() {
		return lastActive.Time
	}
	return createdAt.Time
}
