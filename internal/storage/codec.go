package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	dateTypeTag = "Date"
	isoLayout   = "2006-01-02T15:04:05.000Z07:00"
)

// Date is a timestamp persisted as {"__type":"Date","value":"<ISO-8601>"} so
// it stays distinguishable from plain strings after a round trip.
type Date struct {
	time.Time
}

type taggedDate struct {
	Type  string `json:"__type"`
	Value string `json:"value"`
}

// NewDate wraps t.
func NewDate(t time.Time) Date {
	return Date{Time: t}
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(taggedDate{
		Type:  dateTypeTag,
		Value: d.UTC().Format(isoLayout),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Only the tagged form is accepted.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		d.Time = time.Time{}
		return nil
	}

	var tagged taggedDate
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("decode date: %w", err)
	}
	if tagged.Type != dateTypeTag {
		return fmt.Errorf("decode date: unexpected type tag %q", tagged.Type)
	}

	t, err := time.Parse(time.RFC3339Nano, tagged.Value)
	if err != nil {
		return fmt.Errorf("decode date: %w", err)
	}
	d.Time = t
	return nil
}

// Encode marshals a record for storage.
func Encode(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return data, nil
}

// Decode unmarshals a stored record.
func Decode(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
