package storage

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDateMarshalsTaggedWrapper(t *testing.T) {
	d := NewDate(time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC))

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"__type":"Date","value":"2024-01-15T09:30:00.000Z"}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestDateRoundTripInsideRecord(t *testing.T) {
	in := DailyWatchTime{
		Date:                "2024-01-15",
		TotalMinutesWatched: 42.5,
		LastUpdated:         NewDate(time.Date(2024, 1, 15, 20, 0, 0, 123000000, time.UTC)),
	}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `"__type":"Date"`) {
		t.Fatalf("expected tagged date in %s", data)
	}

	var out DailyWatchTime
	if err := Decode(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.LastUpdated.Equal(in.LastUpdated.Time) {
		t.Fatalf("lastUpdated mismatch: got %v want %v", out.LastUpdated, in.LastUpdated)
	}
	if out.TotalMinutesWatched != in.TotalMinutesWatched || out.Date != in.Date {
		t.Fatalf("record mismatch: %+v", out)
	}
}

func TestDateRejectsUntaggedValues(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"plain string", `"2024-01-15T09:30:00.000Z"`},
		{"wrong tag", `{"__type":"Map","value":"2024-01-15T09:30:00.000Z"}`},
		{"bad timestamp", `{"__type":"Date","value":"yesterday"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			if err := json.Unmarshal([]byte(tt.raw), &d); err == nil {
				t.Fatalf("expected error for %s", tt.raw)
			}
		})
	}
}

func TestDateNull(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`null`), &d); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !d.IsZero() {
		t.Fatalf("expected zero date, got %v", d)
	}

	data, err := json.Marshal(Date{})
	if err != nil {
		t.Fatalf("marshal zero: %v", err)
	}
	if string(data) != "null" {
		t.Fatalf("expected null, got %s", data)
	}
}
