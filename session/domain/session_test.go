package domain

import (
	"testing"
	"time"
)

func TestRecord_Terminal(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusActive, false},
		{StatusInvalidated, true},
		{StatusExpired, true},
	}
	for _, tc := range cases {
		if got := (Record{Status: tc.status}).Terminal(); got != tc.want {
			t.Fatalf("Terminal() for %s: expected %v, got %v", tc.status, tc.want, got)
		}
	}
}

func TestRecord_ValidAt(t *testing.T) {
	created := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	ttl := 15 * time.Minute
	rec := Record{Status: StatusActive, CreatedAt: created}

	if !rec.ValidAt(created.Add(ttl), ttl) {
		t.Fatalf("expected valid exactly at the TTL boundary")
	}
	if rec.ValidAt(created.Add(ttl+time.Second), ttl) {
		t.Fatalf("expected invalid past the TTL, even while still marked active")
	}

	rec.Status = StatusInvalidated
	if rec.ValidAt(created, ttl) {
		t.Fatalf("terminal session must never be valid")
	}
}
