package session

import (
	"testing"
	"time"
)

func TestNextCutoffBeforeHour(t *testing.T) {
	now := time.Date(2024, 1, 1, 19, 59, 0, 0, time.UTC)
	got := NextCutoff(now, 20)
	want := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextCutoff(%v, 20) = %v, want %v", now, got, want)
	}
}

func TestNextCutoffAfterHour(t *testing.T) {
	now := time.Date(2024, 1, 1, 20, 1, 0, 0, time.UTC)
	got := NextCutoff(now, 20)
	want := time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextCutoff(%v, 20) = %v, want %v", now, got, want)
	}
}

func TestNextCutoffExactlyAtHour(t *testing.T) {
	// "Strictly before" rule: at the cutoff instant the next cutoff is
	// tomorrow.
	now := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	got := NextCutoff(now, 20)
	want := time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextCutoff(%v, 20) = %v, want %v", now, got, want)
	}
}

func TestNextCutoffKeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2024, 6, 15, 8, 30, 0, 0, loc)
	got := NextCutoff(now, 20)
	if got.Location() != loc {
		t.Fatalf("expected cutoff in %v, got %v", loc, got.Location())
	}
	if got.Hour() != 20 || got.Day() != 15 {
		t.Fatalf("unexpected cutoff %v", got)
	}
}
