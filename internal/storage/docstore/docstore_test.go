package docstore

import (
	"testing"
	"time"
)

func TestDayKeyUsesUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC-5", -5*60*60)
	at := time.Date(2026, 3, 1, 21, 30, 0, 0, loc)
	if got := DayKey(at); got != "2026-03-02" {
		t.Fatalf("DayKey() = %q, want %q", got, "2026-03-02")
	}
}
