package analytics

import (
	"testing"
	"time"
)

func TestActivityScore(t *testing.T) {
	score := ActivityScore(100, 20, 50)
	if score != 115 {
		t.Fatalf("expected 115, got %d", score)
	}

	if got := ActivityScore(0, 0, 0); got != 0 {
		t.Fatalf("expected 0 for no activity, got %d", got)
	}

	// User bonus is capped at 30% of the message count.
	capped := ActivityScore(10, 100, 0)
	if capped != 13 {
		t.Fatalf("expected 13, got %d", capped)
	}

	// Length bonus only applies above 10 average chars, capped at 20%.
	short := ActivityScore(100, 0, 10)
	long := ActivityScore(100, 0, 500)
	if short != 100 {
		t.Fatalf("expected no length bonus at avg 10, got %d", short)
	}
	if long != 120 {
		t.Fatalf("expected capped length bonus 120, got %d", long)
	}
}

func TestActivityScoreMonotonic(t *testing.T) {
	previous := 0
	for count := 0; count <= 1000; count += 50 {
		score := ActivityScore(count, 25, 40)
		if score < previous {
			t.Fatalf("score decreased from %d to %d at count %d", previous, score, count)
		}
		previous = score
	}
}

func TestDetectAnomaly(t *testing.T) {
	if got := DetectAnomaly(50, 20, 50); got != "spike_150" {
		t.Fatalf("expected spike_150, got %q", got)
	}
	if got := DetectAnomaly(5, 20, 50); got != "drop_75" {
		t.Fatalf("expected drop_75, got %q", got)
	}
	if got := DetectAnomaly(25, 20, 50); got != "" {
		t.Fatalf("expected no anomaly at +25%%, got %q", got)
	}
	if got := DetectAnomaly(500, 0, 50); got != "" {
		t.Fatalf("expected no anomaly with zero baseline, got %q", got)
	}
	if got := DetectAnomaly(30, 20, 50); got != "spike_50" {
		t.Fatalf("expected spike_50 at exactly the threshold, got %q", got)
	}
}

func TestPeriodHours(t *testing.T) {
	cases := map[string]int{
		"1h": 1, "6h": 6, "12h": 12, "24h": 24,
		"7d": 168, "30d": 720, "all": 8760,
		"bogus": 24,
	}
	for period, want := range cases {
		if got := PeriodHours(period); got != want {
			t.Fatalf("period %q: expected %d, got %d", period, want, got)
		}
	}
	if PeriodWindow("7d") != 168*time.Hour {
		t.Fatalf("unexpected window for 7d")
	}
}

func TestTimeBucket(t *testing.T) {
	at := time.Date(2024, 5, 1, 13, 47, 12, 0, time.UTC)
	bucket := TimeBucket(at, 60)
	want := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	if !bucket.Equal(want) {
		t.Fatalf("expected %v, got %v", want, bucket)
	}
	quarter := TimeBucket(at, 15)
	if !quarter.Equal(time.Date(2024, 5, 1, 13, 45, 0, 0, time.UTC)) {
		t.Fatalf("unexpected 15m bucket %v", quarter)
	}
}
