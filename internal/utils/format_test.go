package utils

import "testing"

func TestFormatNumber(t *testing.T) {
	cases := map[int]string{
		0:          "0",
		999:        "999",
		1000:       "1.0K",
		1500:       "1.5K",
		2000000:    "2.0M",
		3500000000: "3.5B",
	}
	for n, want := range cases {
		if got := FormatNumber(n); got != want {
			t.Fatalf("FormatNumber(%d): expected %q, got %q", n, want, got)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int64]string{
		45:     "45s",
		60:     "1m",
		90:     "1m 30s",
		3600:   "1h",
		5400:   "1h 30m",
		86400:  "1d",
		90000:  "1d 1h",
		604800: "7d",
	}
	for seconds, want := range cases {
		if got := FormatDuration(seconds); got != want {
			t.Fatalf("FormatDuration(%d): expected %q, got %q", seconds, want, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Fatalf("expected unchanged text, got %q", got)
	}
	if got := Truncate("hello world", 8); got != "hello..." {
		t.Fatalf("expected ellipsis cut, got %q", got)
	}
	if got := Truncate("abc", 2); got != "ab" {
		t.Fatalf("expected hard cut, got %q", got)
	}
}

func TestRankLabel(t *testing.T) {
	if RankLabel(1) != "🥇" || RankLabel(2) != "🥈" || RankLabel(3) != "🥉" {
		t.Fatalf("unexpected medal labels")
	}
	if got := RankLabel(4); got != "4." {
		t.Fatalf("expected 4., got %q", got)
	}
}

func TestGrowthRate(t *testing.T) {
	if got := GrowthRate(150, 100); got != 50 {
		t.Fatalf("expected 50, got %f", got)
	}
	if got := GrowthRate(50, 100); got != -50 {
		t.Fatalf("expected -50, got %f", got)
	}
	if got := GrowthRate(10, 0); got != 100 {
		t.Fatalf("expected 100 from zero base, got %f", got)
	}
	if got := GrowthRate(0, 0); got != 0 {
		t.Fatalf("expected 0, got %f", got)
	}
}
