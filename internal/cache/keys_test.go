package cache

import (
	"path"
	"testing"
	"time"
)

func TestKeyShapes(t *testing.T) {
	hour := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if got := LeaderboardKey("g1", "7d", ""); got != "leaderboard:g1:all:7d" {
		t.Fatalf("unexpected leaderboard key %q", got)
	}
	if got := LeaderboardKey("g1", "7d", "c1"); got != "leaderboard:g1:c1:7d" {
		t.Fatalf("unexpected leaderboard key %q", got)
	}
	if got := StatsKey("g1", "24h", ""); got != "stats:g1:24h_all" {
		t.Fatalf("unexpected stats key %q", got)
	}
	if got := HourlyMessageKey("g1", hour); got != "msg_count:g1:2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected hourly key %q", got)
	}
	if got := DeletionKey("g1", "c1"); got != "deletes:g1:c1" {
		t.Fatalf("unexpected deletion key %q", got)
	}
	if got := CooldownKey("g1", "join_raid"); got != "alert_cooldown:g1:join_raid" {
		t.Fatalf("unexpected cooldown key %q", got)
	}
}

func TestHourlyKeysNormalizeToUTC(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2024, 5, 1, 14, 0, 0, 0, zone)
	utc := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if HourlyMessageKey("g1", local) != HourlyMessageKey("g1", utc) {
		t.Fatalf("hourly keys must not depend on the input zone")
	}
}

func TestInvalidationPatternsCoverQueryKeys(t *testing.T) {
	hour := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	queryKeys := []string{
		LeaderboardKey("g1", "7d", ""),
		LeaderboardKey("g1", "1h", "c9"),
		StatsKey("g1", "24h", "c1"),
		TimelineKey("g1", hour, ""),
	}
	counterKeys := []string{
		HourlyMessageKey("g1", hour),
		DeletionKey("g1", "c1"),
		CooldownKey("g1", "join_raid"),
	}

	patterns := InvalidationPatterns("g1")

	for _, key := range queryKeys {
		if !matchesAny(t, patterns, key) {
			t.Fatalf("query key %q not covered by invalidation", key)
		}
	}
	for _, key := range counterKeys {
		if matchesAny(t, patterns, key) {
			t.Fatalf("counter key %q must survive invalidation", key)
		}
	}

	// A different guild's keys must never be touched.
	if matchesAny(t, patterns, LeaderboardKey("g2", "7d", "")) {
		t.Fatalf("invalidation leaked across guilds")
	}
}

func matchesAny(t *testing.T, patterns []string, key string) bool {
	t.Helper()
	for _, pattern := range patterns {
		ok, err := path.Match(pattern, key)
		if err != nil {
			t.Fatalf("bad pattern %q: %v", pattern, err)
		}
		if ok {
			return true
		}
	}
	return false
}
