package store

import "testing"

func TestAlertEnabledDefaults(t *testing.T) {
	var settings GuildSettings
	if !settings.AlertEnabled(AlertJoinRaid) {
		t.Fatalf("missing map must default to enabled")
	}

	settings.AlertsEnabled = map[string]bool{AlertJoinRaid: false}
	if settings.AlertEnabled(AlertJoinRaid) {
		t.Fatalf("explicit false must disable")
	}
	if !settings.AlertEnabled(AlertMassDelete) {
		t.Fatalf("missing entry must default to enabled")
	}
}

func TestThresholdFallback(t *testing.T) {
	var settings GuildSettings
	if got := settings.Threshold(AlertJoinRaid, 10); got != 10 {
		t.Fatalf("expected fallback 10, got %f", got)
	}

	settings.AlertThresholds = map[string]float64{
		AlertJoinRaid:   3,
		AlertMassDelete: 0,
	}
	if got := settings.Threshold(AlertJoinRaid, 10); got != 3 {
		t.Fatalf("expected override 3, got %f", got)
	}
	if got := settings.Threshold(AlertMassDelete, 5); got != 5 {
		t.Fatalf("zero override must fall back, got %f", got)
	}
}

func TestTracksChannel(t *testing.T) {
	settings := GuildSettings{TrackedChannels: []string{"c1", "c2"}}
	if !settings.TracksChannel("c1") {
		t.Fatalf("expected c1 tracked")
	}
	if settings.TracksChannel("c3") {
		t.Fatalf("expected c3 untracked")
	}
}

func TestDigestFrequencyValues(t *testing.T) {
	if DigestNone != "none" || DigestDaily != "daily" || DigestWeekly != "weekly" {
		t.Fatalf("unexpected digest frequency values: %q %q %q", DigestNone, DigestDaily, DigestWeekly)
	}
}

func TestDefaultGuildSettings(t *testing.T) {
	thresholds := map[string]float64{AlertJoinRaid: 10}
	settings := DefaultGuildSettings("g1", "Test", "openrouter", thresholds)

	if settings.GuildID != "g1" || settings.GuildName != "Test" {
		t.Fatalf("unexpected identity %+v", settings)
	}
	if settings.SetupCompleted {
		t.Fatalf("new guilds start without setup")
	}
	if settings.DigestFrequency != DigestWeekly {
		t.Fatalf("expected weekly digest default, got %q", settings.DigestFrequency)
	}
	for _, kind := range []string{AlertJoinRaid, AlertActivityDrop, AlertActivitySpike, AlertMassDelete, AlertVoiceSurge} {
		if !settings.AlertEnabled(kind) {
			t.Fatalf("alert %s must start enabled", kind)
		}
	}
	if settings.CreatedAt.IsZero() {
		t.Fatalf("created_at must be set")
	}
}
