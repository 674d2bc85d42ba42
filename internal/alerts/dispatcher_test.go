package alerts

import (
	"context"
	"testing"
	"time"

	"serverpulse/internal/cache"
	"serverpulse/internal/config"
	"serverpulse/internal/store"

	"go.uber.org/zap"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

type fakeEventStore struct {
	joins     int
	hourlyAvg float64
}

func (f *fakeEventStore) CountMemberEvents(ctx context.Context, guildID, eventType string, window time.Duration) (int, error) {
	return f.joins, nil
}

func (f *fakeEventStore) HourlyAverage(ctx context.Context, guildID string, window time.Duration) (float64, error) {
	return f.hourlyAvg, nil
}

type fakeSettings struct {
	settings store.GuildSettings
	err      error
}

func (f *fakeSettings) GuildSettings(ctx context.Context, guildID string) (store.GuildSettings, error) {
	if f.err != nil {
		return store.GuildSettings{}, f.err
	}
	return f.settings, nil
}

// fakeCache expires entries against the shared fake clock so cooldown and
// rolling-window TTLs behave like Redis would.
type fakeCache struct {
	clock    *fakeClock
	counters map[string]int64
	expiry   map[string]time.Time
}

func newFakeCache(clock *fakeClock) *fakeCache {
	return &fakeCache{clock: clock, counters: map[string]int64{}, expiry: map[string]time.Time{}}
}

func (f *fakeCache) expireStale(key string) {
	if deadline, ok := f.expiry[key]; ok && !f.clock.Now().Before(deadline) {
		delete(f.counters, key)
		delete(f.expiry, key)
	}
}

func (f *fakeCache) GetInt(ctx context.Context, key string) (int64, error) {
	f.expireStale(key)
	return f.counters[key], nil
}

func (f *fakeCache) Increment(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, error) {
	f.expireStale(key)
	f.counters[key] += amount
	f.expiry[key] = f.clock.Now().Add(ttl)
	return f.counters[key], nil
}

func (f *fakeCache) AlertOnCooldown(ctx context.Context, guildID, kind string) (bool, error) {
	key := cache.CooldownKey(guildID, kind)
	f.expireStale(key)
	_, ok := f.counters[key]
	return ok, nil
}

func (f *fakeCache) SetAlertCooldown(ctx context.Context, guildID, kind string, ttl time.Duration) error {
	key := cache.CooldownKey(guildID, kind)
	f.counters[key] = 1
	f.expiry[key] = f.clock.Now().Add(ttl)
	return nil
}

func (f *fakeCache) setCounter(key string, value int64, ttl time.Duration) {
	f.counters[key] = value
	f.expiry[key] = f.clock.Now().Add(ttl)
}

type recordingNotifier struct {
	alerts []Alert
}

func (r *recordingNotifier) SendAlert(ctx context.Context, settings store.GuildSettings, alert Alert) error {
	r.alerts = append(r.alerts, alert)
	return nil
}

func defaults() config.AlertConfig {
	return config.AlertConfig{
		JoinRaidThreshold:     10,
		ActivityDropThreshold: 50,
		MassDeleteThreshold:   5,
		VoiceSurgeMultiplier:  3,
	}
}

func enabledSettings() store.GuildSettings {
	return store.GuildSettings{GuildID: "g1", UpdateChannelID: "c-alerts"}
}

func newTestDispatcher(events *fakeEventStore, settings *fakeSettings) (*Dispatcher, *fakeCache, *recordingNotifier, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cacheLayer := newFakeCache(clock)
	notifier := &recordingNotifier{}
	dispatcher := New(events, cacheLayer, settings, notifier, defaults(), zap.NewNop())
	dispatcher.WithClock(clock)
	return dispatcher, cacheLayer, notifier, clock
}

func TestJoinRaidFiresOncePerCooldown(t *testing.T) {
	ctx := context.Background()
	events := &fakeEventStore{joins: 11}
	dispatcher, _, notifier, clock := newTestDispatcher(events, &fakeSettings{settings: enabledSettings()})

	dispatcher.CheckJoinRaid(ctx, "g1")
	if len(notifier.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(notifier.alerts))
	}
	if notifier.alerts[0].Kind != store.AlertJoinRaid || notifier.alerts[0].Magnitude != 11 {
		t.Fatalf("unexpected alert %+v", notifier.alerts[0])
	}

	// Still raiding, but the cooldown suppresses the repeat.
	events.joins = 25
	dispatcher.CheckJoinRaid(ctx, "g1")
	if len(notifier.alerts) != 1 {
		t.Fatalf("expected suppression, got %d alerts", len(notifier.alerts))
	}

	clock.advance(5*time.Minute + time.Second)
	dispatcher.CheckJoinRaid(ctx, "g1")
	if len(notifier.alerts) != 2 {
		t.Fatalf("expected refire after cooldown, got %d alerts", len(notifier.alerts))
	}
}

func TestJoinRaidBelowThreshold(t *testing.T) {
	ctx := context.Background()
	dispatcher, _, notifier, _ := newTestDispatcher(&fakeEventStore{joins: 9}, &fakeSettings{settings: enabledSettings()})

	dispatcher.CheckJoinRaid(ctx, "g1")
	if len(notifier.alerts) != 0 {
		t.Fatalf("expected no alert at 9 joins, got %d", len(notifier.alerts))
	}
}

func TestJoinRaidDisabled(t *testing.T) {
	ctx := context.Background()
	settings := enabledSettings()
	settings.AlertsEnabled = map[string]bool{store.AlertJoinRaid: false}
	dispatcher, _, notifier, _ := newTestDispatcher(&fakeEventStore{joins: 50}, &fakeSettings{settings: settings})

	dispatcher.CheckJoinRaid(ctx, "g1")
	if len(notifier.alerts) != 0 {
		t.Fatalf("expected no alert when disabled, got %d", len(notifier.alerts))
	}
}

func TestActivitySpike(t *testing.T) {
	ctx := context.Background()
	events := &fakeEventStore{hourlyAvg: 20}
	dispatcher, cacheLayer, notifier, clock := newTestDispatcher(events, &fakeSettings{settings: enabledSettings()})

	hour := clock.Now().UTC().Truncate(time.Hour)
	cacheLayer.setCounter(cache.HourlyMessageKey("g1", hour), 50, 48*time.Hour)

	dispatcher.CheckMessageActivity(ctx, "g1")
	if len(notifier.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(notifier.alerts))
	}
	alert := notifier.alerts[0]
	if alert.Kind != store.AlertActivitySpike {
		t.Fatalf("expected spike, got %s", alert.Kind)
	}
	if alert.Magnitude != 150 {
		t.Fatalf("expected magnitude 150, got %f", alert.Magnitude)
	}
	if alert.Baseline != 20 {
		t.Fatalf("expected baseline 20, got %f", alert.Baseline)
	}
}

func TestActivityDrop(t *testing.T) {
	ctx := context.Background()
	events := &fakeEventStore{hourlyAvg: 40}
	dispatcher, cacheLayer, notifier, clock := newTestDispatcher(events, &fakeSettings{settings: enabledSettings()})

	hour := clock.Now().UTC().Truncate(time.Hour)
	cacheLayer.setCounter(cache.HourlyMessageKey("g1", hour), 8, 48*time.Hour)

	dispatcher.CheckMessageActivity(ctx, "g1")
	if len(notifier.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(notifier.alerts))
	}
	if notifier.alerts[0].Kind != store.AlertActivityDrop {
		t.Fatalf("expected drop, got %s", notifier.alerts[0].Kind)
	}
	if notifier.alerts[0].Magnitude != 80 {
		t.Fatalf("expected magnitude 80, got %f", notifier.alerts[0].Magnitude)
	}
}

func TestActivitySkipsQuietHours(t *testing.T) {
	ctx := context.Background()
	events := &fakeEventStore{hourlyAvg: 100}
	dispatcher, cacheLayer, notifier, clock := newTestDispatcher(events, &fakeSettings{settings: enabledSettings()})

	hour := clock.Now().UTC().Truncate(time.Hour)
	cacheLayer.setCounter(cache.HourlyMessageKey("g1", hour), 4, 48*time.Hour)

	dispatcher.CheckMessageActivity(ctx, "g1")
	if len(notifier.alerts) != 0 {
		t.Fatalf("expected no evaluation under the message floor, got %d alerts", len(notifier.alerts))
	}
}

func TestActivitySkipsWithoutBaseline(t *testing.T) {
	ctx := context.Background()
	events := &fakeEventStore{hourlyAvg: 0}
	dispatcher, cacheLayer, notifier, clock := newTestDispatcher(events, &fakeSettings{settings: enabledSettings()})

	hour := clock.Now().UTC().Truncate(time.Hour)
	cacheLayer.setCounter(cache.HourlyMessageKey("g1", hour), 500, 48*time.Hour)

	dispatcher.CheckMessageActivity(ctx, "g1")
	if len(notifier.alerts) != 0 {
		t.Fatalf("expected no alert without a baseline, got %d", len(notifier.alerts))
	}
}

func TestSpikeDisabledStaysSilent(t *testing.T) {
	ctx := context.Background()
	settings := enabledSettings()
	settings.AlertsEnabled = map[string]bool{store.AlertActivitySpike: false}
	events := &fakeEventStore{hourlyAvg: 20}
	dispatcher, cacheLayer, notifier, clock := newTestDispatcher(events, &fakeSettings{settings: settings})

	hour := clock.Now().UTC().Truncate(time.Hour)
	cacheLayer.setCounter(cache.HourlyMessageKey("g1", hour), 50, 48*time.Hour)

	dispatcher.CheckMessageActivity(ctx, "g1")
	if len(notifier.alerts) != 0 {
		t.Fatalf("expected no alert when spikes are disabled, got %d", len(notifier.alerts))
	}
}

func TestMassDeleteAccumulation(t *testing.T) {
	ctx := context.Background()
	dispatcher, _, notifier, _ := newTestDispatcher(&fakeEventStore{}, &fakeSettings{settings: enabledSettings()})

	for i := 0; i < 4; i++ {
		dispatcher.CheckMassDelete(ctx, "g1", "c1")
	}
	if len(notifier.alerts) != 0 {
		t.Fatalf("expected no alert below threshold, got %d", len(notifier.alerts))
	}

	dispatcher.CheckMassDelete(ctx, "g1", "c1")
	if len(notifier.alerts) != 1 {
		t.Fatalf("expected alert at 5 deletions, got %d", len(notifier.alerts))
	}
	if notifier.alerts[0].Kind != store.AlertMassDelete || notifier.alerts[0].ChannelID != "c1" {
		t.Fatalf("unexpected alert %+v", notifier.alerts[0])
	}
}

func TestMassDeleteWindowReset(t *testing.T) {
	ctx := context.Background()
	dispatcher, _, notifier, clock := newTestDispatcher(&fakeEventStore{}, &fakeSettings{settings: enabledSettings()})

	for i := 0; i < 4; i++ {
		dispatcher.CheckMassDelete(ctx, "g1", "c1")
	}
	clock.advance(31 * time.Second)
	dispatcher.CheckMassDelete(ctx, "g1", "c1")
	if len(notifier.alerts) != 0 {
		t.Fatalf("expected counter reset after the window, got %d alerts", len(notifier.alerts))
	}
}

func TestBulkDeleteFastPath(t *testing.T) {
	ctx := context.Background()
	dispatcher, cacheLayer, notifier, _ := newTestDispatcher(&fakeEventStore{}, &fakeSettings{settings: enabledSettings()})

	dispatcher.TriggerMassDelete(ctx, "g1", "c1", 40)
	if len(notifier.alerts) != 1 {
		t.Fatalf("expected immediate alert, got %d", len(notifier.alerts))
	}
	if notifier.alerts[0].Magnitude != 40 {
		t.Fatalf("expected magnitude 40, got %f", notifier.alerts[0].Magnitude)
	}
	if cacheLayer.counters[cache.DeletionKey("g1", "c1")] != 0 {
		t.Fatalf("bulk path must not touch the rolling counter")
	}
}

func TestVoiceSurge(t *testing.T) {
	ctx := context.Background()
	dispatcher, _, notifier, _ := newTestDispatcher(&fakeEventStore{}, &fakeSettings{settings: enabledSettings()})

	// 100 members: baseline 5, multiplier 3 -> needs 15 in voice.
	dispatcher.CheckVoiceSurge(ctx, "g1", 14, 100)
	if len(notifier.alerts) != 0 {
		t.Fatalf("expected no alert at 14 occupants, got %d", len(notifier.alerts))
	}

	dispatcher.CheckVoiceSurge(ctx, "g1", 15, 100)
	if len(notifier.alerts) != 1 {
		t.Fatalf("expected alert at 15 occupants, got %d", len(notifier.alerts))
	}
	if notifier.alerts[0].Baseline != 5 {
		t.Fatalf("expected baseline 5, got %f", notifier.alerts[0].Baseline)
	}
}

func TestVoiceSurgeOccupancyFloor(t *testing.T) {
	ctx := context.Background()
	dispatcher, _, notifier, _ := newTestDispatcher(&fakeEventStore{}, &fakeSettings{settings: enabledSettings()})

	// Tiny guild: baseline 1, multiplier 3 -> 4 occupants clear the ratio but
	// stay under the absolute floor.
	dispatcher.CheckVoiceSurge(ctx, "g1", 4, 10)
	if len(notifier.alerts) != 0 {
		t.Fatalf("expected absolute floor to hold, got %d alerts", len(notifier.alerts))
	}

	dispatcher.CheckVoiceSurge(ctx, "g1", 5, 10)
	if len(notifier.alerts) != 1 {
		t.Fatalf("expected alert at the floor, got %d", len(notifier.alerts))
	}
}

func TestUnknownGuildStaysSilent(t *testing.T) {
	ctx := context.Background()
	dispatcher, _, notifier, _ := newTestDispatcher(&fakeEventStore{joins: 100}, &fakeSettings{err: store.ErrGuildNotFound})

	dispatcher.CheckJoinRaid(ctx, "missing")
	dispatcher.CheckVoiceSurge(ctx, "missing", 50, 100)
	dispatcher.TriggerMassDelete(ctx, "missing", "c1", 100)
	if len(notifier.alerts) != 0 {
		t.Fatalf("expected no alerts for unknown guild, got %d", len(notifier.alerts))
	}
}

func TestThresholdOverride(t *testing.T) {
	ctx := context.Background()
	settings := enabledSettings()
	settings.AlertThresholds = map[string]float64{store.AlertJoinRaid: 3}
	dispatcher, _, notifier, _ := newTestDispatcher(&fakeEventStore{joins: 4}, &fakeSettings{settings: settings})

	dispatcher.CheckJoinRaid(ctx, "g1")
	if len(notifier.alerts) != 1 {
		t.Fatalf("expected guild override to apply, got %d alerts", len(notifier.alerts))
	}
}
