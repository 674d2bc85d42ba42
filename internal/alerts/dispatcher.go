package alerts

import (
	"context"
	"errors"
	"math"
	"time"

	"serverpulse/internal/cache"
	"serverpulse/internal/config"
	"serverpulse/internal/store"

	"go.uber.org/zap"
)

// Cooldown windows per alert kind. A set cooldown flag suppresses further
// firings until it expires; the existence check is not a strict mutual
// exclusion, so two near-simultaneous triggers can both fire. A duplicate
// alert is an annoyance, not a correctness failure.
const (
	joinRaidCooldown      = 5 * time.Minute
	activityDropCooldown  = 30 * time.Minute
	activitySpikeCooldown = 30 * time.Minute
	massDeleteCooldown    = 10 * time.Minute
	voiceSurgeCooldown    = 15 * time.Minute

	joinRaidWindow        = time.Minute
	deletionWindow        = 30 * time.Second
	hourlyBaselineWindow  = 168 * time.Hour
	minEvaluationMessages = 5
	voiceOccupancyFloor   = 5
	voiceBaselineRate     = 0.05
)

type Alert struct {
	Kind      string    `json:"kind"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id,omitempty"`
	Magnitude float64   `json:"magnitude"`
	Baseline  float64   `json:"baseline"`
	Threshold float64   `json:"threshold"`
	At        time.Time `json:"at"`
}

// Notifier delivers a fired alert to the guild's update channel. Delivery is
// best-effort; the dispatcher logs and swallows every notifier error.
type Notifier interface {
	SendAlert(ctx context.Context, settings store.GuildSettings, alert Alert) error
}

type Cache interface {
	GetInt(ctx context.Context, key string) (int64, error)
	Increment(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, error)
	AlertOnCooldown(ctx context.Context, guildID, kind string) (bool, error)
	SetAlertCooldown(ctx context.Context, guildID, kind string, ttl time.Duration) error
}

type EventStore interface {
	CountMemberEvents(ctx context.Context, guildID, eventType string, window time.Duration) (int, error)
	HourlyAverage(ctx context.Context, guildID string, window time.Duration) (float64, error)
}

type SettingsSource interface {
	GuildSettings(ctx context.Context, guildID string) (store.GuildSettings, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Dispatcher evaluates detection conditions against rolling counters and
// historical baselines, gates each (guild, kind) behind a cooldown flag, and
// hands fired alerts to the notifier.
type Dispatcher struct {
	store    EventStore
	cache    Cache
	settings SettingsSource
	notifier Notifier
	defaults config.AlertConfig
	clock    Clock
	logger   *zap.Logger
}

func New(eventStore EventStore, cacheLayer Cache, settings SettingsSource, notifier Notifier, defaults config.AlertConfig, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:    eventStore,
		cache:    cacheLayer,
		settings: settings,
		notifier: notifier,
		defaults: defaults,
		clock:    realClock{},
		logger:   logger,
	}
}

func (d *Dispatcher) WithClock(clock Clock) {
	d.clock = clock
}

// CheckJoinRaid fires when the trailing-minute join count reaches the guild
// threshold.
func (d *Dispatcher) CheckJoinRaid(ctx context.Context, guildID string) {
	if d.onCooldown(ctx, guildID, store.AlertJoinRaid) {
		return
	}
	settings, ok := d.guildSettings(ctx, guildID)
	if !ok || !settings.AlertEnabled(store.AlertJoinRaid) {
		return
	}

	threshold := settings.Threshold(store.AlertJoinRaid, d.defaults.JoinRaidThreshold)
	joins, err := d.store.CountMemberEvents(ctx, guildID, store.MemberEventJoin, joinRaidWindow)
	if err != nil {
		d.logger.Warn("join raid count failed", zap.String("guild_id", guildID), zap.Error(err))
		return
	}

	if float64(joins) >= threshold {
		d.fire(ctx, settings, Alert{
			Kind:      store.AlertJoinRaid,
			GuildID:   guildID,
			Magnitude: float64(joins),
			Threshold: threshold,
		}, joinRaidCooldown)
	}
}

// CheckMessageActivity compares the current-hour rolling counter with the
// 7-day hourly average and fires a drop or spike alert. Drops are checked
// first; the two are mutually exclusive within one evaluation but carry
// independent cooldowns.
func (d *Dispatcher) CheckMessageActivity(ctx context.Context, guildID string) {
	hour := d.clock.Now().UTC().Truncate(time.Hour)
	current, err := d.cache.GetInt(ctx, cache.HourlyMessageKey(guildID, hour))
	if err != nil {
		d.logger.Warn("hourly counter read failed", zap.String("guild_id", guildID), zap.Error(err))
		return
	}
	if current < minEvaluationMessages {
		return
	}

	historicalAvg, err := d.store.HourlyAverage(ctx, guildID, hourlyBaselineWindow)
	if err != nil {
		d.logger.Warn("hourly baseline failed", zap.String("guild_id", guildID), zap.Error(err))
		return
	}
	if historicalAvg == 0 {
		return
	}

	settings, ok := d.guildSettings(ctx, guildID)
	if !ok {
		return
	}

	threshold := settings.Threshold(store.AlertActivityDrop, d.defaults.ActivityDropThreshold)
	changePercent := ((float64(current) - historicalAvg) / historicalAvg) * 100

	switch {
	case changePercent <= -threshold:
		if !settings.AlertEnabled(store.AlertActivityDrop) || d.onCooldown(ctx, guildID, store.AlertActivityDrop) {
			return
		}
		d.fire(ctx, settings, Alert{
			Kind:      store.AlertActivityDrop,
			GuildID:   guildID,
			Magnitude: math.Floor(math.Abs(changePercent)),
			Baseline:  historicalAvg,
			Threshold: threshold,
		}, activityDropCooldown)
	case changePercent >= threshold:
		if !settings.AlertEnabled(store.AlertActivitySpike) || d.onCooldown(ctx, guildID, store.AlertActivitySpike) {
			return
		}
		d.fire(ctx, settings, Alert{
			Kind:      store.AlertActivitySpike,
			GuildID:   guildID,
			Magnitude: math.Floor(changePercent),
			Baseline:  historicalAvg,
			Threshold: threshold,
		}, activitySpikeCooldown)
	}
}

// CheckMassDelete accumulates single deletions in a 30 second rolling counter
// and fires once the count reaches the guild threshold.
func (d *Dispatcher) CheckMassDelete(ctx context.Context, guildID, channelID string) {
	count, err := d.cache.Increment(ctx, cache.DeletionKey(guildID, channelID), 1, deletionWindow)
	if err != nil {
		d.logger.Warn("deletion counter failed", zap.String("guild_id", guildID), zap.Error(err))
		return
	}
	d.evaluateMassDelete(ctx, guildID, channelID, count)
}

// TriggerMassDelete is the bulk-deletion fast path: the batch size is
// evaluated immediately against the threshold, bypassing the rolling window.
// The rolling counter is left untouched so it keeps reflecting individual
// deletions only.
func (d *Dispatcher) TriggerMassDelete(ctx context.Context, guildID, channelID string, batchSize int) {
	d.evaluateMassDelete(ctx, guildID, channelID, int64(batchSize))
}

func (d *Dispatcher) evaluateMassDelete(ctx context.Context, guildID, channelID string, count int64) {
	settings, ok := d.guildSettings(ctx, guildID)
	if !ok || !settings.AlertEnabled(store.AlertMassDelete) {
		return
	}

	threshold := settings.Threshold(store.AlertMassDelete, d.defaults.MassDeleteThreshold)
	if float64(count) < threshold || d.onCooldown(ctx, guildID, store.AlertMassDelete) {
		return
	}

	d.fire(ctx, settings, Alert{
		Kind:      store.AlertMassDelete,
		GuildID:   guildID,
		ChannelID: channelID,
		Magnitude: float64(count),
		Threshold: threshold,
	}, massDeleteCooldown)
}

// CheckVoiceSurge fires when current voice occupancy clears both the
// multiplier over the baseline and an absolute floor. The baseline is a fixed
// fraction of the member count, a deliberate approximation rather than a
// learned time series.
func (d *Dispatcher) CheckVoiceSurge(ctx context.Context, guildID string, occupancy, memberCount int) {
	if d.onCooldown(ctx, guildID, store.AlertVoiceSurge) {
		return
	}
	settings, ok := d.guildSettings(ctx, guildID)
	if !ok || !settings.AlertEnabled(store.AlertVoiceSurge) {
		return
	}

	baseline := math.Max(1, float64(memberCount)*voiceBaselineRate)
	multiplier := settings.Threshold(store.AlertVoiceSurge, d.defaults.VoiceSurgeMultiplier)

	if float64(occupancy) >= baseline*multiplier && occupancy >= voiceOccupancyFloor {
		d.fire(ctx, settings, Alert{
			Kind:      store.AlertVoiceSurge,
			GuildID:   guildID,
			Magnitude: float64(occupancy),
			Baseline:  baseline,
			Threshold: multiplier,
		}, voiceSurgeCooldown)
	}
}

func (d *Dispatcher) fire(ctx context.Context, settings store.GuildSettings, alert Alert, cooldown time.Duration) {
	alert.At = d.clock.Now().UTC()

	if err := d.notifier.SendAlert(ctx, settings, alert); err != nil {
		d.logger.Warn("alert delivery failed",
			zap.String("guild_id", alert.GuildID),
			zap.String("kind", alert.Kind),
			zap.Error(err))
	}
	if err := d.cache.SetAlertCooldown(ctx, alert.GuildID, alert.Kind, cooldown); err != nil {
		d.logger.Warn("cooldown set failed",
			zap.String("guild_id", alert.GuildID),
			zap.String("kind", alert.Kind),
			zap.Error(err))
	}

	d.logger.Info("alert fired",
		zap.String("guild_id", alert.GuildID),
		zap.String("kind", alert.Kind),
		zap.Float64("magnitude", alert.Magnitude))
}

func (d *Dispatcher) onCooldown(ctx context.Context, guildID, kind string) bool {
	suppressed, err := d.cache.AlertOnCooldown(ctx, guildID, kind)
	if err != nil {
		d.logger.Warn("cooldown check failed", zap.String("guild_id", guildID), zap.String("kind", kind), zap.Error(err))
		return true
	}
	return suppressed
}

func (d *Dispatcher) guildSettings(ctx context.Context, guildID string) (store.GuildSettings, bool) {
	settings, err := d.settings.GuildSettings(ctx, guildID)
	if err != nil {
		if !errors.Is(err, store.ErrGuildNotFound) {
			d.logger.Warn("settings fetch failed", zap.String("guild_id", guildID), zap.Error(err))
		}
		return store.GuildSettings{}, false
	}
	return settings, true
}
