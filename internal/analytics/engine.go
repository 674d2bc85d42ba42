package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"serverpulse/internal/cache"
	"serverpulse/internal/config"
	"serverpulse/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrDataUnavailable wraps event-store failures; callers surface it as a
// generic data-unavailable condition rather than retrying internally.
var ErrDataUnavailable = errors.New("analytics data unavailable")

const (
	counterTTL       = 48 * time.Hour
	timelineTTL      = time.Hour
	anomalyThreshold = 50.0
	baselineDays     = 7
)

type EventStore interface {
	RecordMessage(ctx context.Context, event store.MessageEvent) error
	MessageStats(ctx context.Context, guildID string, window time.Duration, channelID string) (store.MessageStats, error)
	TopMessagers(ctx context.Context, guildID string, window time.Duration, limit int, channelID string) ([]store.LeaderboardEntry, error)
	MemberActivity(ctx context.Context, guildID string, window time.Duration) (store.MemberActivity, error)
	MessageCount(ctx context.Context, guildID, channelID string, from, to time.Time) (int, error)
	BucketStats(ctx context.Context, guildID, channelID string, from, to time.Time) (store.BucketStats, error)
	UserEngagement(ctx context.Context, guildID, userID string, window time.Duration) (store.UserEngagement, error)
}

type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Increment(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, error)
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

type SettingsSource interface {
	GuildSettings(ctx context.Context, guildID string) (store.GuildSettings, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Engine answers activity queries for a guild with freshness bounded by the
// cache TTLs, recomputing from the event store on a miss. The cache is an
// optimization only: every cache failure degrades to direct aggregation.
type Engine struct {
	store          EventStore
	cache          Cache
	settings       SettingsSource
	clock          Clock
	logger         *zap.Logger
	leaderboardTTL time.Duration
	statsTTL       time.Duration
}

func New(eventStore EventStore, cacheLayer Cache, settings SettingsSource, cfg config.CacheConfig, logger *zap.Logger) *Engine {
	return &Engine{
		store:          eventStore,
		cache:          cacheLayer,
		settings:       settings,
		clock:          realClock{},
		logger:         logger,
		leaderboardTTL: time.Duration(cfg.LeaderboardTTLSeconds) * time.Second,
		statsTTL:       time.Duration(cfg.StatsTTLSeconds) * time.Second,
	}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

type ServerStats struct {
	Period        string               `json:"period"`
	ChannelID     string               `json:"channel_id,omitempty"`
	Messages      store.MessageStats   `json:"message_stats"`
	Members       store.MemberActivity `json:"member_activity"`
	ActivityScore int                  `json:"activity_score"`
	Anomaly       string               `json:"anomaly,omitempty"`
	HistoricalAvg float64              `json:"historical_avg"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

type ChannelStats struct {
	ChannelID     string             `json:"channel_id"`
	Messages      store.MessageStats `json:"message_stats"`
	ActivityScore int                `json:"activity_score"`
}

type TimelinePoint struct {
	Timestamp time.Time         `json:"timestamp"`
	Stats     store.BucketStats `json:"stats"`
}

// RecordMessage persists the event, bumps the hourly rolling counters for
// guild, user and channel concurrently, and invalidates the guild's cached
// query results so the next read reflects this write.
func (e *Engine) RecordMessage(ctx context.Context, guildID, channelID, userID string, messageLength int, hasAttachment bool) error {
	now := e.clock.Now().UTC()
	event := store.MessageEvent{
		GuildID:       guildID,
		ChannelID:     channelID,
		UserID:        userID,
		Timestamp:     now,
		MessageLength: messageLength,
		HasAttachment: hasAttachment,
	}
	if err := e.store.RecordMessage(ctx, event); err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	hour := now.Truncate(time.Hour)
	keys := []string{
		cache.HourlyMessageKey(guildID, hour),
		cache.HourlyUserKey(guildID, userID, hour),
		cache.HourlyChannelKey(guildID, channelID, hour),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := key
		group.Go(func() error {
			_, err := e.cache.Increment(groupCtx, key, 1, counterTTL)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		e.logger.Warn("rolling counter update failed", zap.String("guild_id", guildID), zap.Error(err))
	}

	e.invalidateGuild(ctx, guildID)
	return nil
}

// Leaderboard returns the top message senders for the period, serving from
// cache inside the TTL window.
func (e *Engine) Leaderboard(ctx context.Context, guildID, period, channelID string, limit int) ([]store.LeaderboardEntry, error) {
	key := cache.LeaderboardKey(guildID, period, channelID)

	var cached []store.LeaderboardEntry
	hit, err := e.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		e.logger.Warn("leaderboard cache read failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		return cached, nil
	}

	entries, err := e.store.TopMessagers(ctx, guildID, PeriodWindow(period), limit, channelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if entries == nil {
		entries = []store.LeaderboardEntry{}
	}

	if err := e.cache.SetJSON(ctx, key, entries, e.leaderboardTTL); err != nil {
		e.logger.Warn("leaderboard cache write failed", zap.String("key", key), zap.Error(err))
	}
	return entries, nil
}

// ServerStats computes the full stats snapshot for a period: message totals,
// member churn, activity score and the anomaly classification against the
// 7-day historical baseline.
func (e *Engine) ServerStats(ctx context.Context, guildID, period, channelID string) (ServerStats, error) {
	key := cache.StatsKey(guildID, period, channelID)

	var cached ServerStats
	hit, err := e.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		e.logger.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		return cached, nil
	}

	window := PeriodWindow(period)

	messages, err := e.store.MessageStats(ctx, guildID, window, channelID)
	if err != nil {
		return ServerStats{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	members, err := e.store.MemberActivity(ctx, guildID, window)
	if err != nil {
		return ServerStats{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	historicalAvg, err := e.historicalAverage(ctx, guildID, channelID, window)
	if err != nil {
		return ServerStats{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	stats := ServerStats{
		Period:        period,
		ChannelID:     channelID,
		Messages:      messages,
		Members:       members,
		ActivityScore: ActivityScore(messages.TotalMessages, messages.UniqueUsers, messages.AvgMessageLength),
		Anomaly:       DetectAnomaly(messages.TotalMessages, historicalAvg, anomalyThreshold),
		HistoricalAvg: historicalAvg,
		GeneratedAt:   e.clock.Now().UTC(),
	}

	if err := e.cache.SetJSON(ctx, key, stats, e.statsTTL); err != nil {
		e.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
	return stats, nil
}

// ChannelComparison ranks the guild's tracked channels by activity score.
// It rides on the per-channel stats cache rather than caching its own result.
func (e *Engine) ChannelComparison(ctx context.Context, guildID, period string) ([]ChannelStats, error) {
	settings, err := e.settings.GuildSettings(ctx, guildID)
	if err != nil {
		if errors.Is(err, store.ErrGuildNotFound) {
			return []ChannelStats{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	comparison := make([]ChannelStats, 0, len(settings.TrackedChannels))
	for _, channelID := range settings.TrackedChannels {
		stats, err := e.ServerStats(ctx, guildID, period, channelID)
		if err != nil {
			return nil, err
		}
		comparison = append(comparison, ChannelStats{
			ChannelID:     channelID,
			Messages:      stats.Messages,
			ActivityScore: stats.ActivityScore,
		})
	}

	sort.SliceStable(comparison, func(i, j int) bool {
		return comparison[i].ActivityScore > comparison[j].ActivityScore
	})
	return comparison, nil
}

// UserEngagement aggregates a single user's footprint over the period.
func (e *Engine) UserEngagement(ctx context.Context, guildID, userID, period string) (store.UserEngagement, error) {
	engagement, err := e.store.UserEngagement(ctx, guildID, userID, PeriodWindow(period))
	if err != nil {
		return store.UserEngagement{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return engagement, nil
}

// Timeline produces per-bucket activity over the period, caching each bucket
// independently for an hour.
func (e *Engine) Timeline(ctx context.Context, guildID string, periodHours, bucketMinutes int, channelID string) ([]TimelinePoint, error) {
	now := e.clock.Now().UTC()
	cursor := now.Add(-time.Duration(periodHours) * time.Hour)

	var timeline []TimelinePoint
	for !cursor.After(now) {
		bucketStart := TimeBucket(cursor, bucketMinutes)
		bucketEnd := bucketStart.Add(time.Duration(bucketMinutes) * time.Minute)
		key := cache.TimelineKey(guildID, bucketStart, channelID)

		var stats store.BucketStats
		hit, err := e.cache.GetJSON(ctx, key, &stats)
		if err != nil {
			e.logger.Warn("timeline cache read failed", zap.String("key", key), zap.Error(err))
			hit = false
		}
		if !hit {
			stats, err = e.store.BucketStats(ctx, guildID, channelID, bucketStart, bucketEnd)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
			}
			if err := e.cache.SetJSON(ctx, key, stats, timelineTTL); err != nil {
				e.logger.Warn("timeline cache write failed", zap.String("key", key), zap.Error(err))
			}
		}

		timeline = append(timeline, TimelinePoint{Timestamp: bucketStart, Stats: stats})
		cursor = cursor.Add(time.Duration(bucketMinutes) * time.Minute)
	}
	return timeline, nil
}

// historicalAverage samples the same-length window once per day over the
// preceding week and returns the mean count.
func (e *Engine) historicalAverage(ctx context.Context, guildID, channelID string, window time.Duration) (float64, error) {
	now := e.clock.Now().UTC()

	total := 0
	for daysBack := 1; daysBack <= baselineDays; daysBack++ {
		end := now.AddDate(0, 0, -daysBack)
		start := end.Add(-window)
		count, err := e.store.MessageCount(ctx, guildID, channelID, start, end)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return float64(total) / float64(baselineDays), nil
}

// invalidateGuild drops every cached leaderboard, stats and timeline entry for
// the guild. Freshness after a write is guaranteed by this path, not by TTL.
func (e *Engine) invalidateGuild(ctx context.Context, guildID string) {
	for _, pattern := range cache.InvalidationPatterns(guildID) {
		if _, err := e.cache.DeletePattern(ctx, pattern); err != nil {
			e.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
