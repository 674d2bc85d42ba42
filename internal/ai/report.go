package ai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"serverpulse/internal/analytics"
	"serverpulse/internal/store"
	"serverpulse/internal/utils"

	"go.uber.org/zap"
)

var (
	// ErrNotConfigured means the guild has no usable provider and key pair.
	ErrNotConfigured = errors.New("ai provider not configured")
	// ErrUnknownProvider means the configured provider name is not registered.
	ErrUnknownProvider = errors.New("unknown ai provider")
)

type ReportStore interface {
	MessageStats(ctx context.Context, guildID string, window time.Duration, channelID string) (store.MessageStats, error)
	TopMessagers(ctx context.Context, guildID string, window time.Duration, limit int, channelID string) ([]store.LeaderboardEntry, error)
	MemberActivity(ctx context.Context, guildID string, window time.Duration) (store.MemberActivity, error)
	SaveReport(ctx context.Context, report store.AIReport) error
}

type SettingsSource interface {
	GuildSettings(ctx context.Context, guildID string) (store.GuildSettings, error)
}

// Snapshot is the analytics summary a report prompt is built from.
type Snapshot struct {
	GuildID       string
	GuildName     string
	Period        string
	PeriodDisplay string
	Start         time.Time
	End           time.Time
	HasActivity   bool

	Messages      store.MessageStats
	Members       store.MemberActivity
	TopMessagers  []store.LeaderboardEntry
	HistoricalAvg float64
	GrowthRate    float64
	Trend         string
}

// Generator gathers analytics snapshots, builds natural-language prompts,
// invokes the guild's configured provider and persists the resulting report.
type Generator struct {
	store    ReportStore
	settings SettingsSource
	registry *Registry
	logger   *zap.Logger
}

func NewGenerator(reportStore ReportStore, settings SettingsSource, registry *Registry, logger *zap.Logger) *Generator {
	return &Generator{store: reportStore, settings: settings, registry: registry, logger: logger}
}

// PulseReport produces the periodic activity report for a guild. Quiet
// periods get a canned summary without an AI call; provider failures
// propagate so the caller can render a fallback message.
func (g *Generator) PulseReport(ctx context.Context, guildID, guildName, period string) (string, error) {
	settings, err := g.settings.GuildSettings(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("pulse report: %w", err)
	}

	provider, apiKey, err := g.resolveProvider(settings)
	if err != nil {
		return "", err
	}

	snapshot, err := g.gather(ctx, guildID, guildName, period)
	if err != nil {
		return "", fmt.Errorf("pulse report: %w", err)
	}

	if !snapshot.HasActivity {
		return g.noActivityReport(snapshot), nil
	}

	text, err := provider.Generate(ctx, apiKey, buildReportPrompt(snapshot), DefaultOptions())
	if err != nil {
		return "", fmt.Errorf("pulse report: %w", err)
	}

	report := store.AIReport{
		GuildID:    guildID,
		ReportType: "pulse_report",
		Content:    text,
		Metadata: map[string]string{
			"period":         period,
			"provider":       provider.Name(),
			"total_messages": strconv.Itoa(snapshot.Messages.TotalMessages),
			"active_users":   strconv.Itoa(snapshot.Messages.UniqueUsers),
		},
	}
	if err := g.store.SaveReport(ctx, report); err != nil {
		g.logger.Warn("report save failed", zap.String("guild_id", guildID), zap.Error(err))
	}

	return text, nil
}

// Insight answers an ad-hoc question about the guild from a 7-day snapshot.
func (g *Generator) Insight(ctx context.Context, guildID, guildName, question string) (string, error) {
	settings, err := g.settings.GuildSettings(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("insight: %w", err)
	}

	provider, apiKey, err := g.resolveProvider(settings)
	if err != nil {
		return "", err
	}

	snapshot, err := g.gather(ctx, guildID, guildName, "7d")
	if err != nil {
		return "", fmt.Errorf("insight: %w", err)
	}

	text, err := provider.Generate(ctx, apiKey, buildInsightPrompt(snapshot, question), DefaultOptions())
	if err != nil {
		return "", fmt.Errorf("insight: %w", err)
	}
	return text, nil
}

// TestProvider checks a provider name and key pair against the live API.
func (g *Generator) TestProvider(ctx context.Context, name, apiKey string) error {
	provider, ok := g.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return provider.Test(ctx, apiKey)
}

func (g *Generator) resolveProvider(settings store.GuildSettings) (Provider, string, error) {
	if settings.AIProvider == "" {
		return nil, "", ErrNotConfigured
	}
	apiKey, ok := settings.AIAPIKeys[settings.AIProvider]
	if !ok || apiKey == "" {
		return nil, "", ErrNotConfigured
	}
	provider, ok := g.registry.Lookup(settings.AIProvider)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownProvider, settings.AIProvider)
	}
	return provider, apiKey, nil
}

func (g *Generator) gather(ctx context.Context, guildID, guildName, period string) (Snapshot, error) {
	window := analytics.PeriodWindow(period)
	now := time.Now().UTC()

	messages, err := g.store.MessageStats(ctx, guildID, window, "")
	if err != nil {
		return Snapshot{}, err
	}
	top, err := g.store.TopMessagers(ctx, guildID, window, 10, "")
	if err != nil {
		return Snapshot{}, err
	}
	members, err := g.store.MemberActivity(ctx, guildID, window)
	if err != nil {
		return Snapshot{}, err
	}

	// The same-length window repeated over the preceding week gives the
	// comparison baseline.
	historical, err := g.store.MessageStats(ctx, guildID, window*7, "")
	if err != nil {
		return Snapshot{}, err
	}
	historicalAvg := float64(historical.TotalMessages) / 7

	growth := utils.GrowthRate(float64(messages.TotalMessages), historicalAvg)
	trend := "stable"
	switch {
	case growth > 10:
		trend = "increasing"
	case growth < -10:
		trend = "decreasing"
	}

	return Snapshot{
		GuildID:       guildID,
		GuildName:     guildName,
		Period:        period,
		PeriodDisplay: analytics.PeriodDisplay(period),
		Start:         now.Add(-window),
		End:           now,
		HasActivity:   messages.TotalMessages > 0,
		Messages:      messages,
		Members:       members,
		TopMessagers:  top,
		HistoricalAvg: historicalAvg,
		GrowthRate:    growth,
		Trend:         trend,
	}, nil
}

func (g *Generator) noActivityReport(s Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**📊 ServerPulse Report - %s**\n\n", s.PeriodDisplay)
	b.WriteString("**Activity Summary:**\n")
	fmt.Fprintf(&b, "🔕 No message activity detected during %s\n\n", strings.ToLower(s.PeriodDisplay))
	b.WriteString("**Member Activity:**\n")
	fmt.Fprintf(&b, "👋 New joins: %s\n", utils.FormatNumber(s.Members.Joins))
	fmt.Fprintf(&b, "🚪 Members left: %s\n", utils.FormatNumber(s.Members.Leaves))
	fmt.Fprintf(&b, "📈 Net growth: %+d\n", s.Members.Joins-s.Members.Leaves)
	return b.String()
}
