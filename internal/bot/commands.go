package bot

import (
	"context"
	"fmt"
	"strings"

	"serverpulse/internal/analytics"
	"serverpulse/internal/store"
	"serverpulse/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var periodChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Last hour", Value: "1h"},
	{Name: "Last 6 hours", Value: "6h"},
	{Name: "Last 12 hours", Value: "12h"},
	{Name: "Last 24 hours", Value: "24h"},
	{Name: "Last 7 days", Value: "7d"},
	{Name: "Last 30 days", Value: "30d"},
	{Name: "All time", Value: "all"},
}

func periodOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "period",
		Description: "Time period to report on",
		Choices:     periodChoices,
	}
}

func (b *Bot) registerCommands() error {
	manageGuild := int64(discordgo.PermissionManageServer)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "leaderboard",
			Description: "Top message senders",
			Options: []*discordgo.ApplicationCommandOption{
				periodOption(),
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Limit to a single channel",
				},
			},
		},
		{
			Name:        "stats",
			Description: "Server activity statistics",
			Options: []*discordgo.ApplicationCommandOption{
				periodOption(),
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Limit to a single channel",
				},
			},
		},
		{
			Name:        "channels",
			Description: "Compare activity across tracked channels",
			Options:     []*discordgo.ApplicationCommandOption{periodOption()},
		},
		{
			Name:        "engagement",
			Description: "Engagement profile for a member",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to profile (defaults to you)",
				},
				periodOption(),
			},
		},
		{
			Name:        "voice",
			Description: "Voice channel usage",
			Options:     []*discordgo.ApplicationCommandOption{periodOption()},
		},
		{
			Name:        "timeline",
			Description: "Hourly activity timeline",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "hours",
					Description: "Window size in hours",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "12 hours", Value: 12},
						{Name: "24 hours", Value: 24},
						{Name: "48 hours", Value: 48},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Limit to a single channel",
				},
			},
		},
		{
			Name:        "pulse",
			Description: "AI-generated activity report",
			Options:     []*discordgo.ApplicationCommandOption{periodOption()},
		},
		{
			Name:        "insight",
			Description: "Ask the AI a question about server activity",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "question",
					Description: "What do you want to know?",
					Required:    true,
				},
			},
		},
		{
			Name:                     "setup",
			Description:              "Set the channel for alerts and digests",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel for alerts and scheduled digests",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "digest",
					Description: "Digest frequency",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "daily", Value: store.DigestDaily},
						{Name: "weekly", Value: store.DigestWeekly},
						{Name: "none", Value: store.DigestNone},
					},
				},
			},
		},
		{
			Name:                     "track",
			Description:              "Manage which channels are tracked",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "add, remove, or clear",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "add", Value: "add"},
						{Name: "remove", Value: "remove"},
						{Name: "clear", Value: "clear"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel to add or remove",
				},
			},
		},
		{
			Name:                     "alerts",
			Description:              "Enable, disable, or tune an alert",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "kind",
					Description: "Alert to configure",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Join raid", Value: store.AlertJoinRaid},
						{Name: "Activity drop", Value: store.AlertActivityDrop},
						{Name: "Activity spike", Value: store.AlertActivitySpike},
						{Name: "Mass delete", Value: store.AlertMassDelete},
						{Name: "Voice surge", Value: store.AlertVoiceSurge},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "enabled",
					Description: "Turn the alert on or off",
				},
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "threshold",
					Description: "Override the trigger threshold",
				},
			},
		},
		{
			Name:                     "provider",
			Description:              "Configure the AI provider",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "set or test",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "set", Value: "set"},
						{Name: "test", Value: "test"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Provider name",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "OpenAI", Value: "openai"},
						{Name: "OpenRouter", Value: "openrouter"},
						{Name: "Grok", Value: "grok"},
						{Name: "Gemini", Value: "gemini"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "api_key",
					Description: "API key for the provider",
				},
			},
		},
	}

	appID := b.session.State.User.ID
	guildID := b.cfg.DeveloperGuildID

	for _, cmd := range commands {
		if _, err := b.session.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
			return fmt.Errorf("register %s: %w", cmd.Name, err)
		}
	}
	b.logger.Info("commands registered", zap.Int("count", len(commands)), zap.String("scope", guildID))
	return nil
}

type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

func parseOptions(options []*discordgo.ApplicationCommandInteractionDataOption) commandOptions {
	parsed := make(commandOptions, len(options))
	for _, option := range options {
		parsed[option.Name] = option
	}
	return parsed
}

func (o commandOptions) str(name, fallback string) string {
	if option, ok := o[name]; ok {
		return option.StringValue()
	}
	return fallback
}

func (o commandOptions) channelID(session *discordgo.Session, name string) string {
	option, ok := o[name]
	if !ok {
		return ""
	}
	channel := option.ChannelValue(session)
	if channel == nil {
		return ""
	}
	return channel.ID
}

func (b *Bot) handleLeaderboard(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := parseOptions(options)
	period := opts.str("period", "7d")
	channelID := opts.channelID(session, "channel")

	entries, err := b.engine.Leaderboard(ctx, interaction.GuildID, period, channelID, 10)
	if err != nil {
		b.logger.Warn("leaderboard failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respond(session, interaction, "Could not load the leaderboard right now.", true)
		return
	}
	if len(entries) == 0 {
		b.respond(session, interaction, fmt.Sprintf("No messages recorded in %s for %s.", channelMention(channelID), analytics.PeriodDisplay(period)), true)
		return
	}

	var sb strings.Builder
	for i, entry := range entries {
		fmt.Fprintf(&sb, "%s <@%s> — %s messages (avg %.0f chars)\n",
			utils.RankLabel(i+1), entry.UserID, utils.FormatNumber(entry.MessageCount), entry.AvgLength)
	}

	embed := b.commandEmbed(
		fmt.Sprintf("🏆 Leaderboard — %s", analytics.PeriodDisplay(period)),
		sb.String(), colorInfo, nil)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Scope: " + channelMention(channelID)}
	b.respondEmbed(session, interaction, embed, false)
}

func (b *Bot) handleStats(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := parseOptions(options)
	period := opts.str("period", "24h")
	channelID := opts.channelID(session, "channel")

	stats, err := b.engine.ServerStats(ctx, interaction.GuildID, period, channelID)
	if err != nil {
		b.logger.Warn("stats failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respond(session, interaction, "Could not load server stats right now.", true)
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Messages", Value: utils.FormatNumber(stats.Messages.TotalMessages), Inline: true},
		{Name: "Active Users", Value: utils.FormatNumber(stats.Messages.UniqueUsers), Inline: true},
		{Name: "Avg Length", Value: fmt.Sprintf("%.0f chars", stats.Messages.AvgMessageLength), Inline: true},
		{Name: "Attachments", Value: utils.FormatNumber(stats.Messages.Attachments), Inline: true},
		{Name: "Joins / Leaves", Value: fmt.Sprintf("+%d / -%d", stats.Members.Joins, stats.Members.Leaves), Inline: true},
		{Name: "Activity Score", Value: utils.FormatNumber(stats.ActivityScore), Inline: true},
	}

	description := fmt.Sprintf("Scope: %s", channelMention(channelID))
	if stats.Anomaly != "" {
		description += "\n⚠️ Anomaly: " + describeAnomaly(stats.Anomaly)
	}

	embed := b.commandEmbed(
		fmt.Sprintf("📊 Server Stats — %s", analytics.PeriodDisplay(period)),
		description, colorInfo, fields)
	b.respondEmbed(session, interaction, embed, false)
}

func describeAnomaly(anomaly string) string {
	kind, pct, found := strings.Cut(anomaly, "_")
	if !found {
		return anomaly
	}
	switch kind {
	case "spike":
		return fmt.Sprintf("activity spike, %s%% above the weekly baseline", pct)
	case "drop":
		return fmt.Sprintf("activity drop, %s%% below the weekly baseline", pct)
	}
	return anomaly
}

func (b *Bot) handleChannels(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := parseOptions(options)
	period := opts.str("period", "7d")

	comparison, err := b.engine.ChannelComparison(ctx, interaction.GuildID, period)
	if err != nil {
		b.logger.Warn("channel comparison failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respond(session, interaction, "Could not compare channels right now.", true)
		return
	}
	if len(comparison) == 0 {
		b.respond(session, interaction, "No tracked channels configured. Use /track to add some.", true)
		return
	}

	var sb strings.Builder
	for i, channel := range comparison {
		fmt.Fprintf(&sb, "%s <#%s> — score %s, %s messages, %d users\n",
			utils.RankLabel(i+1), channel.ChannelID, utils.FormatNumber(channel.ActivityScore),
			utils.FormatNumber(channel.Messages.TotalMessages), channel.Messages.UniqueUsers)
	}

	embed := b.commandEmbed(
		fmt.Sprintf("📋 Channel Comparison — %s", analytics.PeriodDisplay(period)),
		sb.String(), colorInfo, nil)
	b.respondEmbed(session, interaction, embed, false)
}

func (b *Bot) handleEngagement(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := parseOptions(options)
	period := opts.str("period", "7d")

	userID := ""
	if option, ok := opts["user"]; ok {
		if user := option.UserValue(session); user != nil {
			userID = user.ID
		}
	}
	if userID == "" && interaction.Member != nil && interaction.Member.User != nil {
		userID = interaction.Member.User.ID
	}
	if userID == "" {
		b.respond(session, interaction, "Could not resolve a member to profile.", true)
		return
	}

	engagement, err := b.engine.UserEngagement(ctx, interaction.GuildID, userID, period)
	if err != nil {
		b.logger.Warn("engagement failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respond(session, interaction, "Could not load engagement data right now.", true)
		return
	}
	if engagement.TotalMessages == 0 {
		b.respond(session, interaction, fmt.Sprintf("<@%s> has no recorded activity in %s.", userID, analytics.PeriodDisplay(period)), true)
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Messages", Value: utils.FormatNumber(engagement.TotalMessages), Inline: true},
		{Name: "Avg Length", Value: fmt.Sprintf("%.0f chars", engagement.AvgMessageLength), Inline: true},
		{Name: "Channels Used", Value: fmt.Sprintf("%d", len(engagement.ChannelsUsed)), Inline: true},
	}
	if hour, count := peakHour(engagement.HourlyActivity); count > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Peak Hour", Value: fmt.Sprintf("%02d:00 UTC (%d messages)", hour, count), Inline: true,
		})
	}

	embed := b.commandEmbed(
		fmt.Sprintf("👤 Engagement — %s", analytics.PeriodDisplay(period)),
		fmt.Sprintf("<@%s>", userID), colorInfo, fields)
	b.respondEmbed(session, interaction, embed, false)
}

func peakHour(hourly map[int]int) (int, int) {
	bestHour, bestCount := 0, 0
	for hour := 0; hour < 24; hour++ {
		if hourly[hour] > bestCount {
			bestHour, bestCount = hour, hourly[hour]
		}
	}
	return bestHour, bestCount
}

func (b *Bot) handleVoice(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := parseOptions(options)
	period := opts.str("period", "7d")
	window := analytics.PeriodWindow(period)

	stats, err := b.store.VoiceStats(ctx, interaction.GuildID, window, "")
	if err != nil {
		b.logger.Warn("voice stats failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respond(session, interaction, "Could not load voice stats right now.", true)
		return
	}
	if stats.TotalSessions == 0 {
		b.respond(session, interaction, fmt.Sprintf("No voice activity recorded in %s.", analytics.PeriodDisplay(period)), true)
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Sessions", Value: utils.FormatNumber(stats.TotalSessions), Inline: true},
		{Name: "Users", Value: utils.FormatNumber(stats.UniqueUsers), Inline: true},
		{Name: "Total Time", Value: utils.FormatDuration(stats.TotalDuration), Inline: true},
		{Name: "Avg Session", Value: utils.FormatDuration(stats.AvgDuration), Inline: true},
		{Name: "Longest", Value: utils.FormatDuration(stats.LongestSession), Inline: true},
	}

	description := ""
	if usage, err := b.store.VoiceChannelUsage(ctx, interaction.GuildID, window, 5); err == nil && len(usage) > 0 {
		var sb strings.Builder
		for _, channel := range usage {
			fmt.Fprintf(&sb, "<#%s> — %d sessions, %s\n", channel.ChannelID, channel.Sessions, utils.FormatDuration(channel.TotalDuration))
		}
		description = sb.String()
	}

	embed := b.commandEmbed(
		fmt.Sprintf("🔊 Voice Activity — %s", analytics.PeriodDisplay(period)),
		description, colorInfo, fields)
	b.respondEmbed(session, interaction, embed, false)
}

func (b *Bot) handleTimeline(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := parseOptions(options)
	hours := 24
	if option, ok := opts["hours"]; ok {
		hours = int(option.IntValue())
	}
	channelID := opts.channelID(session, "channel")

	points, err := b.engine.Timeline(ctx, interaction.GuildID, hours, 60, channelID)
	if err != nil {
		b.logger.Warn("timeline failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respond(session, interaction, "Could not load the timeline right now.", true)
		return
	}

	peak := 0
	for _, point := range points {
		if point.Stats.MessageCount > peak {
			peak = point.Stats.MessageCount
		}
	}
	if peak == 0 {
		b.respond(session, interaction, fmt.Sprintf("No activity in the last %d hours for %s.", hours, channelMention(channelID)), true)
		return
	}

	var sb strings.Builder
	for _, point := range points {
		bars := point.Stats.MessageCount * 16 / peak
		fmt.Fprintf(&sb, "`%s` %s %d\n",
			point.Timestamp.Format("Jan 02 15:04"), strings.Repeat("▇", bars), point.Stats.MessageCount)
	}

	embed := b.commandEmbed(
		fmt.Sprintf("📈 Timeline — last %d hours", hours),
		sb.String(), colorInfo, nil)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Scope: " + channelMention(channelID)}
	b.respondEmbed(session, interaction, embed, false)
}

func (b *Bot) handlePulse(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := parseOptions(options)
	period := opts.str("period", "7d")

	b.deferResponse(session, interaction)

	report, err := b.reports.PulseReport(ctx, interaction.GuildID, b.guildName(interaction.GuildID), period)
	if err != nil {
		b.logger.Warn("pulse report failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.followUp(session, interaction, "Report generation failed: "+err.Error())
		return
	}

	embed := b.commandEmbed(
		fmt.Sprintf("🧠 Pulse Report — %s", analytics.PeriodDisplay(period)),
		utils.Truncate(report, 4000), colorAI, nil)
	b.followUpEmbed(session, interaction, embed)
}

func (b *Bot) handleInsight(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := parseOptions(options)
	question := opts.str("question", "")
	if question == "" {
		b.respond(session, interaction, "A question is required.", true)
		return
	}

	b.deferResponse(session, interaction)

	answer, err := b.reports.Insight(ctx, interaction.GuildID, b.guildName(interaction.GuildID), question)
	if err != nil {
		b.logger.Warn("insight failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.followUp(session, interaction, "Insight generation failed: "+err.Error())
		return
	}

	embed := b.commandEmbed("💡 Insight", utils.Truncate(answer, 4000), colorAI, nil)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: utils.Truncate(question, 200)}
	b.followUpEmbed(session, interaction, embed)
}

func (b *Bot) handleSetup(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := parseOptions(options)
	channelID := opts.channelID(session, "channel")
	if channelID == "" {
		b.respond(session, interaction, "A channel is required.", true)
		return
	}

	settings := b.guildSettings(ctx, interaction.GuildID)
	settings.UpdateChannelID = channelID
	settings.SetupCompleted = true
	if digest := opts.str("digest", ""); digest != "" {
		settings.DigestFrequency = digest
	}

	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Warn("setup failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respond(session, interaction, "Saving the configuration failed.", true)
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Update Channel", Value: "<#" + channelID + ">", Inline: true},
		{Name: "Digest", Value: settings.DigestFrequency, Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("✅ Setup Complete", "Alerts and digests will be posted here.", colorOK, fields), true)
}

func (b *Bot) handleTrack(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := parseOptions(options)
	action := opts.str("action", "")
	channelID := opts.channelID(session, "channel")

	settings := b.guildSettings(ctx, interaction.GuildID)

	switch action {
	case "add":
		if channelID == "" {
			b.respond(session, interaction, "A channel is required to add.", true)
			return
		}
		if !settings.TracksChannel(channelID) {
			settings.TrackedChannels = append(settings.TrackedChannels, channelID)
		}
	case "remove":
		if channelID == "" {
			b.respond(session, interaction, "A channel is required to remove.", true)
			return
		}
		kept := settings.TrackedChannels[:0]
		for _, id := range settings.TrackedChannels {
			if id != channelID {
				kept = append(kept, id)
			}
		}
		settings.TrackedChannels = kept
	case "clear":
		settings.TrackedChannels = []string{}
	default:
		b.respond(session, interaction, "Unknown action.", true)
		return
	}

	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Warn("track update failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respond(session, interaction, "Saving the configuration failed.", true)
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Tracked Channels", Value: joinChannelMentions(settings.TrackedChannels), Inline: false},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("📌 Tracking Updated", "An empty list means every channel is tracked.", colorOK, fields), true)
}

func (b *Bot) handleAlerts(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := parseOptions(options)
	kind := opts.str("kind", "")
	if kind == "" {
		b.respond(session, interaction, "An alert kind is required.", true)
		return
	}

	settings := b.guildSettings(ctx, interaction.GuildID)
	if settings.AlertsEnabled == nil {
		settings.AlertsEnabled = map[string]bool{}
	}
	if settings.AlertThresholds == nil {
		settings.AlertThresholds = map[string]float64{}
	}

	if option, ok := opts["enabled"]; ok {
		settings.AlertsEnabled[kind] = option.BoolValue()
	}
	if option, ok := opts["threshold"]; ok {
		if value := option.FloatValue(); value > 0 {
			settings.AlertThresholds[kind] = value
		}
	}

	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Warn("alert update failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respond(session, interaction, "Saving the configuration failed.", true)
		return
	}

	state := "enabled"
	if !settings.AlertEnabled(kind) {
		state = "disabled"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Alert", Value: kind, Inline: true},
		{Name: "State", Value: state, Inline: true},
	}
	if threshold, ok := settings.AlertThresholds[kind]; ok && threshold > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Threshold", Value: fmt.Sprintf("%g", threshold), Inline: true})
	}
	b.respondEmbed(session, interaction, b.commandEmbed("🔔 Alert Updated", "", colorOK, fields), true)
}

func (b *Bot) handleProvider(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := parseOptions(options)
	action := opts.str("action", "")

	settings := b.guildSettings(ctx, interaction.GuildID)

	switch action {
	case "set":
		name := opts.str("name", "")
		if name == "" {
			b.respond(session, interaction, "A provider name is required.", true)
			return
		}
		settings.AIProvider = name
		if key := opts.str("api_key", ""); key != "" {
			if settings.AIAPIKeys == nil {
				settings.AIAPIKeys = map[string]string{}
			}
			settings.AIAPIKeys[name] = key
		}
		if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
			b.logger.Warn("provider update failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
			b.respond(session, interaction, "Saving the configuration failed.", true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("🤖 Provider Updated", "Active provider: "+name, colorOK, nil), true)
	case "test":
		name := opts.str("name", settings.AIProvider)
		b.deferResponse(session, interaction)
		if err := b.reports.TestProvider(ctx, name, settings.AIAPIKeys[name]); err != nil {
			b.followUp(session, interaction, fmt.Sprintf("❌ %s test failed: %s", name, err.Error()))
			return
		}
		b.followUp(session, interaction, fmt.Sprintf("✅ %s responded successfully.", name))
	default:
		b.respond(session, interaction, "Unknown action.", true)
	}
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) store.GuildSettings {
	settings, err := b.store.GuildSettings(ctx, guildID)
	if err != nil {
		return store.DefaultGuildSettings(guildID, b.guildName(guildID), b.cfg.DefaultProvider, nil)
	}
	return settings
}

func (b *Bot) guildName(guildID string) string {
	if guild, err := b.session.State.Guild(guildID); err == nil {
		return guild.Name
	}
	return ""
}
