package bot

import (
	"context"
	"errors"

	"serverpulse/internal/store"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("gateway ready",
		zap.String("user", event.User.Username),
		zap.Int("guilds", len(event.Guilds)))
	_ = session.UpdateWatchStatus(0, "server activity")
}

func (b *Bot) onGuildCreate(session *discordgo.Session, event *discordgo.GuildCreate) {
	_ = session
	ctx := context.Background()

	_, err := b.store.GuildSettings(ctx, event.ID)
	if err == nil {
		return
	}
	if !errors.Is(err, store.ErrGuildNotFound) {
		b.logger.Warn("guild settings lookup failed", zap.String("guild_id", event.ID), zap.Error(err))
		return
	}

	thresholds := map[string]float64{
		store.AlertJoinRaid:     b.cfg.Alerts.JoinRaidThreshold,
		store.AlertActivityDrop: b.cfg.Alerts.ActivityDropThreshold,
		store.AlertMassDelete:   b.cfg.Alerts.MassDeleteThreshold,
		store.AlertVoiceSurge:   b.cfg.Alerts.VoiceSurgeMultiplier,
	}
	settings := store.DefaultGuildSettings(event.ID, event.Name, b.cfg.DefaultProvider, thresholds)
	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Warn("guild settings init failed", zap.String("guild_id", event.ID), zap.Error(err))
		return
	}
	b.logger.Info("guild registered", zap.String("guild_id", event.ID), zap.String("name", event.Name))
}

func (b *Bot) onGuildDelete(session *discordgo.Session, event *discordgo.GuildDelete) {
	_ = session
	if event.Unavailable {
		return
	}
	ctx := context.Background()
	removed, err := b.cache.ClearGuild(ctx, event.ID)
	if err != nil {
		b.logger.Warn("guild cache clear failed", zap.String("guild_id", event.ID), zap.Error(err))
		return
	}
	b.logger.Info("guild removed", zap.String("guild_id", event.ID), zap.Int("cache_keys", removed))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, event *discordgo.MessageCreate) {
	_ = session
	if event.Author == nil || event.Author.Bot || event.GuildID == "" {
		return
	}

	ctx := context.Background()
	settings, err := b.store.GuildSettings(ctx, event.GuildID)
	if err == nil && len(settings.TrackedChannels) > 0 && !settings.TracksChannel(event.ChannelID) {
		return
	}

	if err := b.engine.RecordMessage(ctx, event.GuildID, event.ChannelID, event.Author.ID, len(event.Content), len(event.Attachments) > 0); err != nil {
		b.logger.Warn("message record failed", zap.String("guild_id", event.GuildID), zap.Error(err))
		return
	}

	b.dispatcher.CheckMessageActivity(ctx, event.GuildID)
}

func (b *Bot) onMessageDelete(session *discordgo.Session, event *discordgo.MessageDelete) {
	_ = session
	if event.GuildID == "" {
		return
	}
	b.dispatcher.CheckMassDelete(context.Background(), event.GuildID, event.ChannelID)
}

func (b *Bot) onMessageDeleteBulk(session *discordgo.Session, event *discordgo.MessageDeleteBulk) {
	_ = session
	if event.GuildID == "" {
		return
	}
	b.dispatcher.TriggerMassDelete(context.Background(), event.GuildID, event.ChannelID, len(event.Messages))
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	_ = session
	if event.User == nil || event.User.Bot {
		return
	}

	ctx := context.Background()
	if err := b.store.RecordMemberEvent(ctx, event.GuildID, event.User.ID, store.MemberEventJoin); err != nil {
		b.logger.Warn("join record failed", zap.String("guild_id", event.GuildID), zap.Error(err))
		return
	}

	b.dispatcher.CheckJoinRaid(ctx, event.GuildID)
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	_ = session
	if event.User == nil || event.User.Bot {
		return
	}

	ctx := context.Background()
	if err := b.store.RecordMemberEvent(ctx, event.GuildID, event.User.ID, store.MemberEventLeave); err != nil {
		b.logger.Warn("leave record failed", zap.String("guild_id", event.GuildID), zap.Error(err))
	}
}

func (b *Bot) onVoiceStateUpdate(session *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if event.GuildID == "" || event.UserID == "" {
		return
	}
	if event.Member != nil && event.Member.User != nil && event.Member.User.Bot {
		return
	}

	ctx := context.Background()

	switch {
	case event.ChannelID == "":
		if err := b.store.CloseVoiceSession(ctx, event.GuildID, event.UserID); err != nil {
			b.logger.Warn("voice session close failed", zap.String("guild_id", event.GuildID), zap.Error(err))
		}
		return
	case event.BeforeUpdate == nil || event.BeforeUpdate.ChannelID != event.ChannelID:
		if err := b.store.OpenVoiceSession(ctx, event.GuildID, event.UserID, event.ChannelID); err != nil {
			b.logger.Warn("voice session open failed", zap.String("guild_id", event.GuildID), zap.Error(err))
			return
		}
	default:
		// Mute, deafen, or stream toggles inside the same channel.
		return
	}

	guild, err := session.State.Guild(event.GuildID)
	if err != nil {
		return
	}
	occupancy := 0
	for _, state := range guild.VoiceStates {
		if state.ChannelID != "" {
			occupancy++
		}
	}
	b.dispatcher.CheckVoiceSurge(ctx, event.GuildID, occupancy, guild.MemberCount)
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()

	if interaction.GuildID == "" {
		b.respond(session, interaction, "This command only works inside a server.", true)
		return
	}

	switch data.Name {
	case "leaderboard":
		b.handleLeaderboard(ctx, session, interaction, data.Options)
	case "stats":
		b.handleStats(ctx, session, interaction, data.Options)
	case "channels":
		b.handleChannels(ctx, session, interaction, data.Options)
	case "engagement":
		b.handleEngagement(ctx, session, interaction, data.Options)
	case "voice":
		b.handleVoice(ctx, session, interaction, data.Options)
	case "timeline":
		b.handleTimeline(ctx, session, interaction, data.Options)
	case "pulse":
		b.handlePulse(ctx, session, interaction, data.Options)
	case "insight":
		b.handleInsight(ctx, session, interaction, data.Options)
	case "setup":
		b.handleSetup(ctx, session, interaction, data.Options)
	case "track":
		b.handleTrack(ctx, session, interaction, data.Options)
	case "alerts":
		b.handleAlerts(ctx, session, interaction, data.Options)
	case "provider":
		b.handleProvider(ctx, session, interaction, data.Options)
	}
}
