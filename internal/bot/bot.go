package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"serverpulse/internal/ai"
	"serverpulse/internal/alerts"
	"serverpulse/internal/analytics"
	"serverpulse/internal/cache"
	"serverpulse/internal/config"
	"serverpulse/internal/store"
	"serverpulse/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorInfo  = 0x3498DB
	colorOK    = 0x2ECC71
	colorAlert = 0xE74C3C
	colorAI    = 0x9B59B6
)

type Bot struct {
	cfg        config.Config
	logger     *zap.Logger
	store      *store.Store
	cache      *cache.Cache
	engine     *analytics.Engine
	dispatcher *alerts.Dispatcher
	reports    *ai.Generator
	session    *discordgo.Session
	stop       chan struct{}
}

func New(cfg config.Config, logger *zap.Logger, st *store.Store, ca *cache.Cache, engine *analytics.Engine, reports *ai.Generator) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		cache:   ca,
		engine:  engine,
		reports: reports,
		session: session,
		stop:    make(chan struct{}),
	}
	b.dispatcher = alerts.New(st, ca, st, b, cfg.Alerts, logger)

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onGuildDelete)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onMessageDeleteBulk)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onVoiceStateUpdate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	b.startRetentionLoop()
	b.startDigestLoop()

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	close(b.stop)
	if b.session != nil {
		_ = b.session.Close()
	}
}

// SendAlert posts an alert embed to the guild's update channel. Guilds
// without an update channel drop the alert.
func (b *Bot) SendAlert(ctx context.Context, settings store.GuildSettings, alert alerts.Alert) error {
	_ = ctx
	if settings.UpdateChannelID == "" {
		return fmt.Errorf("guild %s has no update channel", settings.GuildID)
	}
	_, err := b.session.ChannelMessageSendEmbed(settings.UpdateChannelID, alertEmbed(alert))
	return err
}

func alertEmbed(alert alerts.Alert) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Color:     colorAlert,
		Timestamp: alert.At.Format(time.RFC3339),
	}
	switch alert.Kind {
	case store.AlertJoinRaid:
		embed.Title = "🚨 Join Raid Detected"
		embed.Description = fmt.Sprintf("%d members joined in the last minute (threshold %d).", int(alert.Magnitude), int(alert.Threshold))
	case store.AlertActivityDrop:
		embed.Title = "📉 Activity Drop"
		embed.Description = fmt.Sprintf("Message activity is down %d%% against the weekly average (%.1f msgs/hour).", -int(alert.Magnitude), alert.Baseline)
	case store.AlertActivitySpike:
		embed.Title = "📈 Activity Spike"
		embed.Description = fmt.Sprintf("Message activity is up %d%% against the weekly average (%.1f msgs/hour).", int(alert.Magnitude), alert.Baseline)
	case store.AlertMassDelete:
		embed.Title = "🗑️ Mass Message Deletion"
		embed.Description = fmt.Sprintf("%d messages deleted in <#%s> within 30 seconds.", int(alert.Magnitude), alert.ChannelID)
	case store.AlertVoiceSurge:
		embed.Title = "🔊 Voice Activity Surge"
		embed.Description = fmt.Sprintf("%d members in voice, %.1fx the usual occupancy.", int(alert.Magnitude), alert.Magnitude/alert.Baseline)
	default:
		embed.Title = "Alert"
		embed.Description = alert.Kind
	}
	return embed
}

func (b *Bot) startRetentionLoop() {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-b.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				removed, err := b.store.CleanupOldData(ctx, b.cfg.RetentionDays)
				cancel()
				if err != nil {
					b.logger.Warn("retention cleanup failed", zap.Error(err))
					continue
				}
				b.logger.Info("retention cleanup finished", zap.Any("removed", removed))
			}
		}
	}()
}

// startDigestLoop checks once an hour whether a guild's scheduled digest is
// due. Daily digests go out in the 08:00 UTC hour, weekly digests on Monday
// in the same hour.
func (b *Bot) startDigestLoop() {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-b.stop:
				return
			case <-ticker.C:
				now := time.Now().UTC()
				if now.Hour() != 8 {
					continue
				}
				b.sendDigests(now)
			}
		}
	}()
}

func (b *Bot) sendDigests(now time.Time) {
	for _, guild := range b.session.State.Guilds {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		b.sendDigest(ctx, guild, now)
		cancel()
	}
}

func (b *Bot) sendDigest(ctx context.Context, guild *discordgo.Guild, now time.Time) {
	settings, err := b.store.GuildSettings(ctx, guild.ID)
	if err != nil || settings.UpdateChannelID == "" {
		return
	}

	period := ""
	switch settings.DigestFrequency {
	case store.DigestDaily:
		period = "24h"
	case store.DigestWeekly:
		if now.Weekday() != time.Monday {
			return
		}
		period = "7d"
	default:
		return
	}

	report, err := b.reports.PulseReport(ctx, guild.ID, guild.Name, period)
	if err != nil {
		b.logger.Warn("digest generation failed", zap.String("guild_id", guild.ID), zap.Error(err))
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📬 %s Pulse Digest", guild.Name),
		Description: utils.Truncate(report, 4000),
		Color:       colorAI,
		Timestamp:   now.Format(time.RFC3339),
	}
	if _, err := b.session.ChannelMessageSendEmbed(settings.UpdateChannelID, embed); err != nil {
		b.logger.Warn("digest send failed", zap.String("guild_id", guild.ID), zap.Error(err))
	}
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func (b *Bot) deferResponse(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func (b *Bot) followUpEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	_, _ = session.InteractionResponseEdit(interaction.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
}

func (b *Bot) followUp(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string) {
	_, _ = session.InteractionResponseEdit(interaction.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func channelMention(channelID string) string {
	if channelID == "" {
		return "all channels"
	}
	return "<#" + channelID + ">"
}

func joinChannelMentions(ids []string) string {
	if len(ids) == 0 {
		return "all channels"
	}
	mentions := make([]string, 0, len(ids))
	for _, id := range ids {
		mentions = append(mentions, "<#"+id+">")
	}
	return strings.Join(mentions, " ")
}
