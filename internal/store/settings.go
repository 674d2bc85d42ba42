package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrGuildNotFound is returned when a guild has no settings document yet.
var ErrGuildNotFound = errors.New("guild settings not found")

func (s *Store) GuildSettings(ctx context.Context, guildID string) (GuildSettings, error) {
	var settings GuildSettings
	err := s.db.Collection("guild_settings").FindOne(ctx, bson.M{"guild_id": guildID}).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return GuildSettings{}, ErrGuildNotFound
		}
		return GuildSettings{}, fmt.Errorf("get guild settings: %w", err)
	}
	return settings, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = settings.UpdatedAt
	}

	_, err := s.db.Collection("guild_settings").UpdateOne(ctx,
		bson.M{"guild_id": settings.GuildID},
		bson.M{"$set": settings},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert guild settings: %w", err)
	}
	return nil
}

// DefaultGuildSettings builds the settings document written when the bot
// joins a guild.
func DefaultGuildSettings(guildID, guildName, provider string, thresholds map[string]float64) GuildSettings {
	enabled := map[string]bool{
		AlertJoinRaid:      true,
		AlertActivityDrop:  true,
		AlertActivitySpike: true,
		AlertMassDelete:    true,
		AlertVoiceSurge:    true,
	}
	return GuildSettings{
		GuildID:         guildID,
		GuildName:       guildName,
		SetupCompleted:  false,
		TrackedChannels: []string{},
		AlertsEnabled:   enabled,
		AlertThresholds: thresholds,
		AIProvider:      provider,
		AIAPIKeys:       map[string]string{},
		DigestFrequency: DigestWeekly,
		CreatedAt:       time.Now().UTC(),
	}
}
