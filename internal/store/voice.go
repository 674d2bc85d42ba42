package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// OpenVoiceSession starts a session for (guild, user). At most one session per
// pair may be open; a stale open session is finalized first so the invariant
// holds even when a leave event was missed.
func (s *Store) OpenVoiceSession(ctx context.Context, guildID, userID, channelID string) error {
	now := time.Now().UTC()

	if err := s.closeOpenSessions(ctx, guildID, userID, now); err != nil {
		return err
	}

	session := VoiceSession{
		GuildID:   guildID,
		UserID:    userID,
		ChannelID: channelID,
		StartedAt: now,
	}
	if _, err := s.db.Collection("voice_sessions").InsertOne(ctx, session); err != nil {
		return fmt.Errorf("open voice session: %w", err)
	}
	return nil
}

// CloseVoiceSession finalizes the open session for (guild, user), setting the
// end timestamp and derived duration. Closing with no open session is a no-op.
func (s *Store) CloseVoiceSession(ctx context.Context, guildID, userID string) error {
	return s.closeOpenSessions(ctx, guildID, userID, time.Now().UTC())
}

func (s *Store) closeOpenSessions(ctx context.Context, guildID, userID string, at time.Time) error {
	cursor, err := s.db.Collection("voice_sessions").Find(ctx, bson.M{
		"guild_id": guildID,
		"user_id":  userID,
		"ended_at": nil,
	})
	if err != nil {
		return fmt.Errorf("find open voice sessions: %w", err)
	}

	var open []struct {
		ID        any       `bson:"_id"`
		StartedAt time.Time `bson:"started_at"`
	}
	if err := cursor.All(ctx, &open); err != nil {
		return fmt.Errorf("decode open voice sessions: %w", err)
	}

	for _, session := range open {
		duration := int64(at.Sub(session.StartedAt).Seconds())
		if duration < 0 {
			duration = 0
		}
		_, err := s.db.Collection("voice_sessions").UpdateOne(ctx,
			bson.M{"_id": session.ID},
			bson.M{"$set": bson.M{"ended_at": at, "duration_seconds": duration}},
		)
		if err != nil {
			return fmt.Errorf("close voice session: %w", err)
		}
	}
	return nil
}

// VoiceStats aggregates finalized sessions over the trailing window.
func (s *Store) VoiceStats(ctx context.Context, guildID string, window time.Duration, channelID string) (VoiceSessionStats, error) {
	match := bson.M{
		"guild_id":   guildID,
		"started_at": bson.M{"$gte": time.Now().UTC().Add(-window)},
		"ended_at":   bson.M{"$ne": nil},
	}
	if channelID != "" {
		match["channel_id"] = channelID
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"total_sessions": bson.M{"$sum": 1},
			"unique_users":   bson.M{"$addToSet": "$user_id"},
			"total_duration": bson.M{"$sum": "$duration_seconds"},
			"avg_duration":   bson.M{"$avg": "$duration_seconds"},
			"max_duration":   bson.M{"$max": "$duration_seconds"},
			"min_duration":   bson.M{"$min": "$duration_seconds"},
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"total_sessions": 1,
			"unique_users":   bson.M{"$size": "$unique_users"},
			"total_duration": 1,
			"avg_duration":   bson.M{"$toLong": "$avg_duration"},
			"max_duration":   1,
			"min_duration":   1,
		}}},
	}

	var results []VoiceSessionStats
	if err := s.aggregate(ctx, "voice_sessions", pipeline, &results); err != nil {
		return VoiceSessionStats{}, fmt.Errorf("voice stats: %w", err)
	}
	if len(results) == 0 {
		return VoiceSessionStats{}, nil
	}
	return results[0], nil
}

// VoiceChannelUsage ranks voice channels by session count over the window.
func (s *Store) VoiceChannelUsage(ctx context.Context, guildID string, window time.Duration, limit int) ([]VoiceChannelUsage, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"guild_id":   guildID,
			"started_at": bson.M{"$gte": time.Now().UTC().Add(-window)},
			"ended_at":   bson.M{"$ne": nil},
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":            "$channel_id",
			"sessions":       bson.M{"$sum": 1},
			"total_duration": bson.M{"$sum": "$duration_seconds"},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"sessions": -1}}},
		bson.D{{Key: "$limit", Value: limit}},
		bson.D{{Key: "$project", Value: bson.M{
			"_id":            0,
			"channel_id":     "$_id",
			"sessions":       1,
			"total_duration": 1,
		}}},
	}

	var usage []VoiceChannelUsage
	if err := s.aggregate(ctx, "voice_sessions", pipeline, &usage); err != nil {
		return nil, fmt.Errorf("voice channel usage: %w", err)
	}
	return usage, nil
}
