package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const databaseName = "serverpulse"

// Store persists raw activity events and per-guild settings in MongoDB.
// All aggregate queries are server-side pipelines; callers treat failures
// as a generic data-unavailable condition.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(ctx context.Context, uri string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &Store{client: client, db: client.Database(databaseName)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the compound indexes the aggregation queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	specs := map[string][]mongo.IndexModel{
		"guild_settings": {
			{Keys: bson.D{{Key: "guild_id", Value: 1}}, Options: unique},
		},
		"messages": {
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "channel_id", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		"member_events": {
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		"voice_sessions": {
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "started_at", Value: -1}}},
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "ended_at", Value: 1}}},
		},
		"ai_reports": {
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
	}

	for name, models := range specs {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", name, err)
		}
	}
	return nil
}

// CleanupOldData removes documents older than the retention cutoff from every
// time-series collection and reports the deleted count per collection.
func (s *Store) CleanupOldData(ctx context.Context, retentionDays int) (map[string]int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	deleted := make(map[string]int64)

	for _, name := range []string{"messages", "member_events", "ai_reports"} {
		result, err := s.db.Collection(name).DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
		if err != nil {
			return deleted, fmt.Errorf("cleanup %s: %w", name, err)
		}
		deleted[name] = result.DeletedCount
	}

	result, err := s.db.Collection("voice_sessions").DeleteMany(ctx, bson.M{"started_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return deleted, fmt.Errorf("cleanup voice_sessions: %w", err)
	}
	deleted["voice_sessions"] = result.DeletedCount

	return deleted, nil
}
