package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	MemberEventJoin  = "join"
	MemberEventLeave = "leave"
)

func (s *Store) RecordMemberEvent(ctx context.Context, guildID, userID, eventType string) error {
	event := MemberEvent{
		GuildID:   guildID,
		UserID:    userID,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
	if _, err := s.db.Collection("member_events").InsertOne(ctx, event); err != nil {
		return fmt.Errorf("record member event: %w", err)
	}
	return nil
}

func (s *Store) MemberActivity(ctx context.Context, guildID string, window time.Duration) (MemberActivity, error) {
	start := time.Now().UTC().Add(-window)

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"guild_id":  guildID,
			"timestamp": bson.M{"$gte": start},
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   "$event_type",
			"count": bson.M{"$sum": 1},
		}}},
	}

	var results []struct {
		EventType string `bson:"_id"`
		Count     int    `bson:"count"`
	}
	if err := s.aggregate(ctx, "member_events", pipeline, &results); err != nil {
		return MemberActivity{}, fmt.Errorf("member activity: %w", err)
	}

	var activity MemberActivity
	for _, result := range results {
		switch result.EventType {
		case MemberEventJoin:
			activity.Joins = result.Count
		case MemberEventLeave:
			activity.Leaves = result.Count
		}
	}
	return activity, nil
}

// CountMemberEvents counts events of one type in the trailing window. The
// join-raid detector uses this with a 60 second window.
func (s *Store) CountMemberEvents(ctx context.Context, guildID, eventType string, window time.Duration) (int, error) {
	start := time.Now().UTC().Add(-window)

	count, err := s.db.Collection("member_events").CountDocuments(ctx, bson.M{
		"guild_id":   guildID,
		"event_type": eventType,
		"timestamp":  bson.M{"$gte": start},
	})
	if err != nil {
		return 0, fmt.Errorf("count member events: %w", err)
	}
	return int(count), nil
}
