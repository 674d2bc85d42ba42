package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) RecordMessage(ctx context.Context, event MessageEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if _, err := s.db.Collection("messages").InsertOne(ctx, event); err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

// MessageStats aggregates count, unique users, average length and attachment
// count over the trailing window. channelID narrows the match when non-empty.
func (s *Store) MessageStats(ctx context.Context, guildID string, window time.Duration, channelID string) (MessageStats, error) {
	match := messageMatch(guildID, time.Now().UTC().Add(-window), channelID)

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"total_messages": bson.M{"$sum": 1},
			"unique_users":   bson.M{"$addToSet": "$user_id"},
			"total_length":   bson.M{"$sum": "$message_length"},
			"attachments":    bson.M{"$sum": bson.M{"$cond": bson.A{"$has_attachment", 1, 0}}},
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"total_messages":     1,
			"unique_users":       bson.M{"$size": "$unique_users"},
			"avg_message_length": bson.M{"$divide": bson.A{"$total_length", "$total_messages"}},
			"attachments":        1,
		}}},
	}

	var results []MessageStats
	if err := s.aggregate(ctx, "messages", pipeline, &results); err != nil {
		return MessageStats{}, fmt.Errorf("message stats: %w", err)
	}
	if len(results) == 0 {
		return MessageStats{}, nil
	}
	return results[0], nil
}

// TopMessagers returns the top-N senders by message count over the window,
// with their average message length. Ordering within equal counts follows
// aggregation order and is not specified.
func (s *Store) TopMessagers(ctx context.Context, guildID string, window time.Duration, limit int, channelID string) ([]LeaderboardEntry, error) {
	match := messageMatch(guildID, time.Now().UTC().Add(-window), channelID)

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":           "$user_id",
			"message_count": bson.M{"$sum": 1},
			"total_length":  bson.M{"$sum": "$message_length"},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"message_count": -1}}},
		bson.D{{Key: "$limit", Value: limit}},
		bson.D{{Key: "$project", Value: bson.M{
			"_id":           0,
			"user_id":       "$_id",
			"message_count": 1,
			"avg_length":    bson.M{"$divide": bson.A{"$total_length", "$message_count"}},
		}}},
	}

	var entries []LeaderboardEntry
	if err := s.aggregate(ctx, "messages", pipeline, &entries); err != nil {
		return nil, fmt.Errorf("top messagers: %w", err)
	}
	return entries, nil
}

// MessageCount counts messages in an absolute [from, to) range. Used for the
// historical baseline samples.
func (s *Store) MessageCount(ctx context.Context, guildID, channelID string, from, to time.Time) (int, error) {
	filter := bson.M{
		"guild_id":  guildID,
		"timestamp": bson.M{"$gte": from, "$lt": to},
	}
	if channelID != "" {
		filter["channel_id"] = channelID
	}

	count, err := s.db.Collection("messages").CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("message count: %w", err)
	}
	return int(count), nil
}

// BucketStats aggregates message count and unique users over an absolute
// [from, to) range, used for timeline buckets.
func (s *Store) BucketStats(ctx context.Context, guildID, channelID string, from, to time.Time) (BucketStats, error) {
	match := bson.M{
		"guild_id":  guildID,
		"timestamp": bson.M{"$gte": from, "$lt": to},
	}
	if channelID != "" {
		match["channel_id"] = channelID
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"message_count": bson.M{"$sum": 1},
			"unique_users":  bson.M{"$addToSet": "$user_id"},
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"message_count": 1,
			"unique_users":  bson.M{"$size": "$unique_users"},
		}}},
	}

	var results []BucketStats
	if err := s.aggregate(ctx, "messages", pipeline, &results); err != nil {
		return BucketStats{}, fmt.Errorf("bucket stats: %w", err)
	}
	if len(results) == 0 {
		return BucketStats{}, nil
	}
	return results[0], nil
}

// HourlyAverage computes the mean per-hour message count over the trailing
// window, grouping by calendar hour.
func (s *Store) HourlyAverage(ctx context.Context, guildID string, window time.Duration) (float64, error) {
	start := time.Now().UTC().Add(-window)

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"guild_id":  guildID,
			"timestamp": bson.M{"$gte": start},
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$timestamp"},
				"month": bson.M{"$month": "$timestamp"},
				"day":   bson.M{"$dayOfMonth": "$timestamp"},
				"hour":  bson.M{"$hour": "$timestamp"},
			},
			"hourly_count": bson.M{"$sum": 1},
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":        nil,
			"avg_hourly": bson.M{"$avg": "$hourly_count"},
		}}},
	}

	var results []struct {
		AvgHourly float64 `bson:"avg_hourly"`
	}
	if err := s.aggregate(ctx, "messages", pipeline, &results); err != nil {
		return 0, fmt.Errorf("hourly average: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].AvgHourly, nil
}

// UserEngagement aggregates a single user's activity: message totals, channel
// spread and hour-of-day distribution.
func (s *Store) UserEngagement(ctx context.Context, guildID, userID string, window time.Duration) (UserEngagement, error) {
	start := time.Now().UTC().Add(-window)
	match := bson.M{
		"guild_id":  guildID,
		"user_id":   userID,
		"timestamp": bson.M{"$gte": start},
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"total_messages": bson.M{"$sum": 1},
			"total_length":   bson.M{"$sum": "$message_length"},
			"channels_used":  bson.M{"$addToSet": "$channel_id"},
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"total_messages":     1,
			"avg_message_length": bson.M{"$divide": bson.A{"$total_length", "$total_messages"}},
			"channels_used":      1,
		}}},
	}

	engagement := UserEngagement{UserID: userID, ChannelsUsed: []string{}, HourlyActivity: map[int]int{}}

	var results []UserEngagement
	if err := s.aggregate(ctx, "messages", pipeline, &results); err != nil {
		return UserEngagement{}, fmt.Errorf("user engagement: %w", err)
	}
	if len(results) == 0 {
		return engagement, nil
	}
	engagement.TotalMessages = results[0].TotalMessages
	engagement.AvgMessageLength = results[0].AvgMessageLength
	engagement.ChannelsUsed = results[0].ChannelsUsed

	hourly := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$hour": "$timestamp"},
			"count": bson.M{"$sum": 1},
		}}},
	}

	var buckets []struct {
		Hour  int `bson:"_id"`
		Count int `bson:"count"`
	}
	if err := s.aggregate(ctx, "messages", hourly, &buckets); err != nil {
		return UserEngagement{}, fmt.Errorf("user engagement hours: %w", err)
	}
	for _, bucket := range buckets {
		engagement.HourlyActivity[bucket.Hour] = bucket.Count
	}

	return engagement, nil
}

func messageMatch(guildID string, start time.Time, channelID string) bson.M {
	match := bson.M{
		"guild_id":  guildID,
		"timestamp": bson.M{"$gte": start},
	}
	if channelID != "" {
		match["channel_id"] = channelID
	}
	return match
}

func (s *Store) aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline, results any) error {
	cursor, err := s.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, results)
}
