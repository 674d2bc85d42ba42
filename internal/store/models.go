package store

import "time"

// Alert kinds shared by guild settings and the alert dispatcher.
const (
	AlertJoinRaid      = "join_raid"
	AlertActivityDrop  = "activity_drop"
	AlertActivitySpike = "activity_spike"
	AlertMassDelete    = "mass_delete"
	AlertVoiceSurge    = "voice_surge"
)

// DigestFrequency values accepted in guild settings.
const (
	DigestNone   = "none"
	DigestDaily  = "daily"
	DigestWeekly = "weekly"
)

type GuildSettings struct {
	GuildID         string             `bson:"guild_id" json:"guild_id"`
	GuildName       string             `bson:"guild_name" json:"guild_name"`
	SetupCompleted  bool               `bson:"setup_completed" json:"setup_completed"`
	UpdateChannelID string             `bson:"update_channel_id" json:"update_channel_id"`
	TrackedChannels []string           `bson:"tracked_channels" json:"tracked_channels"`
	AlertsEnabled   map[string]bool    `bson:"alerts_enabled" json:"alerts_enabled"`
	AlertThresholds map[string]float64 `bson:"alert_thresholds" json:"alert_thresholds"`
	AIProvider      string             `bson:"ai_provider" json:"ai_provider"`
	AIAPIKeys       map[string]string  `bson:"ai_api_keys" json:"ai_api_keys"`
	DigestFrequency string             `bson:"digest_frequency" json:"digest_frequency"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// AlertEnabled reports whether an alert kind is active. Kinds without an
// explicit entry default to enabled, matching the on-join defaults.
func (g GuildSettings) AlertEnabled(kind string) bool {
	if g.AlertsEnabled == nil {
		return true
	}
	enabled, ok := g.AlertsEnabled[kind]
	if !ok {
		return true
	}
	return enabled
}

// Threshold returns the guild override for an alert kind, or fallback.
func (g GuildSettings) Threshold(kind string, fallback float64) float64 {
	if g.AlertThresholds == nil {
		return fallback
	}
	value, ok := g.AlertThresholds[kind]
	if !ok || value <= 0 {
		return fallback
	}
	return value
}

func (g GuildSettings) TracksChannel(channelID string) bool {
	for _, id := range g.TrackedChannels {
		if id == channelID {
			return true
		}
	}
	return false
}

type MessageEvent struct {
	GuildID       string    `bson:"guild_id"`
	ChannelID     string    `bson:"channel_id"`
	UserID        string    `bson:"user_id"`
	Timestamp     time.Time `bson:"timestamp"`
	MessageLength int       `bson:"message_length"`
	HasAttachment bool      `bson:"has_attachment"`
}

type MemberEvent struct {
	GuildID   string    `bson:"guild_id"`
	UserID    string    `bson:"user_id"`
	EventType string    `bson:"event_type"`
	Timestamp time.Time `bson:"timestamp"`
}

type VoiceSession struct {
	GuildID         string     `bson:"guild_id"`
	UserID          string     `bson:"user_id"`
	ChannelID       string     `bson:"channel_id"`
	StartedAt       time.Time  `bson:"started_at"`
	EndedAt         *time.Time `bson:"ended_at"`
	DurationSeconds *int64     `bson:"duration_seconds"`
}

type AIReport struct {
	GuildID    string            `bson:"guild_id"`
	ReportType string            `bson:"report_type"`
	Content    string            `bson:"content"`
	Metadata   map[string]string `bson:"metadata"`
	Timestamp  time.Time         `bson:"timestamp"`
}

// Aggregation results.

type MessageStats struct {
	TotalMessages    int     `bson:"total_messages" json:"total_messages"`
	UniqueUsers      int     `bson:"unique_users" json:"unique_users"`
	AvgMessageLength float64 `bson:"avg_message_length" json:"avg_message_length"`
	Attachments      int     `bson:"attachments" json:"attachments"`
}

type MemberActivity struct {
	Joins  int `json:"joins"`
	Leaves int `json:"leaves"`
}

type LeaderboardEntry struct {
	UserID       string  `bson:"user_id" json:"user_id"`
	MessageCount int     `bson:"message_count" json:"message_count"`
	AvgLength    float64 `bson:"avg_length" json:"avg_length"`
}

type UserEngagement struct {
	UserID           string      `bson:"user_id" json:"user_id"`
	TotalMessages    int         `bson:"total_messages" json:"total_messages"`
	AvgMessageLength float64     `bson:"avg_message_length" json:"avg_message_length"`
	ChannelsUsed     []string    `bson:"channels_used" json:"channels_used"`
	HourlyActivity   map[int]int `bson:"-" json:"hourly_activity"`
}

type BucketStats struct {
	MessageCount int `bson:"message_count" json:"message_count"`
	UniqueUsers  int `bson:"unique_users" json:"unique_users"`
}

type VoiceSessionStats struct {
	TotalSessions   int   `bson:"total_sessions" json:"total_sessions"`
	UniqueUsers     int   `bson:"unique_users" json:"unique_users"`
	TotalDuration   int64 `bson:"total_duration" json:"total_duration"`
	AvgDuration     int64 `bson:"avg_duration" json:"avg_duration"`
	LongestSession  int64 `bson:"max_duration" json:"max_duration"`
	ShortestSession int64 `bson:"min_duration" json:"min_duration"`
}

type VoiceChannelUsage struct {
	ChannelID     string `bson:"channel_id" json:"channel_id"`
	Sessions      int    `bson:"sessions" json:"sessions"`
	TotalDuration int64  `bson:"total_duration" json:"total_duration"`
}
