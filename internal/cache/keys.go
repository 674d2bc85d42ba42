package cache

import "time"

// Keys follow {domain}:{guild}:{qualifier...} so guild-wide invalidation can
// match on the guild id segment.

func LeaderboardKey(guildID, period, channelID string) string {
	if channelID == "" {
		channelID = "all"
	}
	return "leaderboard:" + guildID + ":" + channelID + ":" + period
}

func StatsKey(guildID, period, channelID string) string {
	if channelID == "" {
		channelID = "all"
	}
	return "stats:" + guildID + ":" + period + "_" + channelID
}

func TimelineKey(guildID string, bucket time.Time, channelID string) string {
	if channelID == "" {
		channelID = "all"
	}
	return "timeline:" + guildID + ":" + bucket.UTC().Format(time.RFC3339) + ":" + channelID
}

func HourlyMessageKey(guildID string, hour time.Time) string {
	return "msg_count:" + guildID + ":" + hour.UTC().Format(time.RFC3339)
}

func HourlyUserKey(guildID, userID string, hour time.Time) string {
	return "user_activity:" + guildID + ":" + userID + ":" + hour.UTC().Format(time.RFC3339)
}

func HourlyChannelKey(guildID, channelID string, hour time.Time) string {
	return "channel_activity:" + guildID + ":" + channelID + ":" + hour.UTC().Format(time.RFC3339)
}

func DeletionKey(guildID, channelID string) string {
	return "deletes:" + guildID + ":" + channelID
}

func CooldownKey(guildID, kind string) string {
	return "alert_cooldown:" + guildID + ":" + kind
}

// InvalidationPatterns lists the prefixes scanned and dropped whenever the
// guild records a new message.
func InvalidationPatterns(guildID string) []string {
	return []string{
		"leaderboard:" + guildID + ":*",
		"stats:" + guildID + ":*",
		"timeline:" + guildID + ":*",
	}
}
