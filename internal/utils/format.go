package utils

import (
	"fmt"
	"strconv"
)

// FormatNumber renders large counts with K/M/B suffixes.
func FormatNumber(n int) string {
	switch {
	case n < 1000:
		return strconv.Itoa(n)
	case n < 1000000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	case n < 1000000000:
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	default:
		return fmt.Sprintf("%.1fB", float64(n)/1000000000)
	}
}

// FormatDuration renders seconds as a compact human-readable duration.
func FormatDuration(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		minutes := seconds / 60
		if rest := seconds % 60; rest > 0 {
			return fmt.Sprintf("%dm %ds", minutes, rest)
		}
		return fmt.Sprintf("%dm", minutes)
	case seconds < 86400:
		hours := seconds / 3600
		if rest := (seconds % 3600) / 60; rest > 0 {
			return fmt.Sprintf("%dh %dm", hours, rest)
		}
		return fmt.Sprintf("%dh", hours)
	default:
		days := seconds / 86400
		if rest := (seconds % 86400) / 3600; rest > 0 {
			return fmt.Sprintf("%dd %dh", days, rest)
		}
		return fmt.Sprintf("%dd", days)
	}
}

// Truncate cuts text to fit Discord message limits.
func Truncate(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	if maxLength <= 3 {
		return text[:maxLength]
	}
	return text[:maxLength-3] + "..."
}

// RankLabel returns the leaderboard marker for a 1-based rank.
func RankLabel(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

// GrowthRate is the percent change from previous to current.
func GrowthRate(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return ((current - previous) / previous) * 100
}
