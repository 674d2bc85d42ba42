package analytics

import (
	"fmt"
	"math"
	"time"
)

// ActivityScore folds message volume, user diversity and message depth into a
// single engagement number. The diversity bonus is capped at 30% of the
// message count, the verbosity bonus at 20%, so volume always dominates.
func ActivityScore(messageCount, uniqueUsers int, avgMessageLength float64) int {
	score := float64(messageCount)

	if uniqueUsers > 0 {
		score += math.Min(float64(uniqueUsers)*0.5, float64(messageCount)*0.3)
	}
	if avgMessageLength > 10 {
		score += math.Min(avgMessageLength*0.1, float64(messageCount)*0.2)
	}

	return int(math.Floor(score))
}

// DetectAnomaly classifies current activity against the historical average.
// Returns "" when no baseline exists or the change is within the threshold,
// otherwise "spike_N" or "drop_N" with N the floored percent change.
func DetectAnomaly(currentCount int, historicalAvg, thresholdPercent float64) string {
	if historicalAvg == 0 {
		return ""
	}

	changePercent := ((float64(currentCount) - historicalAvg) / historicalAvg) * 100
	if math.Abs(changePercent) < thresholdPercent {
		return ""
	}

	if changePercent > 0 {
		return fmt.Sprintf("spike_%d", int(changePercent))
	}
	return fmt.Sprintf("drop_%d", int(math.Abs(changePercent)))
}

// PeriodHours maps a named lookback period to an hour count. Unknown periods
// fall back to 24 hours.
func PeriodHours(period string) int {
	switch period {
	case "1h":
		return 1
	case "6h":
		return 6
	case "12h":
		return 12
	case "24h":
		return 24
	case "7d":
		return 168
	case "30d":
		return 720
	case "all":
		return 8760
	default:
		return 24
	}
}

// PeriodWindow is PeriodHours as a duration.
func PeriodWindow(period string) time.Duration {
	return time.Duration(PeriodHours(period)) * time.Hour
}

func PeriodDisplay(period string) string {
	switch period {
	case "1h":
		return "Last Hour"
	case "6h":
		return "Last 6 Hours"
	case "12h":
		return "Last 12 Hours"
	case "24h":
		return "Last 24 Hours"
	case "7d":
		return "Last 7 Days"
	case "30d":
		return "Last 30 Days"
	case "all":
		return "All Time"
	default:
		return "Last 24 Hours"
	}
}

// TimeBucket floors a timestamp to the start of its bucket.
func TimeBucket(t time.Time, bucketMinutes int) time.Time {
	minutes := (t.Minute() / bucketMinutes) * bucketMinutes
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minutes, 0, 0, t.Location())
}
