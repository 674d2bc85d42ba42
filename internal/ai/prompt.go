package ai

import (
	"fmt"
	"strings"
	"time"
)

func analyticsContext(s Snapshot) string {
	var top strings.Builder
	limit := len(s.TopMessagers)
	if limit > 5 {
		limit = 5
	}
	for _, entry := range s.TopMessagers[:limit] {
		fmt.Fprintf(&top, "- User %s: %d messages (avg %.0f chars)\n", entry.UserID, entry.MessageCount, entry.AvgLength)
	}
	topText := top.String()
	if topText == "" {
		topText = "- No activity recorded\n"
	}

	return fmt.Sprintf(`DISCORD SERVER ANALYTICS DATA:

SERVER: %s
PERIOD: %s
TIME RANGE: %s to %s

MESSAGE ACTIVITY:
- Total messages: %d
- Active users: %d
- Average message length: %.1f characters
- Attachments shared: %d

MEMBER ACTIVITY:
- New joins: %d
- Members left: %d
- Net growth: %+d

TRENDS:
- Growth rate: %.1f%% vs historical average
- Trend: %s
- Historical average: %.1f messages/period

TOP CONTRIBUTORS:
%s`,
		s.GuildName, s.PeriodDisplay,
		s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339),
		s.Messages.TotalMessages, s.Messages.UniqueUsers, s.Messages.AvgMessageLength, s.Messages.Attachments,
		s.Members.Joins, s.Members.Leaves, s.Members.Joins-s.Members.Leaves,
		s.GrowthRate, capitalize(s.Trend), s.HistoricalAvg,
		topText)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func buildReportPrompt(s Snapshot) string {
	return analyticsContext(s) + `
Please generate a comprehensive Discord server activity report based on this data. Include:

1. **Activity Summary**: Overview of message activity, user engagement, and key metrics
2. **Community Highlights**: Notable contributors and engagement patterns
3. **Growth Analysis**: Member growth trends and activity changes vs historical data
4. **Insights & Recommendations**: Actionable suggestions for community improvement
5. **Key Takeaways**: 2-3 bullet points summarizing the most important findings

Format the report in Discord-friendly markdown with appropriate emojis. Keep it engaging and actionable for server administrators. Limit to ~800 words.

Start with: **📊 ServerPulse Report - [Period]**`
}

func buildInsightPrompt(s Snapshot, question string) string {
	return analyticsContext(s) + fmt.Sprintf(`
Based on this Discord server analytics data, please answer the following question:

**Question:** %s

Provide a detailed, data-driven answer that:
- References specific metrics from the data
- Offers actionable insights
- Includes relevant recommendations
- Uses Discord-friendly formatting with emojis

Keep the response focused and under 400 words.`, question)
}
