package store

import (
	"context"
	"fmt"
	"time"
)

func (s *Store) SaveReport(ctx context.Context, report AIReport) error {
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now().UTC()
	}
	if report.Metadata == nil {
		report.Metadata = map[string]string{}
	}
	if _, err := s.db.Collection("ai_reports").InsertOne(ctx, report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}
