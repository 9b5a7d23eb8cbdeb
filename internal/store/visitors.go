package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// VisitorMetric is one tracked page view. The IP is stored hashed.
type VisitorMetric struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// TrackVisitor records a page view.
func (s *DB) TrackVisitor(ctx context.Context, hashedIP, userAgent, path string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path)
		VALUES (?, ?, ?)
	`, hashedIP, userAgent, path)
	if err != nil {
		return fmt.Errorf("record visitor: %w", err)
	}
	return nil
}

// RecordSectionView notes that a session scrolled a section into view.
func (s *DB) RecordSectionView(ctx context.Context, sessionHash, section string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO section_views (session_hash, section)
		VALUES (?, ?)
	`, sessionHash, section)
	if err != nil {
		return fmt.Errorf("record section view: %w", err)
	}
	return nil
}

// Visitors lists the most recent page views.
func (s *DB) Visitors(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query visitors: %w", err)
	}
	defer rows.Close()

	var visitors []VisitorMetric
	for rows.Next() {
		var v VisitorMetric
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Timestamp); err != nil {
			s.logger.Warn("Skipping unreadable visitor row", zap.Error(err))
			continue
		}
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}

// CleanupOldVisitors drops analytics older than twelve months.
func (s *DB) CleanupOldVisitors(ctx context.Context) (int64, error) {
	var total int64
	for _, table := range []string{"visitors", "section_views"} {
		result, err := s.db.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE timestamp < datetime('now', '-12 months')`)
		if err != nil {
			return total, fmt.Errorf("cleanup %s: %w", table, err)
		}
		n, _ := result.RowsAffected()
		total += n
	}

	if total > 0 {
		s.logger.Info("Privacy cleanup removed old analytics", zap.Int64("rows", total))
	}
	return total, nil
}
