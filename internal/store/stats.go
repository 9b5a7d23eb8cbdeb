package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Submission is the outcome of one contact form submission. The message
// body is never stored.
type Submission struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SectionStat counts how often a section became the active one.
type SectionStat struct {
	Section string `json:"section"`
	Views   int64  `json:"views"`
}

type AdminStats struct {
	TotalVisitors     int64           `json:"total_visitors"`
	UniqueVisitors    int64           `json:"unique_visitors"`
	VisitorsToday     int64           `json:"visitors_today"`
	VisitorsThisWeek  int64           `json:"visitors_this_week"`
	TotalSubmissions  int64           `json:"total_submissions"`
	Delivered         int64           `json:"delivered"`
	SavedDrafts       int64           `json:"saved_drafts"`
	TopSections       []SectionStat   `json:"top_sections"`
	RecentVisitors    []VisitorMetric `json:"recent_visitors"`
	RecentSubmissions []Submission    `json:"recent_submissions"`
}

// RecordSubmission stores the outcome of a submission attempt.
func (s *DB) RecordSubmission(ctx context.Context, sub Submission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (name, subject, outcome, reason)
		VALUES (?, ?, ?, ?)
	`, sub.Name, sub.Subject, sub.Outcome, sub.Reason)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// Stats gathers everything the admin dashboard shows.
func (s *DB) Stats(ctx context.Context) (*AdminStats, error) {
	stats := &AdminStats{}

	counts := []struct {
		dest  *int64
		query string
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE DATE(timestamp) = DATE('now')`},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= datetime('now', '-7 days')`},
		{&stats.TotalSubmissions, `SELECT COUNT(*) FROM submissions`},
		{&stats.Delivered, `SELECT COUNT(*) FROM submissions WHERE outcome = 'submitted'`},
		{&stats.SavedDrafts, `SELECT COUNT(*) FROM drafts`},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT section, COUNT(*) AS views
		FROM section_views
		GROUP BY section
		ORDER BY views DESC, section
	`)
	if err != nil {
		return nil, fmt.Errorf("stats sections: %w", err)
	}
	for rows.Next() {
		var st SectionStat
		if err := rows.Scan(&st.Section, &st.Views); err != nil {
			continue
		}
		stats.TopSections = append(stats.TopSections, st)
	}
	rows.Close()

	if stats.RecentVisitors, err = s.Visitors(ctx, 50); err != nil {
		return nil, err
	}
	if stats.RecentSubmissions, err = s.Submissions(ctx, 20); err != nil {
		return nil, err
	}
	return stats, nil
}

// Submissions lists the latest submission outcomes.
func (s *DB) Submissions(ctx context.Context, limit int) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(subject, ''), outcome, COALESCE(reason, ''), timestamp
		FROM submissions
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Subject, &sub.Outcome, &sub.Reason, &sub.Timestamp); err != nil {
			s.logger.Warn("Skipping unreadable submission row", zap.Error(err))
			continue
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
