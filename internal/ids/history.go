package ids

import (
	"errors"
	"fmt"
)

// ErrNoReportDatabase is returned by history lookups when reports are not recorded.
var ErrNoReportDatabase = errors.New("report history is not configured")

// ListReports returns the most recent check reports, ordered newest first.
func (s *Service) ListReports(limit int) ([]*Report, error) {
	if s.reports == nil {
		return nil, ErrNoReportDatabase
	}
	reports, err := s.reports.ListReports(limit)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return reports, nil
}

// GetReport returns the report with the given ID, or nil if it does not exist.
func (s *Service) GetReport(id int64) (*Report, error) {
	if s.reports == nil {
		return nil, ErrNoReportDatabase
	}
	report, err := s.reports.FindReport(id)
	if err != nil {
		return nil, fmt.Errorf("finding report %d: %w", id, err)
	}
	return report, nil
}
