package ids

// ReportDatabase stores the history of check results.
type ReportDatabase interface {
	// CreateReport saves report and assigns its ID.
	CreateReport(report *Report) error

	// FindReport returns the report with the given ID, or nil if there is none.
	FindReport(id int64) (*Report, error)

	// ListReports returns up to limit reports, newest first.
	ListReports(limit int) ([]*Report, error)

	// Close releases the underlying connection.
	Close() error
}
