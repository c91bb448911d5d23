package ids

import "time"

// Report states.
const (
	StateOK        = "ok"
	StateDivergent = "divergent"
)

// Report is the recorded outcome of one check.
type Report struct {
	ID                int64        `json:"id"`
	UUID              string       `json:"uuid"`
	CreatedAt         time.Time    `json:"created_at"`
	State             string       `json:"state"`
	BaselineBuildTime string       `json:"baseline_build_time"`
	Changes           ChangeReport `json:"changes"`
}

// NewReport creates an unsaved report for changes. The state follows from
// whether changes is empty.
func NewReport(id string, createdAt time.Time, baselineBuildTime string, changes ChangeReport) *Report {
	state := StateOK
	if !changes.OK() {
		state = StateDivergent
	}
	if changes == nil {
		changes = ChangeReport{}
	}
	return &Report{
		UUID:              id,
		CreatedAt:         createdAt,
		State:             state,
		BaselineBuildTime: baselineBuildTime,
		Changes:           changes,
	}
}
