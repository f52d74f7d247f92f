package maintenance

import (
	"time"

	"github.com/stlalpha/msgbase/internal/jam"
)

// Check outcomes recorded in history.
const (
	StatusOK      = "ok"
	StatusIssues  = "issues"
	StatusFailure = "failure"
)

// AreaResult captures the outcome of checking one area.
type AreaResult struct {
	Area      string
	StartTime time.Time
	EndTime   time.Time
	Report    *jam.CheckReport
	Error     error
}

// Status classifies the result.
func (r AreaResult) Status() string {
	switch {
	case r.Error != nil:
		return StatusFailure
	case r.Report != nil && !r.Report.OK():
		return StatusIssues
	default:
		return StatusOK
	}
}

// AreaHistory tracks historical check data for an area.
type AreaHistory struct {
	Area         string    `json:"area"`
	LastRun      time.Time `json:"last_run"`
	LastStatus   string    `json:"last_status"` // "ok", "issues", "failure"
	LastDuration int64     `json:"last_duration_ms"`
	LastIssues   []string  `json:"last_issues,omitempty"`
	RunCount     int       `json:"run_count"`
	OKCount      int       `json:"ok_count"`
	IssueCount   int       `json:"issue_count"`
	FailureCount int       `json:"failure_count"`
}
