package entity

import "time"

// RunState is the lifecycle state of one cleaning run.
type RunState int32

const (
	RunIdle RunState = iota
	RunFeeding
	RunDraining
	RunDone
	RunCancelled
)

func (s RunState) String() string {
	switch s {
	case RunIdle:
		return "IDLE"
	case RunFeeding:
		return "FEEDING"
	case RunDraining:
		return "DRAINING"
	case RunDone:
		return "DONE"
	case RunCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Summary is the accounting of a finished run.
type Summary struct {
	RunID      string `json:"run_id"`
	State      string `json:"state"`
	Fed        int64  `json:"fed"`
	Emitted    int64  `json:"emitted"`
	SinkErrors int64  `json:"sink_errors"`
	// PendingWork and PendingResults are zero after a complete run.
	PendingWork    int64            `json:"pending_work"`
	PendingResults int64            `json:"pending_results"`
	Statuses       map[Status]int64 `json:"statuses"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
}

// Duration is the wall time of the run.
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
