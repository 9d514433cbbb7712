package repository

import "context"

// ProbeKind classifies the outcome of a single probe attempt.
type ProbeKind int

const (
	ProbeResolved ProbeKind = iota
	ProbeRetryable
	ProbeTerminal
	ProbeCancelled
)

func (k ProbeKind) String() string {
	switch k {
	case ProbeResolved:
		return "resolved"
	case ProbeRetryable:
		return "retryable"
	case ProbeTerminal:
		return "terminal"
	case ProbeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ProbeResult is the outcome of one HEAD attempt.
// StatusCode and FinalURL are set only for ProbeResolved, Cause only otherwise.
type ProbeResult struct {
	Kind       ProbeKind
	StatusCode int
	FinalURL   string
	Cause      error
}

// ProberRepository issues HEAD probes against canonical URLs.
type ProberRepository interface {
	// Head performs a single attempt with the prober's own timeout and
	// redirect policy.
	Head(ctx context.Context, url string) ProbeResult
	// Close releases pooled connections. It is safe to call more than once.
	Close() error
}
