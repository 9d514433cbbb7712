package repository

import "context"

// IntakeRepository is a pull-based source of raw URLs.
// An empty string is a valid item: it stands for a missing or malformed URL.
type IntakeRepository interface {
	// Pop returns the next URL, or ErrIntakeDrained when the source is exhausted.
	Pop(ctx context.Context) (string, error)
}
