package repository

import (
	"context"

	"github.com/user/urlcleaner/internal/entity"
)

// SinkRepository receives every finished URLStat exactly once.
type SinkRepository interface {
	// Save stores one record. Returning ErrStopRun cancels the run; any other
	// error is logged and the run continues.
	Save(ctx context.Context, stat *entity.URLStat) error
}
