package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/user/urlcleaner/internal/entity"
	"github.com/user/urlcleaner/internal/normalizer"
	"github.com/user/urlcleaner/internal/repository"
	"github.com/user/urlcleaner/pkg/metrics"
)

var (
	// ErrAlreadyRun is returned when Run is called on a used Cleaner.
	ErrAlreadyRun = errors.New("cleaner has already run")
	// ErrRunCancelled wraps the cause of an aborted run.
	ErrRunCancelled = errors.New("run cancelled")
	// ErrCancelRequested is the cause recorded when Cancel is called.
	ErrCancelRequested = errors.New("cancel requested")
)

// Options sizes the worker pool and the retry policy.
type Options struct {
	RunID           string // generated when empty
	Workers         int
	WorkQueueSize   int // 0 means 10 per worker
	ResultQueueSize int // 0 means 10 per worker
	MaxTries        int
	RetryDelay      time.Duration
	RetryMaxDelay   time.Duration
}

// Cleaner runs one pass of the pipeline: intake, N workers, one drain
// into the sink. A Cleaner is single-use.
type Cleaner struct {
	opts      Options
	normalize normalizer.Func
	prober    repository.ProberRepository
	sink      repository.SinkRepository
	metrics   *metrics.Metrics
	logger    *zap.Logger
	runID     string

	state       atomic.Int32
	stop        chan struct{}
	stopOnce    sync.Once
	releaseOnce sync.Once

	pendingWork    atomic.Int64
	pendingResults atomic.Int64
	fed            atomic.Int64
	emitted        atomic.Int64
	sinkErrors     atomic.Int64

	// statuses is written only by the drain goroutine.
	statuses map[entity.Status]int64
}

// NewCleaner validates opts and wires the collaborators. A nil metrics
// set is replaced by an unregistered one and a nil logger by a no-op.
func NewCleaner(
	opts Options,
	normalize normalizer.Func,
	prober repository.ProberRepository,
	sink repository.SinkRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*Cleaner, error) {
	switch {
	case opts.Workers < 1:
		return nil, fmt.Errorf("workers must be >= 1, got %d", opts.Workers)
	case opts.MaxTries < 1:
		return nil, fmt.Errorf("max tries must be >= 1, got %d", opts.MaxTries)
	case opts.WorkQueueSize < 0 || opts.ResultQueueSize < 0:
		return nil, errors.New("queue sizes must not be negative")
	case normalize == nil:
		return nil, errors.New("normalizer is required")
	case prober == nil:
		return nil, errors.New("prober is required")
	case sink == nil:
		return nil, errors.New("sink is required")
	}
	if opts.WorkQueueSize == 0 {
		opts.WorkQueueSize = 10 * opts.Workers
	}
	if opts.ResultQueueSize == 0 {
		opts.ResultQueueSize = 10 * opts.Workers
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Cleaner{
		opts:      opts,
		normalize: normalize,
		prober:    prober,
		sink:      sink,
		metrics:   m,
		logger:    logger.With(zap.String("run_id", runID)),
		runID:     runID,
		stop:      make(chan struct{}),
		statuses:  make(map[entity.Status]int64, len(entity.Statuses)),
	}, nil
}

func (c *Cleaner) RunID() string { return c.runID }

// State reports the lifecycle state; safe to call from any goroutine.
func (c *Cleaner) State() entity.RunState {
	return entity.RunState(c.state.Load())
}

// Pending returns the unacknowledged work and result item counts.
func (c *Cleaner) Pending() (work, result int64) {
	return c.pendingWork.Load(), c.pendingResults.Load()
}

// Cancel aborts the run. It may be called any number of times, before or
// during Run.
func (c *Cleaner) Cancel() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Run consumes intake until it is drained, the context is cancelled,
// Cancel is called or the sink returns repository.ErrStopRun. It blocks
// until every goroutine it started has exited and the prober is released.
//
// A cancelled run returns its partial summary and an error wrapping
// ErrRunCancelled. An intake failure stops feeding, lets the items already
// accepted reach the sink and is then returned.
func (c *Cleaner) Run(parent context.Context, intake repository.IntakeRepository) (*entity.Summary, error) {
	if !c.state.CompareAndSwap(int32(entity.RunIdle), int32(entity.RunFeeding)) {
		return nil, ErrAlreadyRun
	}
	defer c.release()

	startedAt := time.Now()
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)
	go func() {
		select {
		case <-c.stop:
			cancel(ErrCancelRequested)
		case <-ctx.Done():
		}
	}()

	c.logger.Info("run started",
		zap.Int("workers", c.opts.Workers),
		zap.Int("work_queue_size", c.opts.WorkQueueSize),
		zap.Int("result_queue_size", c.opts.ResultQueueSize),
		zap.Int("max_tries", c.opts.MaxTries),
	)

	workQ := make(chan string, c.opts.WorkQueueSize)
	resultQ := make(chan *entity.URLStat, c.opts.ResultQueueSize)

	var workers sync.WaitGroup
	for i := 0; i < c.opts.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			c.work(ctx, workQ, resultQ)
		}()
	}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		c.drain(ctx, cancel, resultQ)
	}()

	finished, feedErr := c.feed(ctx, intake, workQ)
	close(workQ)
	c.state.CompareAndSwap(int32(entity.RunFeeding), int32(entity.RunDraining))

	workers.Wait()
	close(resultQ)
	<-drained

	summary := c.summary(startedAt)
	complete := finished && summary.PendingWork == 0 && summary.PendingResults == 0 && summary.Emitted == summary.Fed
	if cause := context.Cause(ctx); cause != nil && !complete {
		c.state.Store(int32(entity.RunCancelled))
		summary.State = entity.RunCancelled.String()
		c.logger.Warn("run cancelled",
			zap.Error(cause),
			zap.Int64("fed", summary.Fed),
			zap.Int64("emitted", summary.Emitted),
		)
		return summary, fmt.Errorf("%w: %w", ErrRunCancelled, cause)
	}

	c.state.Store(int32(entity.RunDone))
	summary.State = entity.RunDone.String()
	c.logger.Info("run finished",
		zap.Int64("fed", summary.Fed),
		zap.Int64("emitted", summary.Emitted),
		zap.Int64("sink_errors", summary.SinkErrors),
		zap.Duration("duration", summary.Duration()),
	)
	return summary, feedErr
}

// feed pushes intake items onto workQ. finished is false when feeding was
// cut short by cancellation.
func (c *Cleaner) feed(ctx context.Context, intake repository.IntakeRepository, workQ chan<- string) (finished bool, err error) {
	for {
		if ctx.Err() != nil {
			return false, nil
		}
		raw, err := intake.Pop(ctx)
		if errors.Is(err, repository.ErrIntakeDrained) {
			return true, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			c.logger.Error("intake failed, draining accepted items", zap.Error(err))
			return true, fmt.Errorf("intake: %w", err)
		}

		c.pendingWork.Add(1)
		c.metrics.WorkQueueDepth.Inc()
		select {
		case workQ <- raw:
			c.fed.Add(1)
		case <-ctx.Done():
			c.ackWork()
			return false, nil
		}
	}
}

func (c *Cleaner) work(ctx context.Context, workQ <-chan string, resultQ chan<- *entity.URLStat) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-workQ:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			stat, ok := c.clean(ctx, raw)
			if !ok {
				// Aborted mid-probe: no record for this item.
				return
			}
			c.pendingResults.Add(1)
			c.metrics.ResultQueueDepth.Inc()
			select {
			case resultQ <- stat:
				c.ackWork()
			case <-ctx.Done():
				c.ackResult()
				return
			}
		}
	}
}

func (c *Cleaner) drain(ctx context.Context, cancel context.CancelCauseFunc, resultQ <-chan *entity.URLStat) {
	for {
		select {
		case <-ctx.Done():
			return
		case stat, ok := <-resultQ:
			if !ok {
				return
			}
			// Nothing reaches the sink once the run is cancelled, even when
			// select picked the queue over ctx.Done.
			if ctx.Err() != nil {
				return
			}
			c.deliver(ctx, cancel, stat)
			c.ackResult()
		}
	}
}

// deliver hands one record to the sink. Sink failures, panics included,
// never leave this function.
func (c *Cleaner) deliver(ctx context.Context, cancel context.CancelCauseFunc, stat *entity.URLStat) {
	c.emitted.Add(1)
	c.statuses[stat.Status]++
	c.metrics.IncProcessed(string(stat.Status))

	defer func() {
		if r := recover(); r != nil {
			c.sinkErrors.Add(1)
			c.metrics.SinkErrors.Inc()
			c.logger.Error("sink panicked", zap.String("url", stat.URL), zap.Any("panic", r))
		}
	}()

	err := c.sink.Save(ctx, stat)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrStopRun):
		c.logger.Info("sink requested stop", zap.String("url", stat.URL))
		cancel(repository.ErrStopRun)
	default:
		c.sinkErrors.Add(1)
		c.metrics.SinkErrors.Inc()
		c.logger.Warn("sink failed to store record", zap.String("url", stat.URL), zap.Error(err))
	}
}

// clean runs the normalizer and, for canonical URLs, the probe. ok is
// false only when the run was cancelled while probing.
func (c *Cleaner) clean(ctx context.Context, raw string) (stat *entity.URLStat, ok bool) {
	stat = &entity.URLStat{URL: raw}

	res := normalizer.Result{Kind: normalizer.KindInvalid, Reason: "empty url"}
	if raw != "" {
		res = c.normalize(raw)
	}

	switch res.Kind {
	case normalizer.KindCanonical:
		stat.LocalCleanURL = res.URL
		stat.Status = entity.StatusLocalOK
	case normalizer.KindUnknown:
		stat.Status = entity.StatusUncleaned
		c.logger.Debug("url left uncleaned", zap.String("url", raw), zap.String("reason", res.Reason))
		return stat, true
	default:
		stat.Status = entity.StatusLocalInvalid
		c.logger.Debug("url rejected locally", zap.String("url", raw), zap.String("reason", res.Reason))
		return stat, true
	}

	if !c.probe(ctx, stat) {
		return nil, false
	}
	c.logger.Debug("url cleaned",
		zap.String("url", raw),
		zap.String("status", string(stat.Status)),
		zap.Int("http_code", stat.HTTPCode),
		zap.Int("attempts", stat.Attempts),
	)
	return stat, true
}

// probe confirms stat.LocalCleanURL remotely, retrying transport failures.
func (c *Cleaner) probe(ctx context.Context, stat *entity.URLStat) bool {
	var last error
	for attempt := 1; attempt <= c.opts.MaxTries; attempt++ {
		stat.Attempts = attempt

		start := time.Now()
		res := c.prober.Head(ctx, stat.LocalCleanURL)
		c.metrics.ObserveProbe(res.Kind.String(), time.Since(start))

		switch res.Kind {
		case repository.ProbeResolved:
			c.interpret(stat, res)
			return true
		case repository.ProbeTerminal:
			stat.Status = entity.StatusRemoteError
			stat.Err = res.Cause
			return true
		case repository.ProbeCancelled:
			return false
		}

		last = res.Cause
		if attempt == c.opts.MaxTries {
			break
		}
		delay := backoff(c.opts.RetryDelay, c.opts.RetryMaxDelay, attempt)
		c.logger.Info("retrying probe",
			zap.String("url", stat.LocalCleanURL),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(last),
		)
		if !sleep(ctx, delay) {
			return false
		}
	}

	stat.Status = entity.StatusRemoteError
	stat.Err = fmt.Errorf("%w (%d attempts): %w", repository.ErrRetriesExhausted, stat.Attempts, last)
	c.logger.Error("probe retries exhausted", zap.String("url", stat.LocalCleanURL), zap.Error(last))
	return true
}

// interpret maps a resolved probe onto the record. A 200 is checked again
// against the normalizer since redirects may land on a different profile
// or on a login wall.
func (c *Cleaner) interpret(stat *entity.URLStat, res repository.ProbeResult) {
	stat.HTTPCode = res.StatusCode
	if res.StatusCode != http.StatusOK {
		stat.Status = entity.StatusRemoteInvalid
		return
	}
	final := c.normalize(res.FinalURL)
	switch final.Kind {
	case normalizer.KindCanonical:
		stat.Status = entity.StatusRemoteOK
		stat.RemoteCleanURL = final.URL
	case normalizer.KindUnknown:
		stat.Status = entity.StatusUncleaned
	default:
		stat.Status = entity.StatusRemoteInvalid
	}
}

func (c *Cleaner) ackWork() {
	c.pendingWork.Add(-1)
	c.metrics.WorkQueueDepth.Dec()
}

func (c *Cleaner) ackResult() {
	c.pendingResults.Add(-1)
	c.metrics.ResultQueueDepth.Dec()
}

// release closes the prober exactly once whichever way the run ends. Items
// abandoned by a cancelled run are taken off the queue depth gauges, which
// may be shared with other runs.
func (c *Cleaner) release() {
	c.releaseOnce.Do(func() {
		c.metrics.WorkQueueDepth.Sub(float64(c.pendingWork.Load()))
		c.metrics.ResultQueueDepth.Sub(float64(c.pendingResults.Load()))
		if err := c.prober.Close(); err != nil {
			c.logger.Warn("failed to release prober", zap.Error(err))
		}
	})
}

func (c *Cleaner) summary(startedAt time.Time) *entity.Summary {
	statuses := make(map[entity.Status]int64, len(c.statuses))
	for k, v := range c.statuses {
		statuses[k] = v
	}
	return &entity.Summary{
		RunID:          c.runID,
		State:          c.State().String(),
		Fed:            c.fed.Load(),
		Emitted:        c.emitted.Load(),
		SinkErrors:     c.sinkErrors.Load(),
		PendingWork:    c.pendingWork.Load(),
		PendingResults: c.pendingResults.Load(),
		Statuses:       statuses,
		StartedAt:      startedAt,
		FinishedAt:     time.Now(),
	}
}
