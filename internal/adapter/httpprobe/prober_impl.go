package httpprobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/sync/semaphore"

	"github.com/user/urlcleaner/internal/repository"
)

// Config tunes a Prober.
type Config struct {
	Timeout        time.Duration
	MaxConnections int
	MaxRedirects   int
	UserAgents     []string
	Proxies        []string
}

// Prober issues HEAD requests through a shared, capped connection pool.
type Prober struct {
	client    *http.Client
	transport *http.Transport
	sem       *semaphore.Weighted
	rotator   *rotator
	timeout   time.Duration
	logger    *zap.Logger
	closeOnce sync.Once
}

var _ repository.ProberRepository = (*Prober)(nil)

// New creates a prober. It fails only on invalid configuration.
func New(cfg Config, logger *zap.Logger) (*Prober, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("probe timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.MaxConnections < 1 {
		return nil, fmt.Errorf("max connections must be >= 1, got %d", cfg.MaxConnections)
	}
	if cfg.MaxRedirects < 0 {
		return nil, fmt.Errorf("max redirects must not be negative, got %d", cfg.MaxRedirects)
	}
	for _, ua := range cfg.UserAgents {
		if !httpguts.ValidHeaderFieldValue(ua) {
			return nil, fmt.Errorf("invalid user agent %q", ua)
		}
	}
	rot, err := newRotator(cfg.Proxies, cfg.UserAgents)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		Proxy:               rot.Proxy,
		MaxConnsPerHost:     cfg.MaxConnections,
		MaxIdleConns:        cfg.MaxConnections,
		MaxIdleConnsPerHost: cfg.MaxConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.Timeout,
		DisableCompression:  true,
		ForceAttemptHTTP2:   true,
	}

	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("%w: stopped after %d hops", repository.ErrTooManyRedirects, maxRedirects)
			}
			return nil
		},
	}

	return &Prober{
		client:    client,
		transport: transport,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConnections)),
		rotator:   rot,
		timeout:   cfg.Timeout,
		logger:    logger,
	}, nil
}

// Head performs a single HEAD attempt against target. Redirects are
// followed up to the hop cap and FinalURL is the last URL in the chain.
func (p *Prober) Head(ctx context.Context, target string) repository.ProbeResult {
	// Waiting for a connection slot does not count against the attempt timeout.
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return repository.ProbeResult{Kind: repository.ProbeCancelled, Cause: cause(ctx, err)}
	}
	defer p.sem.Release(1)

	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodHead, target, nil)
	if err != nil {
		return terminal(fmt.Errorf("%w: %w", repository.ErrMalformedRequest, err))
	}
	if (req.URL.Scheme != "http" && req.URL.Scheme != "https") || req.URL.Host == "" {
		return terminal(fmt.Errorf("%w: %q is not an absolute http(s) URL", repository.ErrMalformedRequest, target))
	}
	req.Header.Set("Accept-Encoding", "identity")
	if ua := p.rotator.UserAgent(); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return p.classify(ctx, target, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	p.logger.Debug("probe resolved",
		zap.String("url", target),
		zap.Int("http_code", resp.StatusCode),
		zap.String("final_url", final),
	)
	return repository.ProbeResult{
		Kind:       repository.ProbeResolved,
		StatusCode: resp.StatusCode,
		FinalURL:   final,
	}
}

func (p *Prober) classify(ctx context.Context, target string, err error) repository.ProbeResult {
	switch {
	case ctx.Err() != nil:
		return repository.ProbeResult{Kind: repository.ProbeCancelled, Cause: cause(ctx, err)}
	case errors.Is(err, repository.ErrTooManyRedirects):
		return terminal(err)
	default:
		p.logger.Debug("probe attempt failed", zap.String("url", target), zap.Error(err))
		return repository.ProbeResult{
			Kind:  repository.ProbeRetryable,
			Cause: fmt.Errorf("%w: %w", repository.ErrTransport, err),
		}
	}
}

// Close drops idle pooled connections. Safe to call repeatedly.
func (p *Prober) Close() error {
	p.closeOnce.Do(p.transport.CloseIdleConnections)
	return nil
}

func terminal(err error) repository.ProbeResult {
	return repository.ProbeResult{Kind: repository.ProbeTerminal, Cause: err}
}

func cause(ctx context.Context, fallback error) error {
	if c := context.Cause(ctx); c != nil {
		return c
	}
	return fallback
}
