package httpprobe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/user/urlcleaner/internal/repository"
)

func newTestProber(t *testing.T, cfg Config) *Prober {
	t.Helper()
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 4
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}
	p, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero timeout", Config{MaxConnections: 1}},
		{"zero connections", Config{Timeout: time.Second}},
		{"bad proxy", Config{Timeout: time.Second, MaxConnections: 1, Proxies: []string{"not a proxy"}}},
		{"bad user agent", Config{Timeout: time.Second, MaxConnections: 1, UserAgents: []string{"bad\nagent"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, zaptest.NewLogger(t)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestHead_Resolved(t *testing.T) {
	var gotMethod, gotUA, gotEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotUA = r.Header.Get("User-Agent")
		gotEncoding = r.Header.Get("Accept-Encoding")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newTestProber(t, Config{UserAgents: []string{"urlcleaner-test/1.0"}})
	res := p.Head(context.Background(), srv.URL+"/anilkirbas")

	if res.Kind != repository.ProbeResolved {
		t.Fatalf("kind = %s, cause = %v", res.Kind, res.Cause)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", res.StatusCode)
	}
	if res.FinalURL != srv.URL+"/anilkirbas" {
		t.Errorf("final url = %q", res.FinalURL)
	}
	if gotMethod != http.MethodHead {
		t.Errorf("method = %s, want HEAD", gotMethod)
	}
	if gotUA != "urlcleaner-test/1.0" {
		t.Errorf("user agent = %q", gotUA)
	}
	if gotEncoding != "identity" {
		t.Errorf("accept-encoding = %q, want identity", gotEncoding)
	}
}

func TestHead_NonOKIsResolved(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	res := newTestProber(t, Config{}).Head(context.Background(), srv.URL+"/gone")
	if res.Kind != repository.ProbeResolved || res.StatusCode != http.StatusNotFound {
		t.Fatalf("got kind=%s status=%d, want resolved 404", res.Kind, res.StatusCode)
	}
}

func TestHead_FollowsRedirectChain(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/b", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/Final_Handle", http.StatusFound)
	})
	mux.HandleFunc("/Final_Handle", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res := newTestProber(t, Config{}).Head(context.Background(), srv.URL+"/a")
	if res.Kind != repository.ProbeResolved {
		t.Fatalf("kind = %s, cause = %v", res.Kind, res.Cause)
	}
	if res.FinalURL != srv.URL+"/Final_Handle" {
		t.Errorf("final url = %q, want %q", res.FinalURL, srv.URL+"/Final_Handle")
	}
}

func TestHead_RedirectLoopIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer srv.Close()

	res := newTestProber(t, Config{MaxRedirects: 3}).Head(context.Background(), srv.URL+"/loop")
	if res.Kind != repository.ProbeTerminal {
		t.Fatalf("kind = %s, want terminal", res.Kind)
	}
	if !errors.Is(res.Cause, repository.ErrTooManyRedirects) {
		t.Errorf("cause = %v, want ErrTooManyRedirects", res.Cause)
	}
}

func TestHead_TimeoutIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	res := newTestProber(t, Config{Timeout: 50 * time.Millisecond}).Head(context.Background(), srv.URL)
	if res.Kind != repository.ProbeRetryable {
		t.Fatalf("kind = %s, want retryable", res.Kind)
	}
	if !errors.Is(res.Cause, repository.ErrTransport) {
		t.Errorf("cause = %v, want ErrTransport", res.Cause)
	}
}

func TestHead_ConnectionRefusedIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	res := newTestProber(t, Config{}).Head(context.Background(), addr)
	if res.Kind != repository.ProbeRetryable {
		t.Fatalf("kind = %s, want retryable", res.Kind)
	}
}

func TestHead_MalformedIsTerminal(t *testing.T) {
	p := newTestProber(t, Config{})
	for _, target := range []string{"ftp://twitter.com/x", "http://", "://nope", "twitter.com/x"} {
		res := p.Head(context.Background(), target)
		if res.Kind != repository.ProbeTerminal {
			t.Errorf("%q: kind = %s, want terminal", target, res.Kind)
			continue
		}
		if !errors.Is(res.Cause, repository.ErrMalformedRequest) {
			t.Errorf("%q: cause = %v, want ErrMalformedRequest", target, res.Cause)
		}
	}
}

func TestHead_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	stop := errors.New("operator stop")
	ctx, cancel := context.WithCancelCause(context.Background())
	time.AfterFunc(30*time.Millisecond, func() { cancel(stop) })

	res := newTestProber(t, Config{Timeout: 5 * time.Second}).Head(ctx, srv.URL)
	if res.Kind != repository.ProbeCancelled {
		t.Fatalf("kind = %s, want cancelled", res.Kind)
	}
	if !errors.Is(res.Cause, stop) {
		t.Errorf("cause = %v, want the cancellation cause", res.Cause)
	}
}

func TestHead_RespectsConnectionCap(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
	}))
	defer srv.Close()

	p := newTestProber(t, Config{MaxConnections: 2})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := p.Head(context.Background(), srv.URL); res.Kind != repository.ProbeResolved {
				t.Errorf("kind = %s, cause = %v", res.Kind, res.Cause)
			}
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrent requests = %d, want <= 2", got)
	}
}

func TestHead_UsesConfiguredProxy(t *testing.T) {
	var gotHost string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.URL.Host
		w.WriteHeader(http.StatusOK)
	}))
	defer proxy.Close()

	p := newTestProber(t, Config{Proxies: []string{proxy.URL}})
	res := p.Head(context.Background(), "http://twitter.example/anilkirbas")
	if res.Kind != repository.ProbeResolved {
		t.Fatalf("kind = %s, cause = %v", res.Kind, res.Cause)
	}
	if gotHost != "twitter.example" {
		t.Errorf("proxy saw host %q, want twitter.example", gotHost)
	}
}

func TestClose_Idempotent(t *testing.T) {
	p := newTestProber(t, Config{})
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
