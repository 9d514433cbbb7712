package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/user/urlcleaner/internal/delivery/http/response"
	"github.com/user/urlcleaner/internal/entity"
	"github.com/user/urlcleaner/internal/normalizer"
	"github.com/user/urlcleaner/internal/usecase"
)

type fakeBatch struct {
	gotName string
	gotURLs []string
	stats   []*entity.URLStat
	err     error
}

func (f *fakeBatch) Clean(_ context.Context, name string, urls []string) ([]*entity.URLStat, *entity.Summary, error) {
	f.gotName, f.gotURLs = name, urls
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.stats, &entity.Summary{RunID: "run-1", State: "DONE", Fed: int64(len(urls)), Emitted: int64(len(f.stats))}, nil
}

func TestHandleClean(t *testing.T) {
	fb := &fakeBatch{stats: []*entity.URLStat{
		{URL: "@anilkirbas", Status: entity.StatusRemoteOK, LocalCleanURL: "https://twitter.com/anilkirbas", RemoteCleanURL: "https://twitter.com/anilkirbas", HTTPCode: 200},
	}}
	h := NewHandler(fb, "twitter", normalizer.Options{}, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/api/clean", strings.NewReader(`{"urls":["@anilkirbas"]}`))
	rec := httptest.NewRecorder()
	h.HandleClean(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if fb.gotName != "twitter" {
		t.Errorf("normalizer = %q, want default twitter", fb.gotName)
	}
	var resp struct {
		RunID   string `json:"run_id"`
		Results []struct {
			URL      string `json:"url"`
			Status   string `json:"status"`
			HTTPCode int    `json:"http_code"`
		} `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.RunID != "run-1" || len(resp.Results) != 1 || resp.Results[0].Status != "REMOTE_OK" || resp.Results[0].HTTPCode != 200 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandleClean_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"bad json", `{"urls":`, nil, http.StatusBadRequest},
		{"empty", `{"urls":[]}`, usecase.ErrEmptyBatch, http.StatusBadRequest},
		{"unknown normalizer", `{"normalizer":"myspace","urls":["x"]}`, fmt.Errorf("%w: myspace", normalizer.ErrUnknownNormalizer), http.StatusBadRequest},
		{"too large", `{"urls":["a","b"]}`, fmt.Errorf("%w: 2 > 1", usecase.ErrBatchTooLarge), http.StatusRequestEntityTooLarge},
		{"cancelled", `{"urls":["a"]}`, fmt.Errorf("%w: %w", usecase.ErrRunCancelled, context.Canceled), http.StatusServiceUnavailable},
		{"other", `{"urls":["a"]}`, fmt.Errorf("prober: boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeBatch{err: tt.err}, "twitter", normalizer.Options{}, zaptest.NewLogger(t))
			rec := httptest.NewRecorder()
			h.HandleClean(rec, httptest.NewRequest(http.MethodPost, "/api/clean", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
			var e response.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&e); err != nil || e.Error == "" {
				t.Errorf("missing error body: %v", err)
			}
		})
	}
}

func TestHandleNormalize(t *testing.T) {
	h := NewHandler(&fakeBatch{}, "twitter", normalizer.Options{}, zaptest.NewLogger(t))

	tests := []struct {
		query   string
		code    int
		verdict string
		clean   string
	}{
		{"url=%40anilkirbas", http.StatusOK, "canonical", "https://twitter.com/anilkirbas"},
		{"url=https://noname.noname", http.StatusOK, "invalid", ""},
		{"url=http://www.linkedin.com/profile/view%3Fid%3D1&normalizer=linkedin", http.StatusOK, "unknown", ""},
		{"", http.StatusBadRequest, "", ""},
		{"url=x&normalizer=myspace", http.StatusBadRequest, "", ""},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.HandleNormalize(rec, httptest.NewRequest(http.MethodGet, "/api/normalize?"+tt.query, nil))
		if rec.Code != tt.code {
			t.Errorf("%q: status = %d, want %d", tt.query, rec.Code, tt.code)
			continue
		}
		if tt.code != http.StatusOK {
			continue
		}
		var resp response.NormalizeResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Verdict != tt.verdict || resp.CleanURL != tt.clean {
			t.Errorf("%q: got %s %q, want %s %q", tt.query, resp.Verdict, resp.CleanURL, tt.verdict, tt.clean)
		}
	}
}

func TestHandleHealthCheck(t *testing.T) {
	h := NewHandler(&fakeBatch{}, "twitter", normalizer.Options{}, zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("got %d %s", rec.Code, rec.Body)
	}
}
