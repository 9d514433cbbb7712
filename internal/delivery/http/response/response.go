package response

import "github.com/user/urlcleaner/internal/entity"

type CleanResponse struct {
	RunID   string            `json:"run_id"`
	State   string            `json:"state"`
	Results []*entity.URLStat `json:"results"`
	Summary *entity.Summary   `json:"summary"`
}

// NormalizeResponse is the local-only verdict for a single URL.
type NormalizeResponse struct {
	URL        string `json:"url"`
	Normalizer string `json:"normalizer"`
	Verdict    string `json:"verdict"` // "canonical", "unknown" or "invalid"
	CleanURL   string `json:"clean_url,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
