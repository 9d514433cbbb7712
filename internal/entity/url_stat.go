package entity

import (
	"encoding/json"
	"strconv"
)

// Status is the cleaning outcome of a single URL.
type Status string

const (
	StatusUncleaned     Status = "UNCLEANED"
	StatusLocalOK       Status = "LOCAL_OK"
	StatusLocalInvalid  Status = "LOCAL_INVALID"
	StatusRemoteOK      Status = "REMOTE_OK"
	StatusRemoteInvalid Status = "REMOTE_INVALID"
	StatusRemoteError   Status = "REMOTE_ERROR"
)

// Statuses lists every status in a stable order.
var Statuses = []Status{
	StatusUncleaned,
	StatusLocalOK,
	StatusLocalInvalid,
	StatusRemoteOK,
	StatusRemoteInvalid,
	StatusRemoteError,
}

// Columns is the header row of the tabular output.
var Columns = []string{"url", "status", "local_clean_url", "remote_clean_url", "http_code", "exception"}

// URLStat is the per-URL result threaded through the pipeline.
// Empty strings, a zero HTTPCode and a nil Err mean "absent".
type URLStat struct {
	URL            string
	LocalCleanURL  string
	RemoteCleanURL string
	Status         Status
	HTTPCode       int
	Err            error
	Attempts       int
}

// Exception returns the error text, or "" when there is none.
func (s *URLStat) Exception() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Row renders the record in Columns order.
func (s *URLStat) Row() []string {
	code := ""
	if s.HTTPCode != 0 {
		code = strconv.Itoa(s.HTTPCode)
	}
	return []string{s.URL, string(s.Status), s.LocalCleanURL, s.RemoteCleanURL, code, s.Exception()}
}

type urlStatJSON struct {
	URL            string `json:"url"`
	Status         Status `json:"status"`
	LocalCleanURL  string `json:"local_clean_url,omitempty"`
	RemoteCleanURL string `json:"remote_clean_url,omitempty"`
	HTTPCode       int    `json:"http_code,omitempty"`
	Exception      string `json:"exception,omitempty"`
	Attempts       int    `json:"attempts,omitempty"`
}

func (s URLStat) MarshalJSON() ([]byte, error) {
	return json.Marshal(urlStatJSON{
		URL:            s.URL,
		Status:         s.Status,
		LocalCleanURL:  s.LocalCleanURL,
		RemoteCleanURL: s.RemoteCleanURL,
		HTTPCode:       s.HTTPCode,
		Exception:      s.Exception(),
		Attempts:       s.Attempts,
	})
}
