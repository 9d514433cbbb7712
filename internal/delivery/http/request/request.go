package request

// CleanRequest asks for a batch of URLs to be cleaned with one ruleset.
type CleanRequest struct {
	Normalizer string   `json:"normalizer"` // defaults to the server's configured ruleset
	URLs       []string `json:"urls"`
}
