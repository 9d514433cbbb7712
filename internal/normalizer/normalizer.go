// Package normalizer holds the per-platform rules that turn a raw profile
// URL into its canonical form without touching the network.
package normalizer

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Kind is the verdict of a normalizer.
type Kind int

const (
	// KindInvalid means the URL can never be fixed.
	KindInvalid Kind = iota
	// KindUnknown means the URL cannot be judged without a network fetch
	// (or not even with one, e.g. login-walled pages).
	KindUnknown
	// KindCanonical means URL holds the canonical form.
	KindCanonical
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnknown:
		return "unknown"
	case KindCanonical:
		return "canonical"
	default:
		return "kind(" + fmt.Sprint(int(k)) + ")"
	}
}

// Result is the outcome of normalizing one URL. URL is only set for
// KindCanonical; Reason explains the other verdicts.
type Result struct {
	Kind   Kind
	URL    string
	Reason string
}

func canonical(u string) Result { return Result{Kind: KindCanonical, URL: u} }

func unknown(reason string) Result { return Result{Kind: KindUnknown, Reason: reason} }

func invalid(format string, args ...any) Result {
	return Result{Kind: KindInvalid, Reason: fmt.Sprintf(format, args...)}
}

// Func normalizes a raw URL. Implementations are pure and safe for
// concurrent use.
type Func func(raw string) Result

// Options tune the rulesets.
type Options struct {
	// ResolveShortLinks forwards shortener URLs to the remote probe instead
	// of classifying them as unknown.
	ResolveShortLinks bool
}

// ErrUnknownNormalizer is returned by Lookup for unregistered names.
var ErrUnknownNormalizer = errors.New("unknown normalizer")

var registry = map[string]func(Options) Func{
	"twitter":  Twitter,
	"linkedin": LinkedIn,
}

// Lookup returns the named ruleset.
func Lookup(name string, opts Options) (Func, error) {
	build, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownNormalizer, name, strings.Join(Names(), ", "))
	}
	return build(opts), nil
}

// Names lists the registered rulesets.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fragmentHandle matches hashbang fragments such as "!/handle" or "!handle".
var fragmentHandle = regexp.MustCompile(`^!/?([\w\-.%]+)`)

type urlParts struct {
	scheme   string
	netloc   string
	path     string
	query    string
	fragment string
}

// splitURL breaks raw into its generic components. Unlike net/url it keeps a
// leading "@" as part of the authority (http://@handle) and never rejects
// odd ports, which is what the handle heuristics need.
func splitURL(raw string) (urlParts, bool) {
	var p urlParts
	rest := raw
	if i := strings.IndexByte(rest, ':'); i > 0 && isScheme(rest[:i]) && !allDigits(rest[i+1:]) {
		p.scheme = strings.ToLower(rest[:i])
		rest = rest[i+1:]
	}
	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		end := strings.IndexAny(rest, "/?#")
		if end < 0 {
			end = len(rest)
		}
		p.netloc, rest = rest[:end], rest[end:]
		if strings.Count(p.netloc, "[") != strings.Count(p.netloc, "]") {
			return p, false
		}
	}
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		p.fragment = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		p.query = rest[i+1:]
		rest = rest[:i]
	}
	p.path = rest
	return p, true
}

func isScheme(s string) bool {
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return s != ""
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
