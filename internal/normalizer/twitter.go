package normalizer

import (
	"regexp"
	"strings"
)

const twitterBase = "https://twitter.com/"

var (
	twitterHosts      = map[string]bool{"twitter.com": true, "www.twitter.com": true, "": true}
	twitterShortHosts = map[string]bool{"t.co": true, "t.com": true, "bit.ly": true}
	twitterHandle     = regexp.MustCompile(`^\w+$`)
)

// Twitter returns the Twitter ruleset. It accepts bare handles (@name),
// host-as-handle URLs (http://name, http://@name), path handles and legacy
// hashbang fragments (#!/name), and emits https://twitter.com/<handle>.
func Twitter(opts Options) Func {
	return func(raw string) Result {
		return twitter(raw, opts)
	}
}

func twitter(raw string, opts Options) Result {
	p, ok := splitURL(raw)
	if !ok {
		return invalid("unparseable url %q", raw)
	}
	if p.scheme != "" && p.scheme != "http" && p.scheme != "https" {
		return invalid("invalid scheme %q", p.scheme)
	}

	host := strings.ToLower(p.netloc)
	if twitterShortHosts[host] {
		if opts.ResolveShortLinks {
			return canonical(raw)
		}
		return unknown("short link " + host)
	}

	if !twitterHosts[host] {
		switch {
		case strings.HasPrefix(p.netloc, "@"):
			return twitterFromHandle(p.netloc[1:])
		case p.path == "":
			return twitterFromHandle(p.netloc)
		default:
			return invalid("invalid host %q", p.netloc)
		}
	}

	handle := strings.TrimPrefix(p.path, "/")
	handle = strings.TrimPrefix(handle, "@")
	if handle != "" {
		return twitterFromHandle(handle)
	}

	if p.fragment != "" {
		m := fragmentHandle.FindStringSubmatch(p.fragment)
		if m == nil {
			return invalid("invalid fragment %q", p.fragment)
		}
		return twitterFromHandle(m[1])
	}
	return invalid("no handle in %q", raw)
}

func twitterFromHandle(handle string) Result {
	if !twitterHandle.MatchString(handle) {
		return invalid("invalid handle %q", handle)
	}
	return canonical(twitterBase + handle)
}
