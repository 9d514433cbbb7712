package normalizer

import (
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const (
	linkedinDomain  = "linkedin.com"
	linkedinOrigin  = "https://www.linkedin.com"
	linkedinProfile = linkedinOrigin + "/in/"
)

var (
	linkedinShortHosts = map[string]bool{"lnkd.in": true, "bit.ly": true}
	linkedinHandle     = regexp.MustCompile(`^[\w%.\-]+$`)
)

// LinkedIn returns the LinkedIn ruleset. Public profiles become
// https://www.linkedin.com/in/<handle>; legacy /pub/ paths are forwarded as
// they are for remote confirmation; /profile/ pages need a login and are
// never probed.
func LinkedIn(opts Options) Func {
	return func(raw string) Result {
		return linkedin(raw, opts)
	}
}

func linkedin(raw string, opts Options) Result {
	p, ok := splitURL(raw)
	if !ok {
		return invalid("unparseable url %q", raw)
	}
	if p.scheme != "http" && p.scheme != "https" {
		return invalid("invalid scheme %q", p.scheme)
	}

	host := strings.ToLower(p.netloc)
	if linkedinShortHosts[host] {
		if opts.ResolveShortLinks {
			return canonical(raw)
		}
		return unknown("short link " + host)
	}

	if !isLinkedInHost(host) {
		if strings.HasPrefix(p.netloc, "@") {
			return linkedinFromHandle(p.netloc[1:])
		}
		return invalid("invalid host %q", p.netloc)
	}

	switch {
	case strings.HasPrefix(p.path, "/profile/"):
		return unknown("profile page requires authentication")
	case strings.HasPrefix(p.path, "/pub/"):
		return canonical(linkedinOrigin + p.path)
	case p.path == "" || p.path == "/":
		if p.fragment == "" {
			return invalid("no handle in %q", raw)
		}
		m := fragmentHandle.FindStringSubmatch(p.fragment)
		if m == nil {
			return invalid("invalid fragment %q", p.fragment)
		}
		return linkedinFromHandle(m[1])
	}

	// Only the first segment names the profile: /in/jane/en and
	// /in/jane/de/ are locale variants of /in/jane.
	handle := strings.TrimPrefix(p.path, "/")
	handle = strings.TrimPrefix(handle, "in/")
	handle, _, _ = strings.Cut(handle, "/")
	handle = strings.TrimPrefix(handle, "@")
	return linkedinFromHandle(handle)
}

func linkedinFromHandle(handle string) Result {
	if !linkedinHandle.MatchString(handle) {
		return invalid("invalid handle %q", handle)
	}
	return canonical(linkedinProfile + handle)
}

// isLinkedInHost reports whether host belongs to linkedin.com, including
// country subdomains such as ar.linkedin.com.
func isLinkedInHost(host string) bool {
	if i := strings.LastIndexByte(host, ':'); i >= 0 && allDigits(host[i+1:]) {
		host = host[:i]
	}
	if host == linkedinDomain {
		return true
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	return err == nil && domain == linkedinDomain
}
