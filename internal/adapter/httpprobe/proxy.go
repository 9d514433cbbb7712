package httpprobe

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// rotator hands out proxies and user agents in round-robin order.
type rotator struct {
	mu         sync.Mutex
	proxies    []*url.URL
	userAgents []string
	proxyIndex int
	uaIndex    int
}

func newRotator(proxies, userAgents []string) (*rotator, error) {
	r := &rotator{userAgents: userAgents}
	for _, raw := range proxies {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", raw, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q: scheme and host required", raw)
		}
		r.proxies = append(r.proxies, u)
	}
	return r, nil
}

// Proxy is an http.Transport.Proxy func. With no configured proxies it
// defers to the usual HTTP_PROXY/HTTPS_PROXY environment variables.
func (r *rotator) Proxy(req *http.Request) (*url.URL, error) {
	if len(r.proxies) == 0 {
		return http.ProxyFromEnvironment(req)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.proxies[r.proxyIndex]
	r.proxyIndex = (r.proxyIndex + 1) % len(r.proxies)
	return p, nil
}

func (r *rotator) UserAgent() string {
	if len(r.userAgents) == 0 {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ua := r.userAgents[r.uaIndex]
	r.uaIndex = (r.uaIndex + 1) % len(r.userAgents)
	return ua
}
