package vertical

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

var (
	ErrOriginMissing = errors.New("origin or referer header missing")
	ErrUnknownDomain = errors.New("unknown frontend domain")
)

// DomainRouter selects a vertical from the Origin or Referer of a request.
// The table is built once at startup and never mutated.
type DomainRouter struct {
	domains map[string]Vertical
}

func NewDomainRouter(domains map[string]Vertical) *DomainRouter {
	table := make(map[string]Vertical, len(domains))
	for d, v := range domains {
		table[strings.ToLower(strings.TrimSpace(d))] = v
	}
	return &DomainRouter{domains: table}
}

// Resolve inspects Origin first and falls back to Referer.
func (r *DomainRouter) Resolve(req *http.Request) (Vertical, error) {
	origin := req.Header.Get("Origin")
	referer := req.Header.Get("Referer")
	if origin == "" && referer == "" {
		return "", ErrOriginMissing
	}

	for _, candidate := range []string{origin, referer} {
		if candidate == "" {
			continue
		}
		if v, ok := r.match(hostOf(candidate)); ok {
			return v, nil
		}
	}
	return "", ErrUnknownDomain
}

// match accepts the exact domain or any subdomain of it. Parents are tried
// from the most specific, so the longest configured suffix wins.
func (r *DomainRouter) match(host string) (Vertical, bool) {
	for host != "" {
		if v, ok := r.domains[host]; ok {
			return v, true
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			break
		}
		host = host[dot+1:]
	}
	return "", false
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
