package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginGuard decides which cross-origin hosts may read responses from
// the gate endpoints. The gate's own host is always allowed; configured
// hosts match exactly or as parent domains of the origin host, so
// "github.io" admits every "*.github.io" site.
//
// This is a permissive allow-list: a disallowed origin gets no CORS
// headers and the request itself still proceeds, leaving enforcement to
// the browser's same-origin policy.
type OriginGuard struct {
	ownHost      string
	allowedHosts []string
}

// NewOriginGuard builds a guard from the gate's own host and the
// configured external allow-list. Hosts are normalized to lowercase.
func NewOriginGuard(ownHost string, allowedHosts []string) *OriginGuard {
	hosts := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}

	return &OriginGuard{
		ownHost:      strings.ToLower(strings.TrimSpace(ownHost)),
		allowedHosts: hosts,
	}
}

// IsAllowed reports whether the given origin host may read gate responses.
func (g *OriginGuard) IsAllowed(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return false
	}

	if g.ownHost != "" && host == g.ownHost {
		return true
	}

	for _, allowed := range g.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}

	return false
}

// Handler wraps next with CORS header decoration. Preflight OPTIONS
// requests from allowed origins short-circuit with a 200 and no body.
func (g *OriginGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && g.IsAllowed(originHost(origin)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// originHost extracts the host portion of an Origin header value,
// dropping scheme and port.
func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Hostname()
}
