package ws

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginChecker returns a websocket.Upgrader CheckOrigin func that accepts
// requests without an Origin header, same-host requests and the listed
// origins.
func OriginChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, a := range allowed {
			if strings.EqualFold(origin, strings.TrimSpace(a)) {
				return true
			}
		}
		return false
	}
}
