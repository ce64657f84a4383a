package scalprum

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gorilla/mux"
)

// Proxy forwards the discovery endpoint and bundle assets to an upstream
// backend that owns the dynamic plugins.
type Proxy struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
}

// NewProxy creates a proxy to upstream, e.g. http://backend:7007.
func NewProxy(upstream string, transport http.RoundTripper) (*Proxy, error) {
	target, err := url.Parse(upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid scalprum upstream %q", upstream)
	}

	director := func(req *http.Request) {
		req.URL.Scheme = target.Scheme
		req.URL.Host = target.Host
		req.URL.Path = singleJoin(target.Path, req.URL.Path)
		req.Host = target.Host

		// Hop-by-hop and identity headers stay on this side.
		req.Header.Del("Authorization")
		req.Header.Del("Connection")
		req.Header.Del("Cookie")
	}

	return &Proxy{
		target: target,
		proxy: &httputil.ReverseProxy{
			Director:  director,
			Transport: transport,
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				log.Printf("scalprum: error forwarding %s to %s: %v", r.URL.Path, target.Host, err)
				http.Error(w, `{"error":"proxy error"}`, http.StatusBadGateway)
			},
		},
	}, nil
}

// RegisterRoutes wires every /api/scalprum path onto the proxy.
func (p *Proxy) RegisterRoutes(r *mux.Router) {
	r.PathPrefix("/api/scalprum/").Handler(p.proxy).Methods("GET", "HEAD")
}

func singleJoin(base, p string) string {
	switch {
	case base == "" || base == "/":
		return p
	case base[len(base)-1] == '/' && len(p) > 0 && p[0] == '/':
		return base + p[1:]
	case base[len(base)-1] != '/' && (len(p) == 0 || p[0] != '/'):
		return base + "/" + p
	}
	return base + p
}
