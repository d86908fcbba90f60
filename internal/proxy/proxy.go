// Package proxy forwards backend API traffic and provides the HTTP
// middleware shared by the whole console.
package proxy

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

// New returns a reverse proxy to backend. Cookies named in drop belong to the
// console and are removed before forwarding. The proxy sets X-Forwarded-For,
// X-Forwarded-Host and X-Forwarded-Proto.
func New(backend *url.URL, drop ...string) *httputil.ReverseProxy {
	dropped := make(map[string]bool, len(drop))
	for _, name := range drop {
		dropped[name] = true
	}

	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(backend)
			r.SetXForwarded()
			stripCookies(r.Out, dropped)
		},
		FlushInterval: -1,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("backend request failed", "method", r.Method, "path", r.URL.Path, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]string{"detail": "backend unavailable"})
		},
	}
}

func stripCookies(r *http.Request, dropped map[string]bool) {
	if len(dropped) == 0 {
		return
	}
	cookies := r.Cookies()
	r.Header.Del("Cookie")

	var kept []string
	for _, c := range cookies {
		if !dropped[c.Name] {
			kept = append(kept, c.Name+"="+c.Value)
		}
	}
	if len(kept) > 0 {
		r.Header.Set("Cookie", strings.Join(kept, "; "))
	}
}
