// Package security sets the response headers the entry page relies on.
package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Policy lists the headers sent with every response.
type Policy struct {
	// Directives are joined with "; " into Content-Security-Policy.
	Directives []string
	// HSTS is sent only on TLS requests; zero disables it.
	HSTS time.Duration
	// Extra headers, sent as given.
	Extra map[string]string
}

// PagePolicy fits a page with no scripts that loads its own stylesheet and
// posts its forms back to itself.
func PagePolicy() Policy {
	return Policy{
		Directives: []string{
			"default-src 'self'",
			"script-src 'none'",
			"style-src 'self'",
			"img-src 'self' data:",
			"object-src 'none'",
			"frame-ancestors 'none'",
			"base-uri 'self'",
			"form-action 'self'",
		},
		HSTS: 365 * 24 * time.Hour,
		Extra: map[string]string{
			"X-Content-Type-Options":       "nosniff",
			"X-Frame-Options":              "DENY",
			"Referrer-Policy":              "same-origin",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
	}
}

// Headers wraps next so every response carries the policy. The header set
// is built once.
func Headers(p Policy, next http.Handler) http.Handler {
	fixed := make(http.Header, len(p.Extra)+1)
	for k, v := range p.Extra {
		fixed.Set(k, v)
	}
	if len(p.Directives) > 0 {
		fixed.Set("Content-Security-Policy", strings.Join(p.Directives, "; "))
	}

	var hsts string
	if p.HSTS > 0 {
		hsts = "max-age=" + strconv.Itoa(int(p.HSTS.Seconds())) + "; includeSubDomains"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for k, v := range fixed {
			h.Set(k, v[0])
		}
		if hsts != "" && r.TLS != nil {
			h.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// CacheStatic marks responses from next as cacheable for maxAge.
func CacheStatic(maxAge time.Duration, next http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(int(maxAge.Seconds())) + ", immutable"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", value)
		next.ServeHTTP(w, r)
	})
}
