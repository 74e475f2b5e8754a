package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-chi/cors"
)

// CORSPolicy lists the browser origins allowed to call the API.
type CORSPolicy struct {
	Origins          []string
	AllowCredentials bool
}

// CORS builds the cross-origin middleware for the turn API. With no origins
// configured only loopback pages are accepted, on any port. A "*" origin never
// carries credentials.
func CORS(p CORSPolicy) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Actor-ID"},
		// Retry-After lets browser clients back off after a 429 from the turn limiter.
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}

	origins := cleanOrigins(p.Origins)
	switch {
	case len(origins) == 0:
		opts.AllowOriginFunc = func(_ *http.Request, origin string) bool { return isLoopbackOrigin(origin) }
	case slices.Contains(origins, "*"):
		if p.AllowCredentials {
			slog.Warn("cors credentials ignored for wildcard origin")
		}
		opts.AllowedOrigins = []string{"*"}
	default:
		opts.AllowedOrigins = origins
		opts.AllowCredentials = p.AllowCredentials
	}
	return cors.Handler(opts)
}

// cleanOrigins trims entries, drops trailing slashes and duplicates.
func cleanOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || slices.Contains(out, o) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
