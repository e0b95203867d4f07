package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// DenialObserver is notified whenever the gate rejects a request, keyed by
// class. Wired to metrics by the caller.
type DenialObserver func(class Class)

// Middleware enforces one gate class on every request passing through it.
// Denials are expected backpressure, not errors: the response is a 429
// with the class message and a Retry-After hint.
func Middleware(gate *Gate, class Class, onDenied DenialObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := gate.Admit(ClientID(r), class)
			if !decision.Allowed {
				if onDenied != nil {
					onDenied(class)
				}
				retryAfter := int(decision.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": decision.Message,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientID derives the rate-limiting identity of a request: the first
// X-Forwarded-For hop when present, otherwise the remote host.
func ClientID(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
