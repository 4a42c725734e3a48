package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the client IP from r.RemoteAddr only (no proxy headers).
// Use when traffic reaches the app directly.
func RealClientIP(r *http.Request) string {
	return hostNoPort(r.RemoteAddr)
}

// FromRequest resolves the client IP. With trustProxy it prefers CF-Connecting-IP,
// then the left-most X-Forwarded-For entry, then X-Real-IP.
func FromRequest(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if v := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); v != "" {
			return hostNoPort(v)
		}
		if v := firstForwardedFor(r.Header.Get("X-Forwarded-For")); v != "" {
			return hostNoPort(v)
		}
		if v := strings.TrimSpace(r.Header.Get("X-Real-IP")); v != "" {
			return hostNoPort(v)
		}
	}
	return RealClientIP(r)
}

func firstForwardedFor(xff string) string {
	if i := strings.IndexByte(xff, ','); i >= 0 {
		xff = xff[:i]
	}
	return strings.TrimSpace(xff)
}

func hostNoPort(s string) string {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	return s
}
