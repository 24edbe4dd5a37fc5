package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Resolver extracts the client IP for logging.
// With TrustForwarded unset only r.RemoteAddr is used, so a client cannot
// spoof its address. Set it when the app sits behind a proxy that appends
// to X-Forwarded-For (e.g. a PaaS router).
type Resolver struct {
	TrustForwarded bool
}

// IP returns the best-known client address for r.
func (res Resolver) IP(r *http.Request) string {
	if res.TrustForwarded {
		if ip := lastForwarded(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
	}
	return RealClientIP(r)
}

// RealClientIP returns the host part of r.RemoteAddr.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}

// lastForwarded returns the right-most valid entry: the one added by the
// nearest proxy.
func lastForwarded(header string) string {
	parts := strings.Split(header, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		ip := strings.TrimSpace(parts[i])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}
	return ""
}
