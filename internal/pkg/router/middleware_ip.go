package router

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// middlewareIP rewrites RemoteAddr to the client address. Forwarding headers
// are honored only when the direct peer is inside one of the trusted
// prefixes; anything else could be spoofed by the caller.
func middlewareIP(trusted []string) Middleware {
	prefixes := make([]netip.Prefix, 0, len(trusted))
	for _, raw := range trusted {
		raw = strings.TrimSpace(raw)
		if !strings.Contains(raw, "/") {
			if addr, err := netip.ParseAddr(raw); err == nil {
				raw = netip.PrefixFrom(addr, addr.BitLen()).String()
			}
		}
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			slog.Warn("ignoring malformed trusted proxy", "value", raw)
			continue
		}
		prefixes = append(prefixes, p.Masked())
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := clientIP(r, prefixes); ip != "" {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request, trusted []netip.Prefix) string {
	peer, err := netip.ParseAddr(hostOnly(r.RemoteAddr))
	if err != nil {
		return ""
	}
	peer = peer.Unmap()

	if !isTrusted(peer, trusted) {
		return peer.String()
	}

	for _, h := range []string{"True-Client-IP", "X-Real-IP"} {
		if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get(h))); err == nil {
			return addr.Unmap().String()
		}
	}

	// walk X-Forwarded-For right to left, skipping our own proxies
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		addr = addr.Unmap()
		if !isTrusted(addr, trusted) {
			return addr.String()
		}
	}

	return peer.String()
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func hostOnly(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
