package v1

import (
	"net/netip"
	"strings"

	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// getClientIP resolves the visitor's public IP for page view records. Proxy
// headers are checked before the socket address because the typical
// deployment sits behind a reverse proxy.
func getClientIP(c *fiber.Ctx) string {
	if ip := selectPreferredIP(strings.Split(c.Get("X-Forwarded-For"), ",")); ip != "" {
		return ip
	}

	for _, header := range []string{
		"X-Real-IP",
		"CF-Connecting-IP",
		"True-Client-IP",
		"X-Client-IP",
	} {
		if value := c.Get(header); value != "" {
			if ip := selectPreferredIP([]string{value}); ip != "" {
				return ip
			}
		}
	}

	if forwarded := c.Get("Forwarded"); forwarded != "" {
		if ip := selectPreferredIP(parseForwardedHeader(forwarded)); ip != "" {
			return ip
		}
	}

	if ip := selectPreferredIP([]string{c.Context().RemoteAddr().String(), c.IP()}); ip != "" {
		return ip
	}

	slog.Default().Debug("Falling back to loopback IP for request",
		slog.String("path", c.Path()))
	return "127.0.0.1"
}

// selectPreferredIP returns the first public IPv4 candidate, falling back to
// the first public IPv6 when no IPv4 is present.
func selectPreferredIP(values []string) string {
	var ipv6Fallback string

	for _, raw := range values {
		addr, ok := normalizeIP(raw)
		if !ok || !isPublicAddr(addr) {
			continue
		}

		if addr.Is4() {
			return addr.String()
		}

		if ipv6Fallback == "" {
			ipv6Fallback = addr.String()
		}
	}

	return ipv6Fallback
}

// normalizeIP parses a header candidate into an address, tolerating ports,
// brackets, quotes, zone identifiers and IPv4-mapped IPv6 forms.
func normalizeIP(raw string) (netip.Addr, bool) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"")
	if clean == "" {
		return netip.Addr{}, false
	}

	// Strip zone identifier (e.g. fe80::1%eth0)
	if percent := strings.Index(clean, "%"); percent != -1 {
		clean = clean[:percent]
	}

	var addr netip.Addr
	if addrPort, err := netip.ParseAddrPort(clean); err == nil {
		addr = addrPort.Addr()
	} else {
		trimmed := strings.TrimSuffix(strings.TrimPrefix(clean, "["), "]")
		parsed, err := netip.ParseAddr(trimmed)
		if err != nil {
			return netip.Addr{}, false
		}
		addr = parsed
	}

	if addr.Is4In6() {
		addr = addr.Unmap()
	}

	return addr, true
}

func isPublicAddr(addr netip.Addr) bool {
	return addr.IsValid() &&
		!addr.IsPrivate() &&
		!addr.IsLoopback() &&
		!addr.IsLinkLocalUnicast() &&
		!addr.IsLinkLocalMulticast() &&
		!addr.IsUnspecified()
}

// parseForwardedHeader extracts the for= candidates from an RFC 7239
// Forwarded header.
func parseForwardedHeader(header string) []string {
	var candidates []string

	for _, entry := range strings.Split(header, ",") {
		for _, part := range strings.Split(entry, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(strings.ToLower(part), "for=") {
				candidates = append(candidates, strings.TrimPrefix(part, "for="))
			}
		}
	}

	return candidates
}
