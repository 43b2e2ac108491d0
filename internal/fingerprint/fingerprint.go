// Package fingerprint derives a stable pseudo-identity for a client from
// request headers, so a session token can be bound to a device without
// storing raw header data.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// Derive builds a device fingerprint from the identifying request headers.
// Identical header sets always produce the same hash.
func Derive(h http.Header) string {
	var b strings.Builder

	// User-Agent carries the most device signal, but raw values churn with
	// every minor version, so it is collapsed to a device family token
	if ua := h.Get("User-Agent"); ua != "" {
		b.WriteString("UA:")
		b.WriteString(normalizeUserAgent(ua))
	}

	if lang := h.Get("Accept-Language"); lang != "" {
		b.WriteString("|LANG:")
		b.WriteString(strings.TrimSpace(strings.Split(lang, ",")[0]))
	}

	if enc := h.Get("Accept-Encoding"); enc != "" {
		b.WriteString("|ENC:")
		b.WriteString(enc)
	}

	// Optional client-supplied hints
	if res := h.Get("X-Screen-Resolution"); res != "" {
		b.WriteString("|RES:")
		b.WriteString(res)
	}

	if model := h.Get("X-Device-Model"); model != "" {
		b.WriteString("|DEV:")
		b.WriteString(model)
	}

	// No identifying headers at all means no fingerprint, which Compatible
	// treats as absent rather than as a distinct device
	if b.Len() == 0 {
		return ""
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Collapses a raw User-Agent into a small closed set of device family
// tokens, tolerating version churn while still separating device classes.
func normalizeUserAgent(userAgent string) string {
	ua := strings.ToLower(userAgent)

	if strings.Contains(ua, "mobile") || strings.Contains(ua, "android") ||
		strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") {
		switch {
		case strings.Contains(ua, "android"):
			return "android"
		case strings.Contains(ua, "iphone"):
			return "iphone"
		case strings.Contains(ua, "ipad"):
			return "ipad"
		default:
			return "mobile"
		}
	}

	switch {
	case strings.Contains(ua, "edge"):
		return "edge"
	case strings.Contains(ua, "chrome"):
		return "chrome"
	case strings.Contains(ua, "firefox"):
		return "firefox"
	case strings.Contains(ua, "safari"):
		return "safari"
	}

	return "unknown"
}

// Location extracts a coarse, best-effort location hint: an explicit
// client-supplied header when present, else the client IP. Not authoritative
// geolocation.
func Location(r *http.Request) string {
	if loc := r.Header.Get("X-Client-Location"); loc != "" {
		return loc
	}

	return "IP:" + ClientIP(r)
}

// ClientIP resolves the client address with proxy awareness:
// X-Forwarded-For first value, then X-Real-IP, then the socket address.
// The literal "unknown" (any case) is treated as absent.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && !strings.EqualFold(xff, "unknown") {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" && !strings.EqualFold(realIP, "unknown") {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}

// Compatible reports whether two fingerprints may belong to the same device.
// Absence of either side is tolerated, so clients that cannot supply
// fingerprint headers are not locked out.
func Compatible(a, b string) bool {
	if a == "" || b == "" {
		return true
	}

	return a == b
}
