package proxy

import (
	"net/http"
	"net/url"
	"strings"
)

// FallbackOrigin is used for CORS headers when no allowed origin is configured.
const FallbackOrigin = "https://sky-stats.vercel.app"

// UnknownClientKey is the shared bucket for clients without address headers.
const UnknownClientKey = "unknown"

// ClientIdentity partitions rate-limit accounting.
type ClientIdentity struct {
	Key string
}

// ClientIdentityFromHeaders derives the client key from X-Forwarded-For
// (first hop), then X-Real-IP, then the shared "unknown" bucket.
func ClientIdentityFromHeaders(h http.Header) ClientIdentity {
	if forwarded := strings.TrimSpace(h.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return ClientIdentity{Key: first}
		}
	}
	if realIP := strings.TrimSpace(h.Get("X-Real-IP")); realIP != "" {
		return ClientIdentity{Key: realIP}
	}
	return ClientIdentity{Key: UnknownClientKey}
}

// AllowedOriginSet is the read-only list of web origins permitted to call the proxy.
// Order matters: the first entry is the CORS fallback.
type AllowedOriginSet struct {
	ordered []string
	members map[string]struct{}
}

// NewAllowedOriginSet builds a set, dropping blanks, "null" and duplicates.
func NewAllowedOriginSet(origins ...string) *AllowedOriginSet {
	s := &AllowedOriginSet{members: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || o == "null" {
			continue
		}
		if _, dup := s.members[o]; dup {
			continue
		}
		s.members[o] = struct{}{}
		s.ordered = append(s.ordered, o)
	}
	return s
}

// Contains reports whether origin is allow-listed.
func (s *AllowedOriginSet) Contains(origin string) bool {
	if s == nil || origin == "" {
		return false
	}
	_, ok := s.members[origin]
	return ok
}

// List returns a copy of the configured origins in order.
func (s *AllowedOriginSet) List() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// CORSOrigin picks the Access-Control-Allow-Origin value: the request origin
// when allowed, else the first configured origin, else FallbackOrigin.
func (s *AllowedOriginSet) CORSOrigin(requestOrigin string) string {
	if s.Contains(requestOrigin) {
		return requestOrigin
	}
	if s != nil && len(s.ordered) > 0 {
		return s.ordered[0]
	}
	return FallbackOrigin
}

// RequestOrigin resolves the calling origin from the Origin header, falling back
// to the origin of the Referer. The Referer fallback is a weaker signal: it can be
// stripped by referrer policies and is easier to forge outside a browser.
// Returns "" when neither yields an origin.
func RequestOrigin(h http.Header) string {
	if origin := strings.TrimSpace(h.Get("Origin")); origin != "" {
		return origin
	}

	referer := strings.TrimSpace(h.Get("Referer"))
	if referer == "" {
		return ""
	}
	parsed, err := url.Parse(referer)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
