// Package urlutil provides URL normalization and hashing. The normalized
// form is the deduplication key used throughout the pipeline.
package urlutil

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Normalize reduces a URL to host+path with the trailing slash stripped and
// the host lowercased. Scheme, default ports, query, and fragment are
// discarded so http/https variants of the same page collapse to one key.
// Unparseable input is returned trimmed and lowercased as a best effort.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		// Bare host/path without a scheme.
		u, err = url.Parse("https://" + raw)
		if err != nil || u.Host == "" {
			return strings.ToLower(strings.TrimRight(raw, "/"))
		}
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")
	path := strings.TrimRight(u.Path, "/")
	return host + path
}

// Hash returns the hex SHA-256 of the normalized URL, used as the
// content-addressed extraction cache key.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(Normalize(raw)))
	return hex.EncodeToString(sum[:])
}

// Host returns the lowercased host of a URL, or "" if unparseable.
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		u, err = url.Parse("https://" + strings.TrimSpace(raw))
		if err != nil {
			return ""
		}
	}
	return strings.ToLower(u.Hostname())
}

// PathOf returns the URL path, or "" if unparseable.
func PathOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Path
}
