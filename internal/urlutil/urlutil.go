// Package urlutil provides URL manipulation utilities.
package urlutil

import (
	"net/url"
	"strings"
)

// URL scheme constants.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// NormalizeBaseURL normalizes a base URL for consistent use:
//   - Adds http:// scheme if no scheme provided
//   - Removes trailing slash for clean path joining
//
// Examples:
//
//	"primestreams.tv"        -> "http://primestreams.tv"
//	"https://mysite.com/"    -> "https://mysite.com"
//	"mysite.com:8080"        -> "http://mysite.com:8080"
func NormalizeBaseURL(baseURL string) string {
	return NormalizeBaseURLWithScheme(baseURL, SchemeHTTP)
}

// NormalizeBaseURLWithScheme is NormalizeBaseURL with a caller-chosen default scheme.
// An explicit scheme already present in baseURL is kept.
func NormalizeBaseURLWithScheme(baseURL, scheme string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return ""
	}

	if !IsRemoteURL(baseURL) {
		baseURL = scheme + "://" + baseURL
	}

	return strings.TrimSuffix(baseURL, "/")
}

// JoinPath joins a base URL with a path, ensuring single slashes.
func JoinPath(baseURL, path string) string {
	if baseURL == "" {
		return path
	}

	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return baseURL + path
}

// IsRemoteURL checks if a URL carries an http or https scheme.
func IsRemoteURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// Absolutize resolves ref against the URL of the document that referenced it,
// as playlists reference their segments.
func Absolutize(documentURL, ref string) string {
	if IsRemoteURL(ref) {
		return ref
	}

	base, err := url.Parse(documentURL)
	if err != nil {
		if idx := strings.LastIndex(documentURL, "/"); idx >= 0 {
			return documentURL[:idx+1] + ref
		}
		return ref
	}

	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	return base.ResolveReference(r).String()
}

// Host returns the host[:port] of u, or an empty string when u cannot be parsed.
func Host(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return parsed.Host
}
