package internal

import (
	"net/url"
	"strings"
)

// DocumentTitle returns the last path segment of rawURL, percent-decoded. A final slash is
// ignored. Undecodable segments are returned as-is.
func DocumentTitle(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.EscapedPath()
		if path == "" {
			path = u.Opaque
		}
	}

	path = strings.TrimSuffix(path, "/")
	segment := path[strings.LastIndex(path, "/")+1:]
	if decoded, err := url.PathUnescape(segment); err == nil {
		return decoded
	}
	return segment
}
