package instrumentation

// Cardinality management for HTTP metrics.
//
// The auth server only serves a handful of fixed routes, but scanners and
// browsers happily request anything. Unknown paths are folded into a single
// label value so they cannot blow up the http_requests_total series count.

// knownPaths lists the routes recorded verbatim in metrics.
var knownPaths = map[string]struct{}{
	"/login":            {},
	"/callback":         {},
	"/token":            {},
	"/healthz":          {},
	"/readyz":           {},
	"/healthz/detailed": {},
	"/mcp":              {},
	"/metrics":          {},
}

// PathOther is the label used for any route not in knownPaths.
const PathOther = "other"

// NormalizePath maps a request path to a bounded label value.
//
// Example:
//
//	NormalizePath("/callback")   // "/callback"
//	NormalizePath("/wp-admin")   // "other"
//	NormalizePath("")            // "other"
func NormalizePath(path string) string {
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return PathOther
}

// Spotify Web API operation names used as metric and span labels.
const (
	OperationProfile          = "profile"
	OperationUserID           = "user_id"
	OperationCurrentlyPlaying = "currently_playing"
	OperationPlaylists        = "playlists"
)
