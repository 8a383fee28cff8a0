package routing

import (
	"context"
	"strings"

	"github.com/hatsunemiku3939/ssestream/types"
)

// ExactMatchPolicy selects the route whose key equals the request path.
// A single trailing slash is ignored on both sides.
type ExactMatchPolicy struct{}

// Decide returns the matching key if present; otherwise empty.
func (ExactMatchPolicy) Decide(_ context.Context, path string, available []types.RouteKey) types.RouteKey { //nolint:revive
	want := Normalize(path)
	for _, k := range available {
		if Normalize(string(k)) == want {
			return k
		}
	}
	return ""
}

// Normalize trims one trailing slash, keeping the root path intact.
func Normalize(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
