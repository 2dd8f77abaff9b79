package metrics

import (
	"net/http"
	"strings"
	"sync"
)

// UnroutedLabel replaces the uri label of requests no route matched, so
// scanners probing random paths cannot grow the series count.
const UnroutedLabel = "unrouted"

type labelOptions struct {
	mu        sync.RWMutex
	skip      map[string]struct{}
	normalize func(*http.Request) string
}

var opts = &labelOptions{
	skip:      map[string]struct{}{"/metrics": {}},
	normalize: func(r *http.Request) string { return r.URL.Path },
}

// AddMetricsSkipPaths excludes exact request paths from collection. /metrics
// is always skipped.
func AddMetricsSkipPaths(paths ...string) {
	opts.mu.Lock()
	defer opts.mu.Unlock()
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			opts.skip[p] = struct{}{}
		}
	}
}

// SetPathNormalizer sets the uri label source, typically the matched route
// template. An empty result is recorded as UnroutedLabel.
func SetPathNormalizer(fn func(*http.Request) string) {
	if fn == nil {
		return
	}
	opts.mu.Lock()
	opts.normalize = fn
	opts.mu.Unlock()
}

func isSkipPath(r *http.Request) bool {
	opts.mu.RLock()
	_, ok := opts.skip[r.URL.Path]
	opts.mu.RUnlock()
	return ok
}

func normalizePath(r *http.Request) string {
	opts.mu.RLock()
	fn := opts.normalize
	opts.mu.RUnlock()
	if uri := fn(r); uri != "" {
		return uri
	}
	return UnroutedLabel
}
