package logger

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
)

var (
	bodyLogMu    sync.RWMutex
	bodyLogPaths = map[string]struct{}{}
)

// AddBodyLogPaths allowlists request paths whose JSON bodies are logged.
// Bodies are redacted everywhere else.
func AddBodyLogPaths(paths ...string) {
	bodyLogMu.Lock()
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p != "" {
			bodyLogPaths[p] = struct{}{}
		}
	}
	bodyLogMu.Unlock()
}

// maxLoggedBody is the largest request body written to the access log.
const maxLoggedBody = 1 << 16

// bodyLoggable reports whether r may have its body logged. Nothing else is
// buffered.
func bodyLoggable(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		return false
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return false
	}
	bodyLogMu.RLock()
	_, ok := bodyLogPaths[r.URL.Path]
	bodyLogMu.RUnlock()
	return ok
}

// peekBody reads at most maxLoggedBody+1 bytes of r.Body and puts them back in
// front of the unread remainder. The returned bytes are nil when the body is
// empty or too large to log.
func peekBody(r *http.Request) []byte {
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	if len(head) == 0 || len(head) > maxLoggedBody {
		return nil
	}
	return head
}
