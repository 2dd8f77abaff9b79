package auth

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// HTTPDoer fetches the verification key; *http.Client satisfies it.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config controls how caller assertions are verified. With neither KeyFile
// nor KeyURL set the middleware passes every request through unauthenticated.
type Config struct {
	KeyFile    string // PEM RSA public key
	KeyURL     string // JWKS or PEM endpoint, refreshed per Cache-Control
	KeyKID     string
	Issuer     string
	Audience   string
	Leeway     time.Duration
	CookieName string
}

// ConfigFromEnv reads ASSERTION_* variables.
func ConfigFromEnv() Config {
	leeway := 60 * time.Second
	if v := strings.TrimSpace(os.Getenv("ASSERTION_LEEWAY_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			leeway = time.Duration(n) * time.Second
		}
	}
	cookie := strings.TrimSpace(os.Getenv("ASSERTION_COOKIE_NAME"))
	if cookie == "" {
		cookie = "assert"
	}
	return Config{
		KeyFile:    strings.TrimSpace(os.Getenv("ASSERTION_KEY_FILE")),
		KeyURL:     strings.TrimSpace(os.Getenv("ASSERTION_KEY_URL")),
		KeyKID:     strings.TrimSpace(os.Getenv("ASSERTION_KEY_KID")),
		Issuer:     strings.TrimSpace(os.Getenv("ASSERTION_ISSUER")),
		Audience:   strings.TrimSpace(os.Getenv("ASSERTION_AUDIENCE")),
		Leeway:     leeway,
		CookieName: cookie,
	}
}
