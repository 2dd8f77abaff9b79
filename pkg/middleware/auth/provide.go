package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Middleware verifies RS256 caller assertions and stores the resulting User
// on the request context.
type Middleware struct {
	cfg        Config
	httpClient HTTPDoer
	log        *zap.Logger

	// guarded by mu
	mu        sync.RWMutex
	key       *rsa.PublicKey
	etag      string
	cacheTTL  time.Duration
	lastFetch time.Time
}

// New builds the middleware. A configured key file must parse; a key URL is
// fetched once and refreshed in the background, and a failed first fetch is
// only logged.
func New(ctx context.Context, cfg Config, hc HTTPDoer, log *zap.Logger) (*Middleware, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
			Timeout: 8 * time.Second,
		}
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "assert"
	}
	m := &Middleware{cfg: cfg, httpClient: hc, log: log, cacheTTL: time.Hour}

	if cfg.KeyFile != "" {
		pub, err := loadKeyFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("assertion key: %w", err)
		}
		m.key = pub
	}
	if cfg.KeyURL != "" {
		if err := m.refreshKey(ctx); err != nil {
			log.Warn("assertion key fetch failed", zap.String("url", cfg.KeyURL), zap.Error(err))
		}
		go m.backgroundRefresh(ctx)
	}
	return m, nil
}

// Enabled reports whether a verification key is available.
func (m *Middleware) Enabled() bool { return m != nil && m.getKey() != nil }

// ProvideAuthentication is the fx provider; the refresh loop stops with the app.
func ProvideAuthentication(lc fx.Lifecycle, log *zap.Logger) (*Middleware, error) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{OnStop: func(context.Context) error { cancel(); return nil }})
	m, err := New(ctx, ConfigFromEnv(), nil, log)
	if err != nil {
		cancel()
		return nil, err
	}
	return m, nil
}

var Module = fx.Options(
	fx.Provide(ProvideAuthentication),
)
