package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// Env overrides, applied after the file.
const (
	EnvManifest  = "GATEWAY_MANIFEST"
	EnvOpenAPI   = "GATEWAY_OPENAPI_FILE"
	EnvInventory = "GATEWAY_INVENTORY_FILE"
	EnvLedger    = "GATEWAY_LEDGER_ENDPOINT"
	EnvWallet    = "GATEWAY_WALLET_DIR"
	EnvCaller    = "GATEWAY_CALLER_HEADER"

	DefaultManifest = "gateway.toml"
)

// Load reads the manifest at path over Defaults. A missing file is not an
// error: defaults are used and a warning logged. Relative sources resolve
// against the manifest's directory.
func Load(path string, log *zap.Logger) (Config, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := Defaults()

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn("gateway manifest not found, using defaults", zap.String("path", path))
	case err != nil:
		return Config{}, fmt.Errorf("manifest %s: %w", path, err)
	default:
		if err := toml.Unmarshal(b, &cfg); err != nil {
			var de *toml.DecodeError
			if errors.As(err, &de) {
				row, col := de.Position()
				return Config{}, fmt.Errorf("manifest %s:%d:%d: %w", path, row, col, err)
			}
			return Config{}, fmt.Errorf("manifest %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.resolve(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	log.Info("gateway manifest loaded",
		zap.String("path", path),
		zap.String("contract", cfg.Contract.Source),
		zap.String("inventory", cfg.Inventory.Source),
		zap.String("ledger", cfg.Ledger.Endpoint),
		zap.String("wallet", cfg.Wallet.Dir),
		zap.String("callerHeader", cfg.Dispatch.CallerHeader),
	)
	return cfg, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Contract.Source, EnvOpenAPI)
	set(&c.Inventory.Source, EnvInventory)
	set(&c.Ledger.Endpoint, EnvLedger)
	set(&c.Wallet.Dir, EnvWallet)
	set(&c.Dispatch.CallerHeader, EnvCaller)
}

func (c *Config) resolve(base string) {
	rel := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) || isURL(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Contract.Source = rel(c.Contract.Source)
	c.Inventory.Source = rel(c.Inventory.Source)
	c.Wallet.Dir = rel(c.Wallet.Dir)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
