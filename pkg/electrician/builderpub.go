// pkg/electrician/builderpub.go
package electrician

// Publish-only RelayClient implemented with Electrician builder primitives.
// No builder.* types are stored on the client; closures capture them.

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/joeydtaylor/electrician/pkg/builder"
	"go.uber.org/zap"
)

// RelayConfig describes the forward relay that carries transaction events.
type RelayConfig struct {
	Targets       []string
	TLS           bool
	TLSClientCrt  string
	TLSClientKey  string
	TLSCA         string
	Snappy        bool
	AESGCM        bool
	AESKeyHex     string
	StaticHeaders map[string]string
}

// Enabled reports whether any relay target is configured.
func (c RelayConfig) Enabled() bool { return len(c.Targets) > 0 }

// RelayConfigFromEnv reads the relay settings:
//
//	ELECTRICIAN_TARGET          = "host:port[,host2:port2]"   (empty disables the relay)
//	ELECTRICIAN_TLS_ENABLE      = "true" | "false"
//	ELECTRICIAN_TLS_CLIENT_CRT  = path (default: keys/tls/client.crt)
//	ELECTRICIAN_TLS_CLIENT_KEY  = path (default: keys/tls/client.key)
//	ELECTRICIAN_TLS_CA          = path (default: keys/tls/ca.crt)
//	ELECTRICIAN_COMPRESS        = "snappy" | ""
//	ELECTRICIAN_ENCRYPT         = "aesgcm" | ""
//	ELECTRICIAN_AES256_KEY_HEX  = 64 hex chars (32 bytes)
//	ELECTRICIAN_STATIC_HEADERS  = "k=v,k2=v2"
func RelayConfigFromEnv() RelayConfig {
	return RelayConfig{
		Targets:       splitCSV(os.Getenv("ELECTRICIAN_TARGET")),
		TLS:           envIs("ELECTRICIAN_TLS_ENABLE", "true"),
		TLSClientCrt:  envOr("ELECTRICIAN_TLS_CLIENT_CRT", "keys/tls/client.crt"),
		TLSClientKey:  envOr("ELECTRICIAN_TLS_CLIENT_KEY", "keys/tls/client.key"),
		TLSCA:         envOr("ELECTRICIAN_TLS_CA", "keys/tls/ca.crt"),
		Snappy:        envIs("ELECTRICIAN_COMPRESS", "snappy"),
		AESGCM:        envIs("ELECTRICIAN_ENCRYPT", "aesgcm"),
		AESKeyHex:     envOr("ELECTRICIAN_AES256_KEY_HEX", ""),
		StaticHeaders: parseKV(os.Getenv("ELECTRICIAN_STATIC_HEADERS")),
	}
}

// aesKey decodes the configured key; it is only required when AES-GCM is on.
func (c RelayConfig) aesKey() (string, error) {
	if !c.AESGCM {
		return "", nil
	}
	raw, err := hex.DecodeString(c.AESKeyHex)
	if err != nil {
		return "", fmt.Errorf("ELECTRICIAN_AES256_KEY_HEX: %w", err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("ELECTRICIAN_AES256_KEY_HEX must be 64 hex chars (32 bytes), got %d bytes", len(raw))
	}
	return string(raw), nil
}

// NewBuilderRelay returns a RelayClient powered by Electrician's
// ForwardRelay[[]byte]. Without targets it returns NoopRelay.
func NewBuilderRelay(ctx context.Context, cfg RelayConfig, log *zap.Logger) (RelayClient, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enabled() {
		log.Info("tx event relay disabled (no ELECTRICIAN_TARGET)")
		return NoopRelay{}, nil
	}
	aesKey, err := cfg.aesKey()
	if err != nil {
		return nil, err
	}

	logger := builder.NewLogger(builder.LoggerWithDevelopment(false))
	wire := builder.NewWire[[]byte](ctx, builder.WireWithLogger[[]byte](logger))

	perf := builder.NewPerformanceOptions(cfg.Snappy, builder.COMPRESS_SNAPPY)
	sec := builder.NewSecurityOptions(cfg.AESGCM, builder.ENCRYPTION_AES_GCM)
	tlsCfg := builder.NewTlsClientConfig(
		cfg.TLS,
		cfg.TLSClientCrt, cfg.TLSClientKey, cfg.TLSCA,
		tls.VersionTLS13, tls.VersionTLS13,
	)

	relay := builder.NewForwardRelay[[]byte](
		ctx,
		builder.ForwardRelayWithLogger[[]byte](logger),
		builder.ForwardRelayWithTarget[[]byte](cfg.Targets...),
		builder.ForwardRelayWithPerformanceOptions[[]byte](perf),
		builder.ForwardRelayWithSecurityOptions[[]byte](sec, aesKey),
		builder.ForwardRelayWithTLSConfig[[]byte](tlsCfg),
		builder.ForwardRelayWithStaticHeaders[[]byte](cfg.StaticHeaders),
		builder.ForwardRelayWithInput(wire),
	)

	c := &builderClient{
		submit: func(ctx context.Context, b []byte) error { return wire.Submit(ctx, b) },
	}
	if err := wire.Start(ctx); err != nil {
		return nil, fmt.Errorf("builder wire start: %w", err)
	}
	if err := relay.Start(ctx); err != nil {
		return nil, fmt.Errorf("builder relay start: %w", err)
	}
	log.Info("tx event relay started",
		zap.Strings("targets", cfg.Targets),
		zap.Bool("tls", cfg.TLS),
		zap.Bool("snappy", cfg.Snappy),
		zap.Bool("aesgcm", cfg.AESGCM),
	)
	return c, nil
}
