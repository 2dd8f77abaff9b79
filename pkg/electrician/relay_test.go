package electrician

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRelayConfigFromEnv(t *testing.T) {
	t.Setenv("ELECTRICIAN_TARGET", " a:1 , b:2 ,")
	t.Setenv("ELECTRICIAN_COMPRESS", "SNAPPY")
	t.Setenv("ELECTRICIAN_STATIC_HEADERS", "x-tenant=acme, bad, k = v")
	t.Setenv("ELECTRICIAN_TLS_CA", "")

	cfg := RelayConfigFromEnv()
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Targets)
	assert.True(t, cfg.Enabled())
	assert.True(t, cfg.Snappy)
	assert.False(t, cfg.TLS)
	assert.Equal(t, "keys/tls/ca.crt", cfg.TLSCA)
	assert.Equal(t, map[string]string{"x-tenant": "acme", "k": "v"}, cfg.StaticHeaders)
}

func TestNewBuilderRelay_DisabledIsNoop(t *testing.T) {
	rc, err := NewBuilderRelay(context.Background(), RelayConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, rc.Enabled())
	assert.NoError(t, rc.Publish(context.Background(), RelayRequest{Topic: "t"}))
}

func TestRelayConfig_AESKey(t *testing.T) {
	_, err := RelayConfig{AESGCM: true, AESKeyHex: "zz"}.aesKey()
	assert.Error(t, err)

	_, err = RelayConfig{AESGCM: true, AESKeyHex: "abcd"}.aesKey()
	assert.Error(t, err)

	k, err := RelayConfig{AESGCM: true, AESKeyHex: strings.Repeat("ab", 32)}.aesKey()
	require.NoError(t, err)
	assert.Len(t, k, 32)

	k, err = RelayConfig{AESKeyHex: "ignored"}.aesKey()
	require.NoError(t, err)
	assert.Empty(t, k)
}

func TestBuilderClient_Publish(t *testing.T) {
	var got []byte
	c := &builderClient{submit: func(ctx context.Context, b []byte) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		got = b
		return nil
	}}
	assert.Error(t, c.Publish(context.Background(), RelayRequest{Body: []byte("x")}), "topic required")

	require.NoError(t, c.Publish(context.Background(), RelayRequest{Topic: "t", Body: []byte("x"), Timeout: time.Second}))
	assert.Equal(t, []byte("x"), got)

	boom := errors.New("boom")
	c.start = boom
	assert.ErrorIs(t, c.Publish(context.Background(), RelayRequest{Topic: "t"}), boom)
}
