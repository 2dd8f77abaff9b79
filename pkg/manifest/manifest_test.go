package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func write(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "gateway.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "gateway.toml"), zap.New(core))
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())

	assert.Equal(t, filepath.Join(dir, "openapi.yaml"), cfg.Contract.Source)
	assert.Equal(t, filepath.Join(dir, "inventory.yaml"), cfg.Inventory.Source)
	assert.Equal(t, filepath.Join(dir, "wallet"), cfg.Wallet.Dir)
	assert.Equal(t, "/api-docs/openapi.yaml", cfg.Contract.DocsPath)
	assert.Equal(t, "X-Gateway-Caller", cfg.Dispatch.CallerHeader)
	assert.Equal(t, []string{"system"}, cfg.Wallet.SystemUsers)
	assert.Equal(t, "admin", cfg.Wallet.Registrar)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	p := write(t, `
[contract]
source = "https://contracts.example.com/openapi.yaml"
docs_path = "docs/openapi.json"

[inventory]
source = "/etc/gateway/inventory.yaml"

[ledger]
endpoint = "https://ledger.internal:9443/"
timeout_ms = 5000

[wallet]
dir = "ids"
require = true
system_users = ["system", " ", "auditor"]

[dispatch]
caller_header = "x-acting-user"

[logging]
body_paths = ["/pay"]
`)
	cfg, err := Load(p, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://contracts.example.com/openapi.yaml", cfg.Contract.Source, "URLs are not resolved")
	assert.Equal(t, "/docs/openapi.json", cfg.Contract.DocsPath)
	assert.Equal(t, "/etc/gateway/inventory.yaml", cfg.Inventory.Source)
	assert.Equal(t, "https://ledger.internal:9443", cfg.Ledger.Endpoint)
	assert.Equal(t, 5000, cfg.Ledger.TimeoutMS)
	assert.Equal(t, filepath.Join(filepath.Dir(p), "ids"), cfg.Wallet.Dir)
	assert.True(t, cfg.Wallet.Require)
	assert.Equal(t, []string{"system", "auditor"}, cfg.Wallet.SystemUsers)
	assert.Equal(t, "X-Acting-User", cfg.Dispatch.CallerHeader)
	assert.Equal(t, []string{"/pay"}, cfg.Logging.BodyPaths)
	assert.Equal(t, "admin", cfg.Wallet.Registrar, "untouched keys keep defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	p := write(t, "[contract]\nsource = \"file.yaml\"\n")
	t.Setenv(EnvOpenAPI, "/srv/openapi.yaml")
	t.Setenv(EnvLedger, "http://peer0:7050")
	t.Setenv(EnvCaller, "X-User")

	cfg, err := Load(p, nil)
	require.NoError(t, err)
	assert.Equal(t, "/srv/openapi.yaml", cfg.Contract.Source)
	assert.Equal(t, "http://peer0:7050", cfg.Ledger.Endpoint)
	assert.Equal(t, "X-User", cfg.Dispatch.CallerHeader)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"malformed":     "[contract\nsource = ",
		"wrong type":    "[ledger]\ntimeout_ms = \"soon\"\n",
		"bad endpoint":  "[ledger]\nendpoint = \"ledger:7050\"\n",
		"neg timeout":   "[ledger]\ntimeout_ms = -1\n",
		"bad header":    "[dispatch]\ncaller_header = \"X Caller\"\n",
		"neg deadline":  "[dispatch]\ntimeout_ms = -5\n",
		"no contract":   "[contract]\nsource = \" \"\n",
		"wallet no dir": "[wallet]\ndir = \"\"\nrequire = true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, body), nil)
			require.Error(t, err)
		})
	}
}
