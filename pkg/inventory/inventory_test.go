package inventory

import (
	"path/filepath"
	"testing"

	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoad(t *testing.T) {
	inv, err := Load(filepath.Join("testdata", "inventory.yaml"), zap.NewNop())
	require.NoError(t, err)

	all := inv.Services()
	require.Len(t, all, 3)

	assert.Equal(t, Service{
		Name:            "getStatus",
		Namespace:       "ops-channel",
		Resource:        "ops-cc",
		Operation:       "Ping",
		Mode:            ModeRead,
		DefaultIdentity: "system",
	}, all[0])

	assert.Equal(t, Namespace("payments-channel"), all[1].Namespace, "anchored namespace mapping")
	assert.Equal(t, ModeWrite, all[1].Mode, "submit alias")
	assert.Equal(t, ModeRead, all[2].Mode, "evaluate alias")
}

func TestResolve_SkipsUnknownNames(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	inv, err := Load(filepath.Join("testdata", "inventory.yaml"), zap.New(core))
	require.NoError(t, err)

	got := inv.Resolve([]string{"getPayment", "nope", "getStatus"})
	require.Len(t, got, 2)
	assert.Equal(t, "getPayment", got[0].Name)
	assert.Equal(t, "getStatus", got[1].Name)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "nope", logs.All()[0].ContextMap()["service"])

	assert.Empty(t, inv.Resolve([]string{"nope"}))
	assert.Empty(t, inv.Resolve(nil))
}

func TestResolve_NilInventory(t *testing.T) {
	var inv *Inventory
	assert.Empty(t, inv.Resolve([]string{"a"}))
	assert.Nil(t, inv.Services())
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"duplicate name": `
services:
  - {name: a, namespace: n, resource: r, operation: o, mode: read}
  - {name: a, namespace: n, resource: r, operation: o2, mode: write}
`,
		"missing name":      "services:\n  - {namespace: n, resource: r, operation: o, mode: read}\n",
		"missing namespace": "services:\n  - {name: a, resource: r, operation: o, mode: read}\n",
		"missing resource":  "services:\n  - {name: a, namespace: n, operation: o, mode: read}\n",
		"missing operation": "services:\n  - {name: a, namespace: n, resource: r, mode: read}\n",
		"missing mode":      "services:\n  - {name: a, namespace: n, resource: r, operation: o}\n",
		"bad mode":          "services:\n  - {name: a, namespace: n, resource: r, operation: o, mode: delete}\n",
		"bad namespace":     "services:\n  - {name: a, namespace: [x], resource: r, operation: o, mode: read}\n",
		"not yaml":          "services: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, gwerr.ErrInventoryLoad)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.ErrorIs(t, err, gwerr.ErrInventoryLoad)
}
