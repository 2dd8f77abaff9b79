package manifest

// Config is the gateway manifest. Every section is optional; missing values
// take the defaults from Defaults.
type Config struct {
	Gateway   Gateway   `toml:"gateway"`
	Contract  Contract  `toml:"contract"`
	Inventory Inventory `toml:"inventory"`
	Ledger    Ledger    `toml:"ledger"`
	Wallet    Wallet    `toml:"wallet"`
	Dispatch  Dispatch  `toml:"dispatch"`
	Logging   Logging   `toml:"logging"`
}

type Gateway struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Contract locates the OpenAPI document (file path or http(s) URL) and the
// route that serves it back raw.
type Contract struct {
	Source   string `toml:"source"`
	DocsPath string `toml:"docs_path"`
}

type Inventory struct {
	Source string `toml:"source"`
}

// Ledger is the transaction-execution endpoint.
type Ledger struct {
	Endpoint  string `toml:"endpoint"`
	TimeoutMS int    `toml:"timeout_ms"`
}

type Wallet struct {
	Dir         string   `toml:"dir"`
	Registrar   string   `toml:"registrar"`
	SystemUsers []string `toml:"system_users"`
	Require     bool     `toml:"require"`
}

type Dispatch struct {
	CallerHeader string `toml:"caller_header"`
	TimeoutMS    int    `toml:"timeout_ms"` // per-request deadline, 0 disables
}

type Logging struct {
	BodyPaths []string `toml:"body_paths"` // request paths whose JSON bodies are access-logged
}

// Defaults mirrors a bare deployment: contract and inventory next to the
// manifest, a local ledger endpoint, and the "system" identity provisioned.
func Defaults() Config {
	return Config{
		Gateway:   Gateway{Name: "steeze-gateway", Version: "dev"},
		Contract:  Contract{Source: "openapi.yaml", DocsPath: "/api-docs/openapi.yaml"},
		Inventory: Inventory{Source: "inventory.yaml"},
		Ledger:    Ledger{Endpoint: "http://localhost:7050", TimeoutMS: 30000},
		Wallet:    Wallet{Dir: "wallet", Registrar: "admin", SystemUsers: []string{"system"}},
		Dispatch:  Dispatch{CallerHeader: "X-Gateway-Caller"},
	}
}
