// Package inventory holds the table of backend services the contract refers
// to by logical name.
package inventory

import (
	"fmt"
	"os"
	"strings"

	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Mode tells the execution collaborator whether an operation changes state.
type Mode string

const (
	ModeRead  Mode = "read"
	ModeWrite Mode = "write"
)

// UnmarshalYAML accepts read/write and the evaluate/submit aliases.
func (m *Mode) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read", "evaluate":
		*m = ModeRead
	case "write", "submit":
		*m = ModeWrite
	default:
		return fmt.Errorf("line %d: invalid mode %q (read|write)", n.Line, s)
	}
	return nil
}

// Namespace accepts either a scalar or a mapping with a name key, so YAML
// anchors can share one namespace definition across many services.
type Namespace string

func (ns *Namespace) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*ns = Namespace(strings.TrimSpace(n.Value))
		return nil
	case yaml.AliasNode:
		return ns.UnmarshalYAML(n.Alias)
	case yaml.MappingNode:
		var v struct {
			Name string `yaml:"name"`
		}
		if err := n.Decode(&v); err != nil {
			return err
		}
		*ns = Namespace(strings.TrimSpace(v.Name))
		return nil
	default:
		return fmt.Errorf("line %d: namespace must be a string or a mapping with name", n.Line)
	}
}

// Service describes how to invoke one backend operation.
type Service struct {
	Name            string    `yaml:"name" json:"name"`
	Namespace       Namespace `yaml:"namespace" json:"namespace"`
	Resource        string    `yaml:"resource" json:"resource"`
	Group           string    `yaml:"group" json:"group,omitempty"`
	Operation       string    `yaml:"operation" json:"operation"`
	Mode            Mode      `yaml:"mode" json:"mode"`
	DefaultIdentity string    `yaml:"default_identity" json:"defaultIdentity,omitempty"`
}

type document struct {
	Services []Service `yaml:"services"`
}

// Inventory is immutable after Load.
type Inventory struct {
	services []Service
	byName   map[string]int
	log      *zap.Logger
}

// Load reads a YAML inventory file.
func Load(path string, log *zap.Logger) (*Inventory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, gwerr.InventoryLoad("read %s", path).WithCause(err)
	}
	inv, err := Parse(b, log)
	if err != nil {
		return nil, err
	}
	inv.log.Info("inventory loaded", zap.String("source", path), zap.Int("services", len(inv.services)))
	return inv, nil
}

// Parse builds an Inventory from YAML bytes, rejecting duplicate names and
// incomplete entries.
func Parse(b []byte, log *zap.Logger) (*Inventory, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, gwerr.InventoryLoad("malformed inventory").WithCause(err)
	}
	inv := &Inventory{byName: make(map[string]int, len(doc.Services)), log: log}
	for i := range doc.Services {
		s := doc.Services[i]
		s.Name = strings.TrimSpace(s.Name)
		if err := s.validate(); err != nil {
			return nil, gwerr.InventoryLoad("service %d (%s): %v", i, s.Name, err)
		}
		if prev, dup := inv.byName[s.Name]; dup {
			return nil, gwerr.InventoryLoad("duplicate service name %q (entries %d and %d)", s.Name, prev, i)
		}
		inv.byName[s.Name] = len(inv.services)
		inv.services = append(inv.services, s)
	}
	return inv, nil
}

func (s *Service) validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("name is required")
	case s.Namespace == "":
		return fmt.Errorf("namespace is required")
	case strings.TrimSpace(s.Resource) == "":
		return fmt.Errorf("resource is required")
	case strings.TrimSpace(s.Operation) == "":
		return fmt.Errorf("operation is required")
	case s.Mode == "":
		return fmt.Errorf("mode is required")
	}
	return nil
}

// Resolve maps names to services in order. Unknown names are logged and
// skipped; callers decide what an empty result means.
func (inv *Inventory) Resolve(names []string) []Service {
	if inv == nil {
		return nil
	}
	out := make([]Service, 0, len(names))
	for _, n := range names {
		i, ok := inv.byName[n]
		if !ok {
			inv.log.Warn("service not found in inventory", zap.String("service", n))
			continue
		}
		out = append(out, inv.services[i])
	}
	return out
}

// Services returns a copy of the full table in file order.
func (inv *Inventory) Services() []Service {
	if inv == nil {
		return nil
	}
	return append([]Service(nil), inv.services...)
}
