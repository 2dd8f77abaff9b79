package handler

import (
	"fmt"
	"sort"

	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
	"go.uber.org/zap"
)

type module struct {
	origin   Origin
	handlers map[string]Handler
}

// Resolver is immutable after NewResolver and safe for concurrent use.
type Resolver struct {
	def     Handler
	modules map[string]module
}

// NewResolver merges built-in and external registrations into one module per
// path. When both origins provide a module for the same path the built-in
// module replaces the external one entirely.
func NewResolver(def Handler, builtin, external []Registration, log *zap.Logger) (*Resolver, error) {
	if def == nil {
		return nil, fmt.Errorf("handler: default handler required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	ext, err := group(external, OriginExternal)
	if err != nil {
		return nil, err
	}
	bi, err := group(builtin, OriginBuiltin)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]module, len(ext)+len(bi))
	for p, m := range ext {
		merged[p] = m
	}
	for p, m := range bi {
		if _, clash := merged[p]; clash {
			log.Warn("built-in handler module overrides external module", zap.String("path", p))
		}
		merged[p] = m
	}

	paths := make([]string, 0, len(merged))
	for p := range merged {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		names := make([]string, 0, len(merged[p].handlers))
		for n := range merged[p].handlers {
			names = append(names, n)
		}
		sort.Strings(names)
		log.Debug("handler module", zap.String("path", p), zap.String("origin", string(merged[p].origin)), zap.Strings("handlers", names))
	}
	return &Resolver{def: def, modules: merged}, nil
}

func group(regs []Registration, origin Origin) (map[string]module, error) {
	out := map[string]module{}
	for _, r := range regs {
		if r.Path == "" || r.Name == "" || r.Handler == nil {
			return nil, fmt.Errorf("handler: %s registration needs path, name and handler (path=%q name=%q)", origin, r.Path, r.Name)
		}
		m, ok := out[r.Path]
		if !ok {
			m = module{origin: origin, handlers: map[string]Handler{}}
			out[r.Path] = m
		}
		if _, dup := m.handlers[r.Name]; dup {
			return nil, fmt.Errorf("handler: duplicate %s handler %q for %s", origin, r.Name, r.Path)
		}
		m.handlers[r.Name] = r.Handler
	}
	return out, nil
}

// Resolve returns the default handler for an empty name, otherwise the named
// handler from the module bound to path.
func (r *Resolver) Resolve(path, name string) (Handler, Origin, error) {
	if name == "" {
		return r.def, OriginDefault, nil
	}
	m, ok := r.modules[path]
	if !ok {
		return nil, "", gwerr.HandlerNotFound("no handler module for %s (wanted %q)", path, name)
	}
	h, ok := m.handlers[name]
	if !ok {
		return nil, "", gwerr.HandlerNotFound("handler %q not found in %s module for %s", name, m.origin, path)
	}
	return h, m.origin, nil
}
