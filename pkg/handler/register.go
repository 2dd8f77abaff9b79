package handler

import "sync"

var (
	extMu    sync.Mutex
	external []Registration
)

// Register makes an external handler available under a name referenced by
// the contract's handler attribute. Call it from init in handler modules
// linked into the gateway binary.
func Register(path, name string, h Handler) {
	extMu.Lock()
	external = append(external, Registration{Path: path, Name: name, Handler: h, Origin: OriginExternal})
	extMu.Unlock()
}

// Registered returns every handler added through Register.
func Registered() []Registration {
	extMu.Lock()
	defer extMu.Unlock()
	return append([]Registration(nil), external...)
}
