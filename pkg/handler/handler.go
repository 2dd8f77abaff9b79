// Package handler holds the per-endpoint business logic the dispatch
// pipeline invokes: the default handler, built-in modules and externally
// supplied modules, merged once into a Resolver.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/joeydtaylor/steeze-gateway/pkg/codec"
	"github.com/joeydtaylor/steeze-gateway/pkg/inventory"
)

// Request is what a handler sees of one dispatch.
type Request struct {
	Path     string // contract path template
	Method   string
	Caller   string // may be empty
	Params   json.RawMessage
	Services []inventory.Service // resolved, never empty
	HTTP     *http.Request
}

// Decode strictly unmarshals Params into v.
func (r *Request) Decode(v any) error {
	if len(r.Params) == 0 {
		return codec.JSONStrict.Unmarshal([]byte("{}"), v)
	}
	return codec.JSONStrict.Unmarshal(r.Params, v)
}

// Handler produces the response payload for one request.
type Handler interface {
	Handle(ctx context.Context, req *Request) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, req *Request) (any, error) { return f(ctx, req) }

// Origin records where a resolved handler came from.
type Origin string

const (
	OriginDefault  Origin = "default"
	OriginBuiltin  Origin = "builtin"
	OriginExternal Origin = "external"
)

// Registration binds a handler to a contract path template under a name.
type Registration struct {
	Path    string
	Name    string
	Handler Handler
	Origin  Origin
}
