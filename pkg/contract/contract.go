// Package contract loads an OpenAPI 3 document once at startup and answers
// structural questions about it per path template and method.
package contract

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
)

// Extension attributes read from path items and operations.
const (
	BackendsAttr = "x-gateway-backends"
	HandlerAttr  = "x-gateway-handler"
)

// Parameter locations.
const (
	InQuery  = "query"
	InPath   = "path"
	InHeader = "header"
	InCookie = "cookie"
)

type Parameter struct {
	Name     string
	In       string
	Required bool
	Type     string // first non-null schema type, "" when untyped
	ItemType string // items type for arrays
	Schema   *Schema
}

type RequestBody struct {
	Required bool
	Schema   *Schema
}

type Response struct {
	Description string
	Schema      *Schema
}

// Operation is one (path template, method) entry of the contract.
type Operation struct {
	Path        string
	Method      string
	Parameters  []Parameter
	RequestBody *RequestBody
	Responses   map[string]*Response
	Backends    []string
	HandlerName string
}

// SuccessStatus is 200 when declared, else the lowest declared 2xx, else 200.
func (o *Operation) SuccessStatus() int {
	if _, ok := o.Responses["200"]; ok {
		return http.StatusOK
	}
	best := 0
	for k := range o.Responses {
		n, err := strconv.Atoi(k)
		if err != nil || n < 200 || n > 299 {
			continue
		}
		if best == 0 || n < best {
			best = n
		}
	}
	if best == 0 {
		return http.StatusOK
	}
	return best
}

// ResponseFor picks the declared response for a status: exact code, then
// the "NXX" range, then "default". Nil when none apply.
func (o *Operation) ResponseFor(status int) *Response {
	code := strconv.Itoa(status)
	if r, ok := o.Responses[code]; ok {
		return r
	}
	if r, ok := o.Responses[code[:1]+"XX"]; ok {
		return r
	}
	return o.Responses["default"]
}

// Registry is the loaded contract. It is immutable after Load and safe for
// concurrent readers. A nil *Registry answers every query with an
// UnknownRouteError.
type Registry struct {
	raw   map[string]any
	paths map[string]map[string]*Operation
	ops   []*Operation
}

// Lookup returns the operation for (path, method). It fails when the path
// or method is absent, or when the operation carries no backend reference.
func (r *Registry) Lookup(path, method string) (*Operation, error) {
	if r == nil || r.paths == nil {
		return nil, gwerr.UnknownRoute(http.StatusInternalServerError, "contract not loaded")
	}
	methods, ok := r.paths[path]
	if !ok {
		return nil, gwerr.UnknownRoute(http.StatusNotFound, "%s endpoint is missing from the contract", path)
	}
	op, ok := methods[strings.ToUpper(method)]
	if !ok {
		return nil, gwerr.UnknownRoute(http.StatusMethodNotAllowed, "%s endpoint has no %s method", path, strings.ToUpper(method))
	}
	if len(op.Backends) == 0 {
		return nil, gwerr.UnknownRoute(http.StatusInternalServerError, "%s is not set for %s %s", BackendsAttr, op.Method, path)
	}
	return op, nil
}

func (r *Registry) Parameters(path, method string) ([]Parameter, error) {
	op, err := r.Lookup(path, method)
	if err != nil {
		return nil, err
	}
	return op.Parameters, nil
}

// RequestBodySchema returns nil (and no error) when the operation declares no body.
func (r *Registry) RequestBodySchema(path, method string) (*RequestBody, error) {
	op, err := r.Lookup(path, method)
	if err != nil {
		return nil, err
	}
	return op.RequestBody, nil
}

func (r *Registry) ResponseSchemas(path, method string) (map[string]*Response, error) {
	op, err := r.Lookup(path, method)
	if err != nil {
		return nil, err
	}
	return op.Responses, nil
}

func (r *Registry) BackendRefs(path, method string) ([]string, error) {
	op, err := r.Lookup(path, method)
	if err != nil {
		return nil, err
	}
	return op.Backends, nil
}

// HandlerName is "" when the operation uses the default handler.
func (r *Registry) HandlerName(path, method string) (string, error) {
	op, err := r.Lookup(path, method)
	if err != nil {
		return "", err
	}
	return op.HandlerName, nil
}

// Operations lists every declared operation ordered by path then method,
// including misconfigured ones so they can be mounted and fail loudly.
func (r *Registry) Operations() []*Operation {
	if r == nil {
		return nil
	}
	return r.ops
}

// Raw is the parsed document in its generic JSON form.
func (r *Registry) Raw() map[string]any {
	if r == nil {
		return nil
	}
	return r.raw
}

func (r *Registry) index(ops []*Operation) {
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return ops[i].Method < ops[j].Method
	})
	r.ops = ops
	r.paths = make(map[string]map[string]*Operation)
	for _, op := range ops {
		m, ok := r.paths[op.Path]
		if !ok {
			m = make(map[string]*Operation)
			r.paths[op.Path] = m
		}
		m[op.Method] = op
	}
}
