// Package dispatch runs the per-request pipeline that turns an HTTP request
// against a contract operation into a handler invocation, and funnels every
// failure through one normalizer.
package dispatch

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/joeydtaylor/steeze-gateway/pkg/codec"
	"github.com/joeydtaylor/steeze-gateway/pkg/contract"
	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
	"github.com/joeydtaylor/steeze-gateway/pkg/handler"
	"github.com/joeydtaylor/steeze-gateway/pkg/inventory"
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/metrics"
	"go.uber.org/zap"
)

// DefaultCallerHeader carries the caller's logical identity.
const DefaultCallerHeader = "X-Gateway-Caller"

// State is one step of the pipeline. States run strictly in declaration
// order; Fail is reachable from every state before Emit.
type State int

const (
	StateInputValidate State = iota
	StateExtractParams
	StateResolveServices
	StateInvoke
	StateValidateResponse
	StateEmit
	StateFail
	stateDone
)

var stateNames = [...]string{"InputValidate", "ExtractParams", "ResolveServices", "Invoke", "ValidateResponse", "Emit", "Fail", "Done"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Context is the state of one in-flight request. It is owned by the
// goroutine serving that request and never shared.
type Context struct {
	Operation      *contract.Operation
	CallerIdentity string
	Body           any // decoded request body, nil when none was declared or sent
	Params         any // extracted parameter payload handed to the handler
	Services       []inventory.Service
	Result         any
	Status         int
	Err            error

	path, method string
	values       map[string]any // coerced query and path parameters
	rawParams    []byte
}

// Config carries the per-deployment knobs of the pipeline.
type Config struct {
	CallerHeader string
	Codec        codec.Codec
}

// Pipeline is immutable after New and serves any number of requests
// concurrently.
type Pipeline struct {
	contract  *contract.Registry
	inventory *inventory.Inventory
	resolver  *handler.Resolver
	norm      *Normalizer
	header    string
	codec     codec.Codec
	log       *zap.Logger
}

func New(reg *contract.Registry, inv *inventory.Inventory, res *handler.Resolver, cfg Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.CallerHeader == "" {
		cfg.CallerHeader = DefaultCallerHeader
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.JSON
	}
	return &Pipeline{
		contract:  reg,
		inventory: inv,
		resolver:  res,
		norm:      NewNormalizer(reg, log),
		header:    cfg.CallerHeader,
		codec:     cfg.Codec,
		log:       log,
	}
}

// CallerHeader is the header the pipeline reads the caller identity from.
func (p *Pipeline) CallerHeader() string { return p.header }

// Handler serves one contract operation. path is the contract path template.
func (p *Pipeline) Handler(path, method string) http.Handler {
	method = strings.ToUpper(method)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.Dispatch(w, r, path, method)
	})
}

// Dispatch runs the pipeline for one request.
func (p *Pipeline) Dispatch(w http.ResponseWriter, r *http.Request, path, method string) {
	dc := &Context{path: path, method: method}
	state := StateInputValidate
	for state != stateDone {
		next, err := p.step(state, w, r, dc)
		if err != nil {
			dc.Err = err
			p.log.Debug("dispatch failed", zap.String("path", path), zap.String("method", method), zap.Stringer("state", state), zap.Error(err))
			next = StateFail
		}
		state = next
	}
}

func (p *Pipeline) step(s State, w http.ResponseWriter, r *http.Request, dc *Context) (State, error) {
	switch s {
	case StateInputValidate:
		return StateExtractParams, p.validateInput(r, dc)
	case StateExtractParams:
		return StateResolveServices, p.extractParams(dc)
	case StateResolveServices:
		return StateInvoke, p.resolveServices(dc)
	case StateInvoke:
		return StateValidateResponse, p.invoke(r, dc)
	case StateValidateResponse:
		return StateEmit, p.validateResponse(dc)
	case StateEmit:
		return stateDone, p.emit(w, dc)
	case StateFail:
		p.fail(w, dc)
		return stateDone, nil
	default:
		return stateDone, gwerr.ResponseContract("pipeline reached unknown state %s", s)
	}
}

func (p *Pipeline) fail(w http.ResponseWriter, dc *Context) {
	status, body := p.norm.Normalize(dc.path, dc.method, dc.Err)
	metrics.CountDispatch(dc.path, dc.method, outcome(dc.Err, body))
	p.write(w, status, body)
}

// outcome is the dispatch metric label for a failure: the error kind, never
// a code chosen by a backend.
func outcome(err error, body Problem) string {
	if body.Code == CodeContractViolation {
		return CodeContractViolation
	}
	if ge, ok := gwerr.As(err); ok {
		return string(ge.Kind)
	}
	return CodeInternal
}

func (p *Pipeline) write(w http.ResponseWriter, status int, v any) {
	b, err := p.codec.Marshal(v)
	if err != nil {
		p.log.Error("response encode failed", zap.Int("status", status), zap.Error(err))
		status = http.StatusInternalServerError
		b = []byte(`{"status":500,"code":"INTERNAL","message":"response encode failed"}`)
	}
	p.writeRaw(w, status, b)
}

func (p *Pipeline) writeRaw(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", p.codec.ContentType())
	w.WriteHeader(status)
	if status != http.StatusNoContent {
		_, _ = w.Write(b)
	}
}
