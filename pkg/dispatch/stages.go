package dispatch

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/joeydtaylor/steeze-gateway/pkg/contract"
	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
	"github.com/joeydtaylor/steeze-gateway/pkg/handler"
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/metrics"
	"go.uber.org/zap"
)

const maxBodyBytes = 8 << 20

func (p *Pipeline) validateInput(r *http.Request, dc *Context) error {
	op, err := p.contract.Lookup(dc.path, dc.method)
	if err != nil {
		return err
	}
	dc.Operation = op
	dc.values = map[string]any{}

	var details []gwerr.FieldError
	for _, prm := range op.Parameters {
		raw, present := rawParam(r, prm)
		if !present {
			if prm.Required {
				details = append(details, gwerr.FieldError{Field: prm.Name, Description: fmt.Sprintf("%s parameter is required", prm.In)})
			}
			continue
		}
		v, err := coerce(raw, prm.Type, prm.ItemType)
		if err != nil {
			details = append(details, gwerr.FieldError{Field: prm.Name, Description: err.Error()})
			continue
		}
		fe, err := prm.Schema.Validate(v)
		if err != nil {
			return gwerr.Validation("%s parameter %s could not be validated", prm.In, prm.Name).
				WithDetails([]gwerr.FieldError{{Field: prm.Name, Description: "value cannot be checked against the contract"}}).
				WithCause(err)
		}
		details = append(details, prefixed(prm.Name, fe)...)
		if prm.In == contract.InQuery || prm.In == contract.InPath {
			dc.values[prm.Name] = v
		}
	}

	if op.RequestBody != nil {
		fe, err := p.decodeBody(r, dc, op.RequestBody)
		if err != nil {
			return err
		}
		details = append(details, fe...)
	}

	if len(details) > 0 {
		return gwerr.Validation("request does not match the contract for %s %s", dc.method, dc.path).WithDetails(details)
	}
	return nil
}

func (p *Pipeline) decodeBody(r *http.Request, dc *Context, rb *contract.RequestBody) ([]gwerr.FieldError, error) {
	var raw []byte
	if r.Body != nil {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			return nil, gwerr.Validation("request body could not be read").WithCause(err)
		}
		if len(b) > maxBodyBytes {
			return nil, gwerr.Validation("request body exceeds %d bytes", maxBodyBytes)
		}
		raw = bytes.TrimSpace(b)
	}
	if len(raw) == 0 {
		if rb.Required {
			return []gwerr.FieldError{{Field: "body", Description: "request body is required"}}, nil
		}
		return nil, nil
	}
	var body any
	if err := p.codec.Unmarshal(raw, &body); err != nil {
		return nil, gwerr.Validation("request body is not valid JSON").WithCause(err)
	}
	dc.Body = body
	fe, err := rb.Schema.Validate(body)
	if err != nil {
		return nil, gwerr.Validation("request body could not be validated").WithCause(err)
	}
	return prefixed("body", fe), nil
}

// prefixed roots validator field paths at a parameter name or "body".
func prefixed(root string, in []gwerr.FieldError) []gwerr.FieldError {
	for i := range in {
		if in[i].Field == "" || in[i].Field == "(root)" {
			in[i].Field = root
		} else {
			in[i].Field = root + "." + in[i].Field
		}
	}
	return in
}

// extractParams picks the payload for the handler: the whole body when the
// operation declares one, otherwise the query and path parameters by name.
func (p *Pipeline) extractParams(dc *Context) error {
	if dc.Operation.RequestBody != nil {
		dc.Params = dc.Body
		if dc.Params == nil {
			dc.Params = map[string]any{}
		}
	} else {
		dc.Params = dc.values
	}
	b, err := p.codec.Marshal(dc.Params)
	if err != nil {
		return fmt.Errorf("serialize params: %w", err)
	}
	dc.rawParams = b
	return nil
}

func (p *Pipeline) resolveServices(dc *Context) error {
	dc.Services = p.inventory.Resolve(dc.Operation.Backends)
	if len(dc.Services) == 0 {
		return gwerr.NoBackendConfigured("none of %s resolved in the inventory for %s %s",
			strings.Join(dc.Operation.Backends, ", "), dc.method, dc.path)
	}
	return nil
}

func (p *Pipeline) callerOf(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(p.header)); v != "" {
		return v
	}
	if u, ok := auth.UserFromContext(r.Context()); ok {
		return u.Username
	}
	return ""
}

func (p *Pipeline) invoke(r *http.Request, dc *Context) (err error) {
	h, origin, err := p.resolver.Resolve(dc.path, dc.Operation.HandlerName)
	if err != nil {
		return err
	}
	dc.CallerIdentity = p.callerOf(r)

	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error("handler panic",
				zap.String("path", dc.path),
				zap.String("method", dc.method),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()

	p.log.Debug("invoking handler",
		zap.String("path", dc.path),
		zap.String("method", dc.method),
		zap.String("handler", dc.Operation.HandlerName),
		zap.String("origin", string(origin)),
		zap.Int("services", len(dc.Services)),
	)
	dc.Result, err = h.Handle(r.Context(), &handler.Request{
		Path:     dc.path,
		Method:   dc.method,
		Caller:   dc.CallerIdentity,
		Params:   dc.rawParams,
		Services: dc.Services,
		HTTP:     r,
	})
	return err
}

func (p *Pipeline) validateResponse(dc *Context) error {
	dc.Status = dc.Operation.SuccessStatus()
	resp := dc.Operation.ResponseFor(dc.Status)
	if resp == nil || resp.Schema == nil {
		return nil
	}
	fe, err := resp.Schema.Validate(dc.Result)
	if err != nil {
		return err
	}
	if len(fe) > 0 {
		p.log.Warn("handler result violates the contract",
			zap.String("path", dc.path),
			zap.String("method", dc.method),
			zap.Any("details", fe),
		)
		return gwerr.ResponseContract("%s %s produced a response that does not match the contract", dc.method, dc.path).WithDetails(fe)
	}
	return nil
}

func (p *Pipeline) emit(w http.ResponseWriter, dc *Context) error {
	b, err := p.codec.Marshal(dc.Result)
	if err != nil {
		return fmt.Errorf("serialize result: %w", err)
	}
	metrics.CountDispatch(dc.path, dc.method, "ok")
	p.writeRaw(w, dc.Status, b)
	return nil
}
