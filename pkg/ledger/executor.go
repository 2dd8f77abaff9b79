// Package ledger is the gateway's side of the transaction-execution
// boundary: it turns a resolved service descriptor plus caller identity into
// one evaluate or submit call against the ledger endpoint.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joeydtaylor/steeze-gateway/pkg/codec"
	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
	"github.com/joeydtaylor/steeze-gateway/pkg/inventory"
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/metrics"
	"go.uber.org/zap"
)

// Executor runs one backend operation on behalf of caller. params is the
// serialized parameter object and is forwarded as the single argument.
type Executor interface {
	Invoke(ctx context.Context, svc inventory.Service, caller string, params json.RawMessage) (any, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, svc inventory.Service, caller string, params json.RawMessage) (any, error)

func (f ExecutorFunc) Invoke(ctx context.Context, svc inventory.Service, caller string, params json.RawMessage) (any, error) {
	return f(ctx, svc, caller, params)
}

type invokeRequest struct {
	Group     string            `json:"group,omitempty"`
	Operation string            `json:"operation"`
	Args      []json.RawMessage `json:"args"`
	Identity  string            `json:"identity"`
}

type backendFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPExecutor posts invocations to
// {endpoint}/namespaces/{ns}/resources/{resource}/{evaluate|submit}.
type HTTPExecutor struct {
	endpoint string
	client   *http.Client
	log      *zap.Logger
}

func NewHTTPExecutor(endpoint string, timeout time.Duration, log *zap.Logger) *HTTPExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPExecutor{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

func action(m inventory.Mode) string {
	if m == inventory.ModeWrite {
		return "submit"
	}
	return "evaluate"
}

func (e *HTTPExecutor) Invoke(ctx context.Context, svc inventory.Service, caller string, params json.RawMessage) (out any, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.ObserveBackend(svc.Name, string(svc.Mode), result, time.Since(start))
	}()

	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	body, err := codec.JSON.Marshal(invokeRequest{
		Group:     svc.Group,
		Operation: svc.Operation,
		Args:      []json.RawMessage{params},
		Identity:  caller,
	})
	if err != nil {
		return nil, fmt.Errorf("encode invocation: %w", err)
	}

	u := fmt.Sprintf("%s/namespaces/%s/resources/%s/%s",
		e.endpoint, url.PathEscape(string(svc.Namespace)), url.PathEscape(svc.Resource), action(svc.Mode))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build invocation: %w", err)
	}
	req.Header.Set("Content-Type", codec.JSON.ContentType())
	req.Header.Set("Accept", codec.JSON.ContentType())

	e.log.Debug("invoking backend",
		zap.String("service", svc.Name),
		zap.String("namespace", string(svc.Namespace)),
		zap.String("resource", svc.Resource),
		zap.String("mode", string(svc.Mode)),
		zap.String("identity", caller),
	)

	res, err := e.client.Do(req)
	if err != nil {
		return nil, gwerr.Backend(http.StatusBadGateway, "", fmt.Sprintf("backend %s unreachable", svc.Name)).WithCause(err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return nil, gwerr.Backend(http.StatusBadGateway, "", fmt.Sprintf("backend %s: read response", svc.Name)).WithCause(err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var f backendFailure
		_ = json.Unmarshal(raw, &f)
		if f.Message == "" {
			f.Message = fmt.Sprintf("backend %s returned %s", svc.Name, res.Status)
		}
		e.log.Warn("backend invocation failed",
			zap.String("service", svc.Name),
			zap.Int("status", res.StatusCode),
			zap.String("code", f.Code),
		)
		return nil, gwerr.Backend(res.StatusCode, f.Code, f.Message)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if err := codec.JSON.Unmarshal(raw, &out); err != nil {
		return nil, gwerr.Backend(http.StatusBadGateway, "", fmt.Sprintf("backend %s: malformed result", svc.Name)).WithCause(err)
	}
	return out, nil
}
