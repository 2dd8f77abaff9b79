// Package core assembles the gateway's HTTP surface: shared middleware, the
// metrics and docs endpoints, and one route per contract operation.
package core

import (
	"net/http"
	"strings"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	manifest "github.com/joeydtaylor/steeze-gateway/pkg/manifest"
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/logger"
	hmetrics "github.com/joeydtaylor/steeze-gateway/pkg/middleware/metrics"
	httpx "github.com/joeydtaylor/steeze-gateway/pkg/transport/httpx"
	"go.uber.org/zap"
)

const (
	HeartbeatPath = "/ping"
	MetricsPath   = "/metrics"
)

func BuildRouter(cfg manifest.Config, d BuildDeps) http.Handler {
	r := d.Router
	p := d.Pipeline
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	hmetrics.AddMetricsSkipPaths(HeartbeatPath)
	hmetrics.SetPathNormalizer(httpx.RoutePattern)
	logger.AddBodyLogPaths(cfg.Logging.BodyPaths...)

	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat(HeartbeatPath))
	if d.Auth != nil {
		r.Use(d.Auth.Middleware())
	}
	if d.LogMW != nil {
		r.Use(d.LogMW.Middleware(d.Auth, p.CallerHeader()))
	}
	r.Use(hmetrics.Collect())

	if d.Metrics != nil {
		r.Get(MetricsPath, d.Metrics)
	}
	r.Get(cfg.Contract.DocsPath, p.ServeContract())
	r.NotFound(p.Unrouted(http.StatusNotFound))
	r.MethodNotAllowed(p.Unrouted(http.StatusMethodNotAllowed))

	deadline := time.Duration(cfg.Dispatch.TimeoutMS) * time.Millisecond
	for _, op := range p.Contract().Operations() {
		if name := reservedRoute(cfg, d, op.Method, op.Path); name != "" {
			log.Warn("contract operation shadowed by gateway route; not mounted",
				zap.String("method", op.Method),
				zap.String("path", op.Path),
				zap.String("route", name),
			)
			continue
		}
		h := p.Handler(op.Path, op.Method)
		if deadline > 0 {
			h = withTimeout(h, deadline)
		}
		r.Handle(op.Method, op.Path, h)
	}
	return r.Mux()
}

// reservedRoute names the gateway route that answers method and path ahead of
// any contract operation, or returns "".
func reservedRoute(cfg manifest.Config, d BuildDeps, method, path string) string {
	read := strings.EqualFold(method, http.MethodGet) || strings.EqualFold(method, http.MethodHead)
	switch {
	case read && strings.EqualFold(path, HeartbeatPath):
		return "heartbeat"
	case strings.EqualFold(method, http.MethodGet) && path == cfg.Contract.DocsPath:
		return "docs"
	case d.Metrics != nil && strings.EqualFold(method, http.MethodGet) && path == MetricsPath:
		return "metrics"
	}
	return ""
}
