package handler

import (
	"context"

	"github.com/joeydtaylor/steeze-gateway/pkg/ledger"
	"golang.org/x/sync/errgroup"
)

const (
	HealthcheckPath = "/maintenance/healthcheck"
	HealthcheckName = "healthcheck"
)

type GatewayHealth struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ServiceHealth struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HealthReport struct {
	Gateway  GatewayHealth   `json:"gateway"`
	Services []ServiceHealth `json:"services"`
}

// Healthcheck invokes every resolved service concurrently and reports each
// outcome. A failing service degrades the report instead of failing it.
func Healthcheck(exec ledger.Executor, version string) Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) (any, error) {
		out := make([]ServiceHealth, len(req.Services))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(8)
		for i, svc := range req.Services {
			g.Go(func() error {
				out[i] = ServiceHealth{Service: svc.Name, Status: "OK"}
				id, err := Identity(req.Caller, svc)
				if err == nil {
					out[i].Result, err = exec.Invoke(gctx, svc, id, req.Params)
				}
				if err != nil {
					out[i].Status = "ERROR"
					out[i].Error = err.Error()
				}
				return nil
			})
		}
		_ = g.Wait()

		status := "OK"
		for _, s := range out {
			if s.Status != "OK" {
				status = "DEGRADED"
				break
			}
		}
		return HealthReport{Gateway: GatewayHealth{Status: status, Version: version}, Services: out}, nil
	})
}

// Builtins are the modules shipped with the gateway.
func Builtins(exec ledger.Executor, version string) []Registration {
	return []Registration{
		{Path: HealthcheckPath, Name: HealthcheckName, Handler: Healthcheck(exec, version), Origin: OriginBuiltin},
	}
}
