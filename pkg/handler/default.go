package handler

import (
	"context"

	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
	"github.com/joeydtaylor/steeze-gateway/pkg/inventory"
	"github.com/joeydtaylor/steeze-gateway/pkg/ledger"
)

// Identity picks the identity a backend call runs under: the caller when
// present, else the service's default identity.
func Identity(caller string, svc inventory.Service) (string, error) {
	if caller != "" {
		return caller, nil
	}
	if svc.DefaultIdentity != "" {
		return svc.DefaultIdentity, nil
	}
	return "", gwerr.MissingIdentity("no caller identity and service %s has no default identity", svc.Name)
}

// Default invokes the first resolved service with the request parameters.
func Default(exec ledger.Executor) Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) (any, error) {
		if len(req.Services) == 0 {
			return nil, gwerr.NoBackendConfigured("no backend resolved for %s %s", req.Method, req.Path)
		}
		svc := req.Services[0]
		id, err := Identity(req.Caller, svc)
		if err != nil {
			return nil, err
		}
		return exec.Invoke(ctx, svc, id, req.Params)
	})
}
