package dispatch

import (
	"net/http"

	"github.com/joeydtaylor/steeze-gateway/pkg/contract"
	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/metrics"
)

// DefaultDocsPath serves the raw contract.
const DefaultDocsPath = "/api-docs/openapi.yaml"

// ServeContract returns the loaded contract document as-is. It never enters
// the pipeline states.
func (p *Pipeline) ServeContract() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p.contract == nil {
			p.fail(w, &Context{path: r.URL.Path, method: r.Method, Err: gwerr.ContractLoad("contract not loaded")})
			return
		}
		p.write(w, http.StatusOK, p.contract.Raw())
	})
}

// Unrouted answers requests no contract route matched (status 404) or whose
// path matched with another method (405) through the normalizer.
func (p *Pipeline) Unrouted(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		if status == http.StatusMethodNotAllowed {
			err = gwerr.UnknownRoute(status, "%s endpoint has no %s method", r.URL.Path, r.Method)
		} else {
			err = gwerr.UnknownRoute(status, "%s endpoint is missing from the contract", r.URL.Path)
		}
		st, body := p.norm.Normalize(r.URL.Path, r.Method, err)
		metrics.CountDispatch(metrics.UnroutedLabel, r.Method, outcome(err, body))
		p.write(w, st, body)
	})
}

// Contract is the registry the pipeline dispatches against.
func (p *Pipeline) Contract() *contract.Registry { return p.contract }
