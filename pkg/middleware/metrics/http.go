package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// NewPromHttpHandler returns the /metrics handler.
func NewPromHttpHandler() http.Handler { return promhttp.Handler() }

var Module = fx.Options(
	fx.Provide(fx.Annotate(NewPromHttpHandler, fx.ResultTags(`name:"metrics"`))),
)
