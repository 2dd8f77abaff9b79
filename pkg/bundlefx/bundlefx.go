package bundlefx

import (
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/metrics"
	"go.uber.org/fx"
)

// Module provides the shared HTTP middleware and the system logger.
var Module = fx.Options(
	auth.Module,
	logger.Module,
	metrics.Module,
)
