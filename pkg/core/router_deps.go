package core

import (
	"net/http"

	"github.com/joeydtaylor/steeze-gateway/pkg/dispatch"
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/logger"
	httpx "github.com/joeydtaylor/steeze-gateway/pkg/transport/httpx"
	"go.uber.org/zap"
)

type BuildDeps struct {
	Auth     *auth.Middleware
	LogMW    *logger.Middleware
	Metrics  http.Handler
	Router   httpx.Router
	Pipeline *dispatch.Pipeline
	Log      *zap.Logger
}
