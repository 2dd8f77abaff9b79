package logger

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Log files under log/.
const (
	AccessLogFile = "gateway-access.log"
	SystemLogFile = "gateway.log"
)

func ProvideLoggerMiddleware() *Middleware { return New(NewLog(AccessLogFile)) }

// ProvideLogger is the gateway's system logger, shared by every component.
func ProvideLogger() *zap.Logger { return NewLog(SystemLogFile) }

var Module = fx.Options(
	fx.Provide(ProvideLoggerMiddleware, ProvideLogger),
)
