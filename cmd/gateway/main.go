// Command gateway serves the contract-driven API gateway.
package main

import (
	"github.com/joeydtaylor/steeze-gateway/pkg/serverfx"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

func main() {
	opts := serverfx.DefaultOptions()
	opts.Version = version

	fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		serverfx.Module(opts),
	).Run()
}
