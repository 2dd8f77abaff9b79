package serverfx

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/joeydtaylor/steeze-gateway/pkg/bundlefx"
	"github.com/joeydtaylor/steeze-gateway/pkg/contract"
	"github.com/joeydtaylor/steeze-gateway/pkg/core"
	"github.com/joeydtaylor/steeze-gateway/pkg/dispatch"
	"github.com/joeydtaylor/steeze-gateway/pkg/electrician"
	"github.com/joeydtaylor/steeze-gateway/pkg/handler"
	"github.com/joeydtaylor/steeze-gateway/pkg/inventory"
	"github.com/joeydtaylor/steeze-gateway/pkg/ledger"
	"github.com/joeydtaylor/steeze-gateway/pkg/manifest"
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-gateway/pkg/transport/httpx"
	"github.com/joeydtaylor/steeze-gateway/pkg/wallet"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Options allow per-deployment env keys/defaults without code duplication.
type Options struct {
	Service         string // for logs only
	Version         string // reported by the healthcheck; falls back to [gateway] version
	ManifestEnv     string // e.g. "GATEWAY_MANIFEST"
	DefaultManifest string // e.g. "gateway.toml"
	ListenAddrEnv   string // e.g. "SERVER_LISTEN_ADDRESS"
	DefaultListen   string // e.g. ":4000"
	TLSCertEnv      string // e.g. "SSL_SERVER_CERTIFICATE"
	TLSKeyEnv       string // e.g. "SSL_SERVER_KEY"
}

// DefaultOptions is the stock gateway deployment.
func DefaultOptions() Options {
	return Options{
		Service:         "steeze-gateway",
		ManifestEnv:     manifest.EnvManifest,
		DefaultManifest: manifest.DefaultManifest,
		ListenAddrEnv:   "SERVER_LISTEN_ADDRESS",
		DefaultListen:   ":4000",
		TLSCertEnv:      "SSL_SERVER_CERTIFICATE",
		TLSKeyEnv:       "SSL_SERVER_KEY",
	}
}

// ExternalHandlersGroup is the fx value group external handler modules join.
const ExternalHandlersGroup = "external_handlers"

// ExternalHandler contributes a handler for path under name. Equivalent to
// handler.Register, but scoped to one fx app.
func ExternalHandler(path, name string, h handler.Handler) fx.Option {
	return fx.Provide(fx.Annotated{
		Group: ExternalHandlersGroup,
		Target: func() handler.Registration {
			return handler.Registration{Path: path, Name: name, Origin: handler.OriginExternal, Handler: h}
		},
	})
}

// ---- Startup collaborators ----

func provideManifest(o Options, log *zap.Logger) (manifest.Config, error) {
	return manifest.Load(envOr(o.ManifestEnv, o.DefaultManifest), log)
}

func provideContract(cfg manifest.Config, log *zap.Logger) (*contract.Registry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return contract.Load(ctx, cfg.Contract.Source, log)
}

func provideInventory(cfg manifest.Config, log *zap.Logger) (*inventory.Inventory, error) {
	return inventory.Load(cfg.Inventory.Source, log)
}

func checkWallet(cfg manifest.Config, log *zap.Logger) error {
	w := cfg.Wallet
	return wallet.Check(context.Background(), wallet.FileStore{Dir: w.Dir}, w.Registrar, w.SystemUsers, w.Require, log)
}

// provideRelay starts the tx event relay; its wire stops with the app.
func provideRelay(lc fx.Lifecycle, log *zap.Logger) (electrician.RelayClient, error) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{OnStop: func(context.Context) error { cancel(); return nil }})
	rc, err := electrician.NewBuilderRelay(ctx, electrician.RelayConfigFromEnv(), log)
	if err != nil {
		cancel()
		return nil, err
	}
	return rc, nil
}

func provideExecutor(cfg manifest.Config, relay electrician.RelayClient, log *zap.Logger) ledger.Executor {
	timeout := time.Duration(cfg.Ledger.TimeoutMS) * time.Millisecond
	return ledger.NewPublishing(ledger.NewHTTPExecutor(cfg.Ledger.Endpoint, timeout, log), relay, log)
}

type resolverDeps struct {
	fx.In

	Opts     Options
	Cfg      manifest.Config
	Exec     ledger.Executor
	External []handler.Registration `group:"external_handlers"`
	Log      *zap.Logger
}

func provideResolver(d resolverDeps) (*handler.Resolver, error) {
	version := d.Opts.Version
	if version == "" {
		version = d.Cfg.Gateway.Version
	}
	external := append(append([]handler.Registration(nil), d.External...), handler.Registered()...)
	return handler.NewResolver(handler.Default(d.Exec), handler.Builtins(d.Exec, version), external, d.Log)
}

func providePipeline(cfg manifest.Config, reg *contract.Registry, inv *inventory.Inventory, res *handler.Resolver, log *zap.Logger) *dispatch.Pipeline {
	return dispatch.New(reg, inv, res, dispatch.Config{CallerHeader: cfg.Dispatch.CallerHeader}, log)
}

// ---- Router ----

type routerDeps struct {
	fx.In

	Cfg manifest.Config

	AuthMW *auth.Middleware
	LogMW  *logger.Middleware

	Metrics http.Handler `name:"metrics"`

	Pipeline *dispatch.Pipeline
	R        httpx.Router
	Log      *zap.Logger
}

func provideRouter(d routerDeps) http.Handler {
	return core.BuildRouter(d.Cfg, core.BuildDeps{
		Auth:     d.AuthMW,
		LogMW:    d.LogMW,
		Metrics:  d.Metrics,
		Router:   d.R,
		Pipeline: d.Pipeline,
		Log:      d.Log,
	})
}

// ---- Server lifecycle ----

type serverDeps struct {
	fx.In
	Opts   Options
	Logger *zap.Logger
	App    http.Handler `name:"app"`
}

func registerHooks(lc fx.Lifecycle, d serverDeps) {
	addr := envOr(d.Opts.ListenAddrEnv, d.Opts.DefaultListen)
	cert := os.Getenv(d.Opts.TLSCertEnv)
	key := os.Getenv(d.Opts.TLSKeyEnv)

	srv := &http.Server{
		Addr:         addr,
		Handler:      d.App,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		TLSConfig:    &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13},
	}
	useTLS := fileExists(cert) && fileExists(key)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if useTLS {
				d.Logger.Info("server starting (TLS)",
					zap.String("service", d.Opts.Service),
					zap.String("addr", addr),
					zap.String("cert", cert),
				)
				go func() {
					if err := srv.ListenAndServeTLS(cert, key); err != nil && !errors.Is(err, http.ErrServerClosed) {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			} else {
				d.Logger.Info("server starting (PLAINTEXT)",
					zap.String("service", d.Opts.Service),
					zap.String("addr", addr),
				)
				go func() {
					srv.TLSConfig = nil
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.String("service", d.Opts.Service))
			return srv.Shutdown(ctx)
		},
	})
}

// ---- Public Fx module ----

// Components is everything but the HTTP server lifecycle, so the wiring can
// be exercised without binding a port.
func Components(opts Options) fx.Option {
	return fx.Options(
		fx.Supply(opts),

		// auth, logger, metrics (named)
		bundlefx.Module,

		fx.Provide(httpx.NewChi),

		fx.Provide(
			provideManifest,
			provideContract,
			provideInventory,
			provideRelay,
			provideExecutor,
			provideResolver,
			providePipeline,
		),
		fx.Invoke(checkWallet),

		// Router (named "app")
		fx.Provide(
			fx.Annotate(
				provideRouter,
				fx.ResultTags(`name:"app"`),
			),
		),
	)
}

func Module(opts Options) fx.Option {
	return fx.Options(
		Components(opts),
		fx.Invoke(registerHooks),
	)
}

// ---- helpers ----

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
