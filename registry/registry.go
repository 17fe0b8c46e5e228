// Package registry assembles a complete registry instance from a
// configuration: storage driver, HTTP application, health checks, the
// well-known discovery document and the optional debug listener.
package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"strings"
	"time"

	metricspkg "github.com/docker/go-metrics"
	gorhandlers "github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"

	"github.com/resourcex/resourcex/configuration"
	"github.com/resourcex/resourcex/health"
	"github.com/resourcex/resourcex/health/checks"
	"github.com/resourcex/resourcex/internal/dcontext"
	"github.com/resourcex/resourcex/registry/handlers"
	"github.com/resourcex/resourcex/registry/storage"
	"github.com/resourcex/resourcex/registry/storage/driver/factory"
	"github.com/resourcex/resourcex/version"
	"github.com/resourcex/resourcex/wellknown"
)

// storageProbeTimeout bounds the periodic storage health probe.
const storageProbeTimeout = 5 * time.Second

// A Registry represents a complete instance of the registry.
type Registry struct {
	config *configuration.Configuration
	app    *handlers.App

	server      *http.Server
	debugServer *http.Server
}

// NewRegistry creates a new registry from a context and configuration
// struct.
func NewRegistry(ctx context.Context, config *configuration.Configuration) (*Registry, error) {
	ctx, err := configureLogging(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}
	dcontext.GetLoggerWithField(ctx, "version", version.Version()).Info("starting registry")

	driver, err := factory.Create(config.Storage.Type(), config.Storage.Parameters())
	if err != nil {
		return nil, fmt.Errorf("constructing %s driver: %w", config.Storage.Type(), err)
	}

	store := storage.NewRegistry(driver)
	app := handlers.NewApp(store, handlers.Options{
		ImmutableTags: config.Registry.ImmutableTags,
	})

	healthRegistry := health.NewRegistry()
	healthRegistry.Register("storage", checks.StorageDriverChecker(driver, storageProbeTimeout))

	mux := http.NewServeMux()
	mux.Handle("/", appHandler(app, config.HTTP.Prefix))
	mux.Handle("/health", health.Handler(healthRegistry))
	if len(config.WellKnown.Registries) > 0 {
		mux.Handle(wellknown.Path, wellknown.Handler(wellknown.Document{
			Version:    version.Version(),
			Registries: config.WellKnown.Registries,
		}))
	}

	var handler http.Handler = mux
	handler = gorhandlers.RecoveryHandler(
		gorhandlers.PrintRecoveryStack(true),
	)(handler)
	handler = gorhandlers.CombinedLoggingHandler(os.Stdout, handler)

	registry := &Registry{
		config: config,
		app:    app,
		server: &http.Server{
			Addr:    config.HTTP.Addr,
			Handler: handler,
		},
	}

	if config.HTTP.Debug.Addr != "" {
		registry.debugServer = &http.Server{
			Addr:    config.HTTP.Debug.Addr,
			Handler: debugMux(),
		}
	}
	return registry, nil
}

// ListenAndServe runs the registry's HTTP server(s) until they fail.
func (registry *Registry) ListenAndServe() error {
	if registry.debugServer != nil {
		go func() {
			logrus.Infof("debug server listening on %v", registry.debugServer.Addr)
			if err := registry.debugServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.Errorf("debug server: %v", err)
			}
		}()
	}

	logrus.Infof("listening on %v", registry.server.Addr)
	return registry.server.ListenAndServe()
}

// Shutdown gracefully stops the registry's HTTP servers.
func (registry *Registry) Shutdown(ctx context.Context) error {
	if registry.debugServer != nil {
		if err := registry.debugServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	return registry.server.Shutdown(ctx)
}

// appHandler mounts the API application under the configured URL prefix.
func appHandler(app *handlers.App, prefix string) http.Handler {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return app
	}
	return http.StripPrefix(prefix, app)
}

// debugMux serves pprof and prometheus metrics on the debug listener,
// kept off the public address.
func debugMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", metricspkg.Handler())
	return mux
}

// configureLogging sets up the process logger from the configuration and
// returns a context carrying it.
func configureLogging(ctx context.Context, config *configuration.Configuration) (context.Context, error) {
	level, err := logrus.ParseLevel(string(config.Log.Level))
	if err != nil {
		logrus.Warnf("error parsing level %q: %v, using info", config.Log.Level, err)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	switch config.Log.Formatter {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339Nano})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		return ctx, fmt.Errorf("unsupported log formatter: %q", config.Log.Formatter)
	}

	if len(config.Log.Fields) > 0 {
		fields := logrus.Fields{}
		for k, v := range config.Log.Fields {
			fields[k] = v
		}
		entry := logrus.StandardLogger().WithFields(fields)
		dcontext.SetDefaultLogger(entry)
		return dcontext.WithLogger(ctx, entry), nil
	}
	return dcontext.WithLogger(ctx, dcontext.GetLogger(ctx)), nil
}
