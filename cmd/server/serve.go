package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/ehealthMP/Omh-Schimmer/authstate"
	"github.com/ehealthMP/Omh-Schimmer/internal/config"
	shimerrors "github.com/ehealthMP/Omh-Schimmer/internal/errors"
	"github.com/ehealthMP/Omh-Schimmer/internal/logger"
	"github.com/ehealthMP/Omh-Schimmer/metrics"
	"github.com/ehealthMP/Omh-Schimmer/providers"
	"github.com/ehealthMP/Omh-Schimmer/server"
	"github.com/ehealthMP/Omh-Schimmer/shim"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errPanicRecovered = errors.New("panic recovered")

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the shim HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.New()
			l := logger.New(os.Stderr, c.GetLogLevel(), c.IsDev(), c.GetAppName())
			logger.SetGlobal(l)

			for {
				err := run(c)
				if shimerrors.Is(err, errPanicRecovered) {
					time.Sleep(1 * time.Second)
					continue
				}
				if err != nil {
					return err
				}
				break
			}
			log.Info().Msg("Server stopped")
			return nil
		},
	}
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errPanicRecovered
		}
	}()

	displayAppname(c.GetAppName())

	ctx := context.Background()
	repo, err := authstate.New(ctx, c.GetAuthStateConfig())
	if err != nil {
		return shimerrors.Wrapf(err, "authstate.New")
	}
	defer repo.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.Register(reg)
	if err != nil {
		return shimerrors.Wrapf(err, "metrics.Register")
	}

	providerConfigs, err := c.LoadProviders()
	if err != nil {
		return shimerrors.Wrapf(err, "LoadProviders")
	}
	registry, err := buildRegistry(providerConfigs, repo,
		shim.WithCallbackBaseURL(c.GetBaseURL()),
		shim.WithTimeout(c.GetTokenHTTPTimeout()),
		shim.WithLogger(log.Logger),
		shim.WithObserver(m),
	)
	if err != nil {
		return err
	}
	if len(registry.Keys()) == 0 {
		log.Warn().Str("file", c.GetProvidersFile()).Msg("No providers configured")
	}

	options := []server.Option{server.WithMetrics(m), server.WithLogger(log.Logger)}
	if p, ok := repo.(interface{ Ping(context.Context) error }); ok {
		options = append(options, server.WithHealthCheck("state_store", p.Ping))
	}
	handler, err := server.New(c, registry, options...)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// buildRegistry creates one Authorizer per provider configuration.
func buildRegistry(configs []shim.ProviderConfig, repo authstate.Repo, options ...shim.AuthorizerOption) (*shim.Registry, error) {
	registry, err := shim.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		s, err := providers.New(cfg)
		if err != nil {
			return nil, err
		}
		a, err := shim.NewAuthorizer(s, repo, options...)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(a); err != nil {
			return nil, err
		}
		log.Info().Str("shim", a.ShimKey()).Str("type", cfg.ProviderType()).Msg("Registered provider")
	}
	return registry, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
