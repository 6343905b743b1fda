/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/backendkit/go-backendkit/httpserver"
	"github.com/backendkit/go-backendkit/httpserver/middleware"
	"github.com/backendkit/go-backendkit/kvstore"
	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/restapi"
	"github.com/backendkit/go-backendkit/service"
	"github.com/backendkit/go-backendkit/softdelete/softdeleteapi"
	"github.com/backendkit/go-backendkit/throttle"
	"github.com/backendkit/go-backendkit/users"
)

const healthCheckKey = "healthz"

func newServeCommand(flags *rootFlags) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()
			if migrate {
				if err = a.migrate(cmd.Context()); err != nil {
					return err
				}
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "create the tables before serving")
	return cmd
}

// serve runs the HTTP server (and the memory store cleanup, if the memory store is used)
// until a shutdown signal is received.
func (a *app) serve(ctx context.Context) error {
	kvMetrics := kvstore.NewPrometheusMetrics(serviceName)
	store, closeStore, err := kvstore.New(ctx, a.cfg.KVStore, a.logger, kvMetrics)
	if err != nil {
		return fmt.Errorf("create key-value store: %w", err)
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			a.logger.Error("failed to close key-value store", log.Error(closeErr))
		}
	}()

	throttleMetrics := throttle.NewPrometheusMetrics(serviceName)
	srv, err := a.newHTTPServer(store, throttleMetrics)
	if err != nil {
		return err
	}

	units := []service.Unit{srv}
	if ms, ok := store.(*kvstore.MemoryStore); ok {
		units = append(units, ms.NewCleanupUnit(time.Duration(a.cfg.KVStore.Memory.CleanupInterval), a.logger))
	}

	kvMetrics.MustRegister()
	defer kvMetrics.Unregister()
	throttleMetrics.MustRegister()
	defer throttleMetrics.Unregister()
	restapi.MustInitAndRegisterMetrics(serviceName)
	defer restapi.UnregisterMetrics()

	return service.New(a.logger, service.NewCompositeUnit(units...)).StartContext(ctx)
}

func (a *app) newHTTPServer(store kvstore.Store, throttleMetrics throttle.MetricsCollector) (*httpserver.HTTPServer, error) {
	authOpts := middleware.AuthenticationOpts{Realm: serviceName}
	if a.cfg.LoginThrottle.Enabled {
		loginEngine, err := throttle.NewEngine(store, a.cfg.LoginThrottle.Policy, throttle.EngineOpts{
			Logger:  a.logger,
			Metrics: throttleMetrics,
		})
		if err != nil {
			return nil, fmt.Errorf("create login throttle engine: %w", err)
		}
		authOpts.LoginThrottle = loginEngine
		authOpts.TrustForwardedFor = a.cfg.LoginThrottle.TrustForwardedFor
	}
	apiMiddlewares := []func(http.Handler) http.Handler{
		middleware.Authentication(users.NewAuthenticator(a.users), errDomain, authOpts),
	}
	if a.cfg.Throttle.Enabled {
		engine, err := throttle.NewEngine(store, a.cfg.Throttle.Policy, throttle.EngineOpts{
			Logger:  a.logger,
			Metrics: throttleMetrics,
		})
		if err != nil {
			return nil, fmt.Errorf("create throttle engine: %w", err)
		}
		apiMiddlewares = append(apiMiddlewares, middleware.Throttle(engine, errDomain, middleware.ThrottleOpts{
			TrustForwardedFor: a.cfg.Throttle.TrustForwardedFor,
			FailClosed:        a.cfg.Throttle.FailClosed,
		}))
	}

	prefetcher := users.NewPrefetcher(store, a.users.Manager(), time.Duration(a.cfg.Users.PrefetchTTL), a.logger)
	usersHandler := softdeleteapi.NewHandler(a.users.Manager(), softdeleteapi.Opts[*users.User]{
		ErrorDomain:      errDomain,
		AllowViewDeleted: a.cfg.Users.AllowViewDeleted,
		OnChange:         prefetcher.Invalidate,
	})

	healthChecks := map[string]httpserver.HealthCheckComponent{
		"kvstore": func(ctx context.Context) error {
			_, _, err := store.Get(ctx, healthCheckKey)
			return err
		},
	}
	if a.db != nil {
		healthChecks["database"] = a.db.PingContext
	}

	srv, err := httpserver.New(a.cfg.Server, a.logger, httpserver.Opts{
		ServiceNameInURL: serviceName,
		APIRoutes: map[httpserver.APIVersion]httpserver.APIRoute{
			1: func(router chi.Router) {
				router.Route("/users", func(router chi.Router) {
					router.Get("/me", users.NewMeHandler(prefetcher, errDomain))
					router.Post("/", users.NewCreateHandler(a.users, errDomain))
					usersHandler.Routes(router)
				})
			},
		},
		APIMiddlewares: apiMiddlewares,
		ErrorDomain:    errDomain,
		HealthChecks:   healthChecks,
		HTTPRequestMetrics: httpserver.HTTPRequestMetricsOpts{
			Namespace: serviceName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create HTTP server: %w", err)
	}
	return srv, nil
}
