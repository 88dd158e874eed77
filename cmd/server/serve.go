package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"notaria/internal/document/handler"
	"notaria/internal/platform/auth"
	"notaria/internal/platform/httpserver"
	httpmetrics "notaria/internal/platform/metrics"
	"notaria/pkg/platform/httputil"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and the audit relay when Kafka is configured)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := a.coordinator()
	g, err := a.buildGate(ctx, svc)
	if err != nil {
		return err
	}
	tokens := auth.NewTokenService(a.cfg.JWTSigningKey, tokenIssuer)

	router := chi.NewRouter()
	router.Use(httpmetrics.New(a.registry).Middleware)
	router.Handle("/metrics", httpmetrics.Handler(a.registry))
	router.Get("/healthz", a.handleHealth)
	handler.New(g, svc, a.logger, auth.NewTokenServiceAdapter(tokens)).Register(router)

	srv := httpserver.New(a.cfg.Addr, router)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		a.logger.InfoContext(gctx, "starting notaria", "addr", a.cfg.Addr, "storage", a.cfg.Storage.Driver)
		return httpserver.Run(gctx, srv, 10*time.Second)
	})
	if relay := a.relay(); relay != nil {
		group.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return group.Wait()
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK
	for _, c := range a.checks {
		if err := c.check(ctx); err != nil {
			resp.Checks[c.name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}
