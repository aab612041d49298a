package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/xd6wang/my-serverless-kms/internal/api"
	"github.com/xd6wang/my-serverless-kms/internal/autoscaler"
	"github.com/xd6wang/my-serverless-kms/internal/webhooks"
	"github.com/xd6wang/my-serverless-kms/internal/webhooks/routers"
)

type Server struct {
	Router *chi.Mux
	Port   int
}

func NewServer(port int, dispatcher webhooks.Dispatcher, metrics *autoscaler.Metrics, token string) *Server {
	r := chi.NewRouter()

	// Base middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(api.AuthMiddleware(token))
		r.Post("/events", routers.EventHandler(dispatcher))
		r.Post("/webhook/cloudwatch", routers.CloudWatchHandler(dispatcher))
	})

	return &Server{
		Router: r,
		Port:   port,
	}
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.Router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Int("port", s.Port).Msg("Starting server")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
