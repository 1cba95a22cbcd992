package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"helpdesk-relay/internal/api/middleware"
	"helpdesk-relay/internal/queue"
	"helpdesk-relay/internal/relay"
	"helpdesk-relay/internal/storage"
	"helpdesk-relay/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 10 * time.Second

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	// ServiceKeyHash is the bcrypt hash guarding server-invoked endpoints.
	ServiceKeyHash string
	Logger         *slog.Logger
	// Registry replaces the default Prometheus registry for the HTTP metrics.
	Registry *prometheus.Registry
}

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	relay               *relay.Relay
	hub                 *websocket.Hub
	uploads             *storage.LocalStore
	routeRegistrars     []RouteRegistrar
	metrics             *metrics
	log                 *slog.Logger
	cors                middleware.CORSConfig
	serviceKeyHash      string
}

func NewAPIServer(cfg Config, rqm *queue.RequestQueueManager, rl *relay.Relay, hub *websocket.Hub, uploads *storage.LocalStore, registrars ...RouteRegistrar) *APIServer {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if cfg.Registry != nil {
		reg, gatherer = cfg.Registry, cfg.Registry
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &APIServer{
		listenAddr:          cfg.ListenAddr,
		requestQueueManager: rqm,
		relay:               rl,
		hub:                 hub,
		uploads:             uploads,
		routeRegistrars:     registrars,
		metrics:             newMetrics(reg, gatherer, cfg.ListenAddr, rqm),
		log:                 log,
		cors: middleware.CORSConfig{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-Requested-With", "Authorization", middleware.ServiceKeyHeader},
			AllowCredentials: true,
		},
		serviceKeyHash: cfg.ServiceKeyHash,
	}
}

// Routes builds the instrumented handler with every registered route and /metrics.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()

	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}

	mux.Handle("/metrics", s.metrics.metricsHandler())

	return s.metrics.instrument(mux)
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (s *APIServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", s.listenAddr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}

func (s *APIServer) Relay() *relay.Relay {
	return s.relay
}

func (s *APIServer) Hub() *websocket.Hub {
	return s.hub
}

func (s *APIServer) Queue() *queue.RequestQueueManager {
	return s.requestQueueManager
}

func (s *APIServer) Uploads() *storage.LocalStore {
	return s.uploads
}

func (s *APIServer) Logger() *slog.Logger {
	return s.log
}

func (s *APIServer) AllowedOrigins() []string {
	return s.cors.AllowedOrigins
}

func (s *APIServer) ServiceKeyHash() string {
	return s.serviceKeyHash
}
