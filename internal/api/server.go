package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/platefront/edge-gateway/internal/infrastructure/config"
	"github.com/platefront/edge-gateway/internal/infrastructure/logging"
	"github.com/platefront/edge-gateway/internal/queue"
	"github.com/platefront/edge-gateway/internal/store"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SyncEngine is the slice of the sync engine the API server needs.
// Declared here so tests can substitute a recording fake.
type SyncEngine interface {
	Enqueue(ctx context.Context, commandType string, payload json.RawMessage, deviceID *string) (queue.EnqueueResult, error)
	ForceSyncNow(ctx context.Context) queue.PassResult
	Stats(ctx context.Context) (store.QueueStats, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Cache   config.CacheConfig
	Pairing config.PairingConfig
	Logger  *logging.Logger
	Store   *store.Store
	Engine  SyncEngine
	Version string
}

// Server is the gateway's HTTP and WebSocket server.
//
// It manages the HTTP listener, routes, middleware, the device hub, and the
// pairing code issuer. The server is created with New() and started with
// Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	cacheTTL time.Duration
	logger   *logging.Logger
	store    *store.Store
	engine   SyncEngine
	version  string
	server   *http.Server
	hub      *Hub
	pairing  *pairingCodes
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("sync engine is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		cacheTTL: time.Duration(deps.Cache.DefaultTTL) * time.Second,
		logger:   deps.Logger,
		store:    deps.Store,
		engine:   deps.Engine,
		version:  deps.Version,
		pairing:  newPairingCodes(deps.Pairing.GetCodeTTL()),
	}
	s.hub = NewHub(HubDeps{
		WS:      deps.WS,
		Logger:  deps.Logger,
		Store:   deps.Store,
		Engine:  deps.Engine,
		Pairing: s.pairing,
	})
	return s, nil
}

// Hub returns the server's device hub so other components can broadcast.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the device hub and launches the HTTP listener in a background
// goroutine. The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
