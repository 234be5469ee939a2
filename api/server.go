// Package api provides the HTTP dispatch layer for fiscalgate.
//
// It resolves inbound calls to registered operations, validates input
// against each operation's declared contract, meters the fixed price per
// invocation, and streams invocation events over WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/openfiscal/fiscalgate/internal/billing"
	"github.com/openfiscal/fiscalgate/internal/config"
	"github.com/openfiscal/fiscalgate/internal/ops"
	"github.com/openfiscal/fiscalgate/internal/upstream"
)

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	registry *ops.Registry
	meter    billing.Meter
	ledger   *billing.Ledger
	wsHub    *WSHub
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config) *Server {
	client := upstream.New(cfg.Upstream.BaseURL)
	svc := ops.NewService(client)
	ledger := billing.NewLedger()

	srv := &Server{
		cfg:      cfg,
		registry: svc.Registry(),
		meter:    ledger,
		ledger:   ledger,
		wsHub:    NewWSHub(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// NewServerWith creates a server over a caller-supplied registry and
// meter. Used by tests.
func NewServerWith(cfg *config.Config, registry *ops.Registry, ledger *billing.Ledger) *Server {
	srv := &Server{
		cfg:      cfg,
		registry: registry,
		meter:    ledger,
		ledger:   ledger,
		wsHub:    NewWSHub(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub
	go s.wsHub.Run()

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/operations", s.handleListOperations)
		r.Post("/operations/{key}", s.handleInvoke)
		r.Get("/usage", s.handleUsage)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OperationInfo describes one registered operation for listings.
type OperationInfo struct {
	Key         string      `json:"key"`
	Description string      `json:"description"`
	Price       int64       `json:"price"`
	Input       []ops.Field `json:"input,omitempty"`
}

// UsageInfo summarizes the billing ledger.
type UsageInfo struct {
	Invocations int             `json:"invocations"`
	Total       int64           `json:"total"`
	Entries     []billing.Entry `json:"entries"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":     "ok",
			"operations": len(s.registry.List()),
		},
	})
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	list := s.registry.List()
	infos := make([]OperationInfo, 0, len(list))
	for _, op := range list {
		infos = append(infos, OperationInfo{
			Key:         op.Key,
			Description: op.Description,
			Price:       op.Price,
			Input:       op.Input,
		})
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: infos})
}

// handleInvoke dispatches one operation call: lookup, validate, charge,
// invoke. Validation failures are rejected before the handler runs and
// are never billed.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	op, err := s.registry.Get(key)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	raw := map[string]any{}
	if r.Body != nil {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable request body")
			return
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &raw); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}
	}

	input, err := ops.Validate(op, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.meter.Charge(r.Context(), op.Key, op.Price); err != nil {
		writeError(w, http.StatusInternalServerError, "metering failed")
		return
	}

	started := time.Now()
	result, err := op.Handler(r.Context(), input)
	if err != nil {
		var ue *upstream.UpstreamError
		if errors.As(err, &ue) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "operation_invoked",
		Data: map[string]interface{}{
			"key":        op.Key,
			"price":      op.Price,
			"durationMs": time.Since(started).Milliseconds(),
		},
	})

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: UsageInfo{
			Invocations: s.ledger.Count(),
			Total:       s.ledger.Total(),
			Entries:     s.ledger.Entries(),
		},
	})
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
