package obs

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/yanun0323/logs"
)

// Server exposes the status board and prometheus metrics over HTTP.
type Server struct {
	board    *StatusBoard
	registry *prometheus.Registry
	server   *http.Server
}

func NewServer(addr string, board *StatusBoard, registry *prometheus.Registry) *Server {
	s := &Server{board: board, registry: registry}

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.getHealth).Methods(http.MethodGet)
	api.HandleFunc("/status", s.getStatus).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         3600,
	}).Handler(router)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until the context ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logs.Infof("status server listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.board.Current()
	response := struct {
		Status    string    `json:"status"`
		Connected bool      `json:"connected"`
		Halted    bool      `json:"halted"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Status:    "healthy",
		Connected: snap.Connected,
		Halted:    snap.TradingHalted,
		Timestamp: time.Now(),
	}
	writeJSON(w, response)
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.board.Current())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logs.Errorf("encode response: %+v", err)
	}
}
