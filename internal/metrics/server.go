package metrics

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the staffplan metrics on their own listener, away from the
// API port.
type Server struct {
	server   *http.Server
	addr     string
	gatherer prometheus.Gatherer
}

// NewServer creates a metrics server for the default registry.
func NewServer(addr string) *Server {
	s := &Server{addr: addr, gatherer: prometheus.DefaultGatherer}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))
	mux.HandleFunc("/", s.index)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// index lists the staffplan metric families currently registered.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	names, err := s.families()
	if err != nil {
		log.Printf("gather metrics error: %v", err)
		http.Error(w, "gather metrics failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "staffplan metrics (scrape /metrics)\n\n")
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
}

func (s *Server) families() ([]string, error) {
	mfs, err := s.gatherer.Gather()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		if strings.HasPrefix(mf.GetName(), namespace+"_") {
			names = append(names, mf.GetName())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("metrics server listening on %s", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("shutting down metrics server")
	return s.server.Shutdown(ctx)
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}
