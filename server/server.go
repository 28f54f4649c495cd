// Package server exposes training progress over http: the latest stats as
// json, and a websocket that streams them as they change.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"gamelearn/reinforcement"

	"github.com/gorilla/mux"
	channerics "github.com/niceyeti/channerics/channels"
)

const shutdownTimeout = 5 * time.Second

// Server holds the latest snapshot received from training. It serves any
// number of readers but only ever stores the newest value; intermediate
// snapshots are dropped, as each one fully describes the run.
type Server struct {
	addr    string
	router  *mux.Router
	mu      sync.RWMutex
	latest  reinforcement.Stats
	version uint64
}

// NewServer consumes @updates until it closes or @ctx is done.
func NewServer(
	ctx context.Context,
	addr string,
	updates <-chan reinforcement.Stats,
) *Server {
	server := &Server{
		addr:   addr,
		router: mux.NewRouter(),
	}
	server.router.HandleFunc("/stats", server.serveStats).Methods(http.MethodGet)
	server.router.HandleFunc("/ws", server.serveWebsocket).Methods(http.MethodGet)
	server.router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)

	go func() {
		for stats := range channerics.OrDone(ctx.Done(), updates) {
			server.set(stats)
		}
	}()
	return server
}

func (server *Server) set(stats reinforcement.Stats) {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.latest = stats
	server.version++
}

// Latest returns the newest snapshot and its version, which is zero until the first one arrives.
func (server *Server) Latest() (reinforcement.Stats, uint64) {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return server.latest, server.version
}

// Handler returns the server's routes.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until @ctx is done, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) (err error) {
	httpServer := &http.Server{
		Addr:    server.addr,
		Handler: server.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err = httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (server *Server) serveStats(w http.ResponseWriter, _ *http.Request) {
	stats, _ := server.Latest()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Println("stats:", err)
	}
}

// serveWebsocket streams snapshots to the client until it disconnects.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := NewClient[reinforcement.Stats](server.Latest, w, r)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	defer cli.Close()

	if err = cli.Sync(); err != nil && !isClosure(err) {
		log.Println("websocket:", err)
	}
}
