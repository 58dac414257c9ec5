// Package web serves the game's status page: an HTML view for people and
// index.json for scripts. Both are rendered from a single tracker snapshot.
package web

import (
	"context"
	"net/http"

	"github.com/sweeney/tilt-balance/internal/status"
)

// Server is the status page HTTP server.
type Server struct {
	http    *http.Server
	tracker *status.Tracker
}

// New returns a Server for addr backed by tracker. It does not listen yet.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}
	s.http = &http.Server{Addr: addr, Handler: s.routes()}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	for _, pattern := range []string{"GET /{$}", "GET /index.html"} {
		mux.HandleFunc(pattern, s.page)
	}
	mux.HandleFunc("GET /index.json", s.json)
	return mux
}

// Handler exposes the router, for httptest.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks until Shutdown is called or listening fails.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// The game changes many times a second; never let a client cache a view.
func noStore(w http.ResponseWriter, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
}

func (s *Server) page(w http.ResponseWriter, _ *http.Request) {
	noStore(w, "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

func (s *Server) json(w http.ResponseWriter, _ *http.Request) {
	noStore(w, "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}
