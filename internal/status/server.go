package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flor3z/lol-live-tracker/internal/poller"
	"github.com/flor3z/lol-live-tracker/internal/riot"
	"github.com/flor3z/lol-live-tracker/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Sessions reports live games
type Sessions interface {
	Sessions() []poller.SessionInfo
}

// Pending reports queued matches
type Pending interface {
	ListPending(ctx context.Context) ([]storage.PendingMatch, error)
}

// Limiter reports rate limit window occupancy
type Limiter interface {
	Stats() riot.LimiterStats
}

// Server exposes tracker state over HTTP.
type Server struct {
	router   *chi.Mux
	sessions Sessions
	pending  Pending
	limiter  Limiter
	started  time.Time

	http *http.Server
}

// NewServer creates a status server.
func NewServer(sessions Sessions, pending Pending, limiter Limiter) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		sessions: sessions,
		pending:  pending,
		limiter:  limiter,
		started:  time.Now(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/live", s.handleLive)
	r.Get("/pending", s.handlePending)
	r.Get("/ratelimit", s.handleRateLimit)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.http = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Status server failed", "error", err)
		}
	}()

	slog.Info("Status server listening", "addr", ln.Addr().String())
	return nil
}

// Shutdown stops the server started by Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

type liveResponse struct {
	Count    int                  `json:"count"`
	Uptime   string               `json:"uptime"`
	Sessions []poller.SessionInfo `json:"sessions"`
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.Sessions()
	writeJSON(w, http.StatusOK, liveResponse{
		Count:    len(sessions),
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Sessions: sessions,
	})
}

type pendingEntry struct {
	MatchID       string     `json:"matchId"`
	GameMode      string     `json:"gameMode"`
	GuildID       string     `json:"guildId"`
	Attempts      int        `json:"attempts"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	entries, err := s.pending.ListPending(r.Context())
	if err != nil {
		slog.Error("Failed to list pending matches", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list pending matches"})
		return
	}

	out := make([]pendingEntry, 0, len(entries))
	for _, e := range entries {
		entry := pendingEntry{
			MatchID:   e.MatchID,
			GameMode:  e.GameMode,
			GuildID:   e.GuildID,
			Attempts:  e.Attempts,
			CreatedAt: e.CreatedAt,
		}
		if !e.LastAttemptAt.IsZero() {
			last := e.LastAttemptAt
			entry.LastAttemptAt = &last
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRateLimit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.limiter.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
