package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/r3labs/sse/v2"

	"github.com/caberfan/lyricsdl"
	"github.com/caberfan/lyricsdl/cmd/internal/lyricsdlflag"
	"github.com/caberfan/lyricsdl/notifications"
	"github.com/caberfan/lyricsdl/runlog"
)

var cfg = lyricsdlflag.Config()
var notifs = lyricsdlflag.Notifications()

func main() {
	defer lyricsdlflag.ExitError()

	confListenAddr := flag.String("listen-addr", ":7373", "Listen address")
	confAPIKey := flag.String("api-key", "", "Key for HTTP basic auth, sent as the password")

	lyricsdlflag.DefaultClient()
	lyricsdlflag.Parse()

	if *confAPIKey == "" {
		slog.Error("need api key")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := newServer(ctx, cfg, notifs)
	defer srv.Close()

	hs := &http.Server{
		Addr:              *confListenAddr,
		Handler:           withAuth(*confAPIKey, srv),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	slog.Info("starting", "addr", *confListenAddr)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("listen and serve", "err", err)
		return
	}
}

const logStream = "log"

// server runs one folder at a time in the background and shares its log over HTTP.
type server struct {
	ctx    context.Context
	cfg    *lyricsdl.Config
	notifs *notifications.Notifications

	log      runlog.Log
	sse      *sse.Server
	mux      *http.ServeMux
	runs     sync.WaitGroup
	followed chan struct{}

	mu     sync.Mutex
	status status
}

type status struct {
	Processing bool                `json:"processing"`
	Path       string              `json:"path"`
	Mode       lyricsdl.Mode       `json:"mode"`
	Result     *lyricsdl.RunResult `json:"result"`
	Error      string              `json:"error,omitempty"`
}

func newServer(ctx context.Context, cfg *lyricsdl.Config, notifs *notifications.Notifications) *server {
	s := &server{ctx: ctx, cfg: cfg, notifs: notifs, followed: make(chan struct{})}

	s.sse = sse.New()
	s.sse.AutoStream = true
	s.sse.AutoReplay = false
	s.sse.CreateStream(logStream)

	go func() {
		defer close(s.followed)
		for e := range s.log.Follow(context.Background()) {
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			s.sse.Publish(logStream, &sse.Event{Event: []byte(e.Kind), Data: data})
		}
	}()

	s.mux = http.NewServeMux()
	s.mux.Handle("GET /events", s.sse)
	s.mux.HandleFunc("POST /run", s.handleRun)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /log", s.handleLog)
	return s
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close waits for the current run and ends the event stream once its entries are published.
func (s *server) Close() {
	s.runs.Wait()
	s.log.Close()
	<-s.followed
	s.sse.Close()
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	path := r.FormValue("path")
	if path == "" {
		http.Error(w, "no path provided", http.StatusBadRequest)
		return
	}
	mode, err := lyricsdl.ParseMode(r.FormValue("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		http.Error(w, fmt.Sprintf("%q is not a directory", path), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.status.Processing {
		s.mu.Unlock()
		http.Error(w, "a run is already in progress", http.StatusConflict)
		return
	}
	s.status = status{Processing: true, Path: path, Mode: mode}
	s.mu.Unlock()

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.run(path, mode)
	}()

	w.WriteHeader(http.StatusAccepted)
}

func (s *server) run(path string, mode lyricsdl.Mode) {
	res, err := lyricsdl.Run(s.ctx, s.cfg, path, mode, &s.log)

	s.mu.Lock()
	s.status.Processing = false
	s.status.Result = &res
	if err != nil {
		s.status.Error = err.Error()
	}
	s.mu.Unlock()

	switch {
	case err != nil:
		slog.Error("run", "path", path, "err", err)
		s.notifs.Sendf(s.ctx, notifications.RunError, "Run in %q failed: %v", path, err)
	case res.Failed > 0:
		s.notifs.Sendf(s.ctx, notifications.RunError, "Run in %q finished, but %d of %d files failed", path, res.Failed, res.Scanned)
	default:
		s.notifs.Sendf(s.ctx, notifications.RunComplete, "Run in %q finished, %d of %d files got lyrics", path, res.Affected, res.Scanned)
	}
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()

	respJSON(w, st)
}

func (s *server) handleLog(w http.ResponseWriter, r *http.Request) {
	entries := s.log.Entries()
	if entries == nil {
		entries = []runlog.Entry{}
	}
	respJSON(w, entries)
}

func respJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func withAuth(apiKey string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", "Basic")
		if _, key, _ := r.BasicAuth(); subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		slog.Debug("request", "method", r.Method, "url", r.URL)
		h.ServeHTTP(w, r)
	})
}
