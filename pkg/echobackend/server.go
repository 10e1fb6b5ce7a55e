// Package echobackend is a small in-memory implementation of the chat backend
// API. It echoes what it receives and is meant for local development and for
// end-to-end tests of the client.
package echobackend

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-go-golems/chatwidget/pkg/chatapi"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// CommandDemo queues a markdown sample instead of an echo.
	CommandDemo = "/demo"
	// CommandSilent accepts the message and queues no reply.
	CommandSilent = "/silent"
	// CommandFail makes send-message answer 503.
	CommandFail = "/fail"

	maxBodyBytes = 64 << 10
)

const demoReply = `## Today's specials
We have **three** dishes on the menu:

 - Pizza margherita
 - Pasta **al pesto**
 - Tiramisu

![tiramisu](https://example.com/tiramisu.png)`

type Server struct {
	store  *Store
	router *mux.Router
}

func NewServer(store *Store) *Server {
	if store == nil {
		store = NewStore()
	}
	s := &Server{store: store, router: mux.NewRouter()}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc(chatapi.CreateThreadPath, s.createThread).Methods(http.MethodPost)
	s.router.HandleFunc(chatapi.SendMessagePath, s.sendMessage).Methods(http.MethodPost)
	s.router.HandleFunc(chatapi.GetResponsePath, s.getResponse).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	s.router.Use(logRequests)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) createThread(w http.ResponseWriter, r *http.Request) {
	id := s.store.CreateThread()
	log.Debug().Str("thread_id", id).Msg("thread created")
	writeJSON(w, http.StatusOK, chatapi.CreateThreadResponse{ThreadID: id})
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req chatapi.SendMessageRequest
	if !decode(w, r, &req) {
		return
	}
	if !s.store.Exists(req.ThreadID) {
		writeError(w, http.StatusNotFound, "unknown thread")
		return
	}

	switch strings.TrimSpace(req.Content) {
	case CommandFail:
		writeError(w, http.StatusServiceUnavailable, "delivery refused")
		return
	case CommandSilent:
	default:
		s.store.Enqueue(req.ThreadID, replyFor(req.Content))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getResponse(w http.ResponseWriter, r *http.Request) {
	var req chatapi.GetResponseRequest
	if !decode(w, r, &req) {
		return
	}
	reply, ok := s.store.Pop(req.ThreadID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown thread")
		return
	}
	writeJSON(w, http.StatusOK, chatapi.GetResponseResponse{Content: reply})
}

func replyFor(content string) string {
	if strings.TrimSpace(content) == CommandDemo {
		return demoReply
	}
	return "Echo: " + content
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. ready, if not nil, receives the bound address once listening.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}

	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info().Str("addr", ln.Addr().String()).Msg("starting echo backend")
		if ready != nil {
			ready(ln.Addr())
		}
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "echo backend stopped")
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down echo backend")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "echo backend shutdown")
		}
		log.Info().Msg("echo backend shutdown complete")
		return nil
	})

	return eg.Wait()
}
