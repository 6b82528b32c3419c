// Package api exposes inference sessions over HTTP. Each session owns its
// model; turns are non-streaming JSON request/response pairs.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/cinder/internal/inference"
	"github.com/samcharles93/cinder/internal/logger"
)

type Server struct {
	store   *SessionStore
	backend Backend
	log     logger.Logger
}

func NewServer(store *SessionStore, backend Backend) (*Server, error) {
	if err := backend.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = NewSessionStore()
	}
	log := backend.Logger
	if log == nil {
		log = logger.Discard()
	}
	backend.Logger = log
	return &Server{
		store:   store,
		backend: backend,
		log:     log,
	}, nil
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)

	e.POST("/v1/sessions", s.handleCreateSession)
	e.GET("/v1/sessions/:id", s.handleGetSession)
	e.DELETE("/v1/sessions/:id", s.handleDeleteSession)
	e.POST("/v1/sessions/:id/turns", s.handleTurn)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.store.Len(),
	})
}

func (s *Server) handleCreateSession(c *echo.Context) error {
	req, err := decodeJSON[CreateSessionRequest](c.Request().Body)
	if err != nil && !errors.Is(err, errEmptyBody) {
		return writeError(c, badParam("", "decode body: %v", err))
	}
	entry, err := s.backend.newSession(req)
	if err != nil {
		if status, _ := classify(err); status >= http.StatusInternalServerError {
			s.log.Error("create session failed", "error", err)
		}
		return writeError(c, err)
	}
	id := s.store.Put(entry)
	s.log.Info("session created", "session", id, "mode", entry.session.Mode().String())
	return c.JSON(http.StatusCreated, CreateSessionResponse{
		ID:     id,
		Object: "session",
		Mode:   entry.session.Mode().String(),
	})
}

func (s *Server) handleGetSession(c *echo.Context) error {
	entry, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeError(c, errSessionNotFound)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return c.JSON(http.StatusOK, SessionResponse{
		ID:            entry.session.ID.String(),
		Object:        "session",
		Mode:          entry.session.Mode().String(),
		Turns:         entry.session.Turns(),
		HistoryTokens: len(entry.session.History()),
		Closed:        entry.session.Closed(),
	})
}

func (s *Server) handleDeleteSession(c *echo.Context) error {
	id := c.Param("id")
	entry, ok := s.store.Get(id)
	if !ok || !s.store.Delete(id) {
		return writeError(c, errSessionNotFound)
	}
	entry.mu.Lock()
	entry.session.Close()
	entry.mu.Unlock()
	s.log.Info("session deleted", "session", id)
	return c.JSON(http.StatusOK, DeleteSessionResponse{
		ID:      id,
		Object:  "session",
		Deleted: true,
	})
}

func (s *Server) handleTurn(c *echo.Context) error {
	id := c.Param("id")
	entry, ok := s.store.Get(id)
	if !ok {
		return writeError(c, errSessionNotFound)
	}
	req, err := decodeJSON[TurnRequest](c.Request().Body)
	if err != nil && !errors.Is(err, errEmptyBody) {
		return writeError(c, badParam("", "decode body: %v", err))
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.session.Closed() {
		return writeError(c, inference.ErrSessionClosed)
	}

	entry.sink.Reset()
	entry.input.Push(req.Input)
	// A client that goes away mid-request must not close the session.
	ctx := context.WithoutCancel(c.Request().Context())
	res, err := entry.session.RunTurn(ctx)
	if err != nil {
		if status, _ := classify(err); status >= http.StatusInternalServerError {
			s.log.Error("turn failed", "session", id, "error", err)
		} else {
			s.log.Debug("turn rejected", "session", id, "error", err)
		}
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, TurnResponse{
		SessionID:    id,
		Turn:         res.Turn,
		Tokens:       res.Tokens,
		Text:         s.responseText(entry, res.Tokens),
		PromptTokens: len(res.Context),
		Truncated:    res.Truncated,
		StopReason:   string(res.StopReason),
		Stats:        turnStats(res.Stats),
		Closed:       entry.session.Closed(),
	})
}

// responseText decodes the generated tokens, EOS excluded, so multi-byte
// characters survive. The streamed display text is the fallback.
func (s *Server) responseText(entry *sessionEntry, tokens []int) string {
	if n := len(tokens); n > 0 && tokens[n-1] == entry.session.EOSTokenID() {
		tokens = tokens[:n-1]
	}
	text, err := s.backend.Tokenizer.Decode(tokens)
	if err != nil {
		return entry.sink.Text()
	}
	return text
}
