// Package api serves ranked note views and note mutations over HTTP.
package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/aretw0/meteora/pkg/core"
)

// DefaultListen is the address used when Config.Listen is empty.
const DefaultListen = "127.0.0.1:7070"

// Config holds the server settings.
type Config struct {
	Listen string
}

// Server is the HTTP API over a core.Service.
type Server struct {
	config  Config
	service *core.Service
	logger  *slog.Logger
	app     *fiber.App
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates the server and registers its routes.
func NewServer(config Config, service *core.Service, logger *slog.Logger) *Server {
	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:  config,
		service: service,
		logger:  logger,
	}
	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Params and queries end up as store keys; they must outlive the request.
		Immutable:    true,
		ErrorHandler: s.handleError,
	})

	s.app.Use(s.flushFrame)

	s.app.Get("/ping", s.handlePing)
	s.app.Get("/state", s.handleState)
	s.app.Post("/save", s.handleSave)

	s.app.Get("/notes", s.handleListNotes)
	s.app.Post("/notes", s.handleCreateNote)
	s.app.Get("/notes/:id", s.handleGetNote)
	s.app.Put("/notes/:id", s.handleReplaceNote)
	s.app.Delete("/notes/:id", s.handleDeleteNote)
	s.app.Put("/notes/:id/links/:target", s.handleLink)
	s.app.Delete("/notes/:id/links/:target", s.handleUnlink)
	s.app.Get("/notes/:id/dependencies", s.handleDependencies)
	s.app.Get("/notes/:id/dependents", s.handleDependents)

	s.app.Get("/tags", s.handleListTags)
	s.app.Post("/tags", s.handleAddTag)
	s.app.Post("/tags/:name/rename", s.handleRenameTag)
	s.app.Delete("/tags/:name", s.handleDeleteTag)

	return s
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.Listen)
	return s.app.Listen(s.config.Listen)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// flushFrame applies mutations queued by background producers, such as the
// watcher, so every request sees them.
func (s *Server) flushFrame(c *fiber.Ctx) error {
	if err := s.service.Flush(c.UserContext()); err != nil {
		s.logger.Warn("some queued changes were dropped", "error", err)
	}
	return c.Next()
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrTagNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, core.ErrEmptyID), errors.Is(err, core.ErrEmptyTag),
		errors.Is(err, core.ErrSelfLink), errors.Is(err, core.ErrIndexOutOfRange):
		return fiber.StatusBadRequest
	case errors.Is(err, core.ErrTagExists), errors.Is(err, core.ErrReadOnly):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func badRequest(err error) error {
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}
