package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"

	"github.com/acme/inbound-call-desk/internal/api/handlers"
	"github.com/acme/inbound-call-desk/internal/app"
)

const shutdownGrace = 10 * time.Second

// Server is the HTTP front of the coordinator: webhooks from the routing
// engine on one side, the agent desktop API on the other.
type Server struct {
	fiberApp *fiber.App
	deps     *app.Container
}

// NewServer assembles the fiber app with tracing middleware and all routes.
func NewServer(deps *app.Container, handlers *handlers.HandlerSet) *Server {
	fiberApp := fiber.New(fiber.Config{
		AppName:      deps.Config.App.Name,
		ReadTimeout:  deps.Config.HTTP.ReadTimeout,
		WriteTimeout: deps.Config.HTTP.WriteTimeout,
		IdleTimeout:  deps.Config.HTTP.IdleTimeout,
		ErrorHandler: handlers.ErrorHandler,
	})

	fiberApp.Use(otelfiber.Middleware())
	handlers.Register(fiberApp)

	return &Server{fiberApp: fiberApp, deps: deps}
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()
	return s.fiberApp.Listen(fmt.Sprintf(":%d", s.deps.Config.HTTP.Port))
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return s.fiberApp.ShutdownWithContext(ctx)
}
