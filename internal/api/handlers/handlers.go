package handlers

import (
	"context"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/acme/inbound-call-desk/internal/app"
	"github.com/acme/inbound-call-desk/internal/lifecycle"
	"github.com/acme/inbound-call-desk/internal/metrics"
	"github.com/acme/inbound-call-desk/internal/presence"
	"github.com/acme/inbound-call-desk/internal/session"
	"github.com/acme/inbound-call-desk/internal/voicemail"
)

// HandlerSet bundles all HTTP handlers.
type HandlerSet struct {
	container *app.Container
	presence  *presence.Service
	lifecycle *lifecycle.Handler
	voicemail *voicemail.Coordinator
	sessions  *session.Manager
	resolver  session.Resolver
}

// NewHandlerSet creates a new handler bundle.
func NewHandlerSet(container *app.Container) *HandlerSet {
	services := container.Services()
	return &HandlerSet{
		container: container,
		presence:  services.Presence,
		lifecycle: services.Lifecycle,
		voicemail: services.Voicemail,
		sessions:  container.Sessions(),
		resolver:  container.SessionResolver(),
	}
}

// Register wires all routes onto the fiber app.
func (h *HandlerSet) Register(app *fiber.App) {
	app.Get("/healthz", h.health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	webhooks := app.Group("/webhooks")
	webhooks.Post("/taskrouter", h.taskRouterEvent)
	webhooks.Get("/voicemail", h.voicemailScript)
	webhooks.Post("/voicemail", h.voicemailScript)
	webhooks.Post("/voicemail/complete", h.voicemailComplete)

	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/presence", h.getPresence)
	v1.Post("/presence", h.setPresence)
	v1.Get("/presence/stream", h.streamPresence)
	v1.Get("/workers", h.listWorkers)

	v1.Post("/session/visibility", h.sessionVisible)
	v1.Post("/session/logout", h.sessionLogout)
}

// ErrorHandler provides centralized error responses.
func (h *HandlerSet) ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	if fiberErr, ok := err.(*fiber.Error); ok {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code == fiber.StatusInternalServerError {
		h.container.Logger.Error("request failed", zap.Error(err))
	}

	return ctx.Status(code).JSON(fiber.Map{
		"error": message,
	})
}

func (h *HandlerSet) health(ctx *fiber.Ctx) error {
	healthCtx, cancel := context.WithTimeout(ctx.Context(), 2*time.Second)
	defer cancel()

	errs := make(map[string]string)

	if err := h.container.Postgres.DB().PingContext(healthCtx); err != nil {
		errs["postgres"] = err.Error()
	}

	if err := h.container.Redis.Ping(healthCtx); err != nil {
		errs["redis"] = err.Error()
	}

	if err := h.container.Scylla.Session().Query("SELECT now() FROM system.local").WithContext(healthCtx).Exec(); err != nil {
		errs["scylla"] = err.Error()
	}

	if len(errs) > 0 {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "errors": errs})
	}
	return ctx.JSON(fiber.Map{"status": "ok"})
}

// callbackBase derives the scheme and host serving the current request so
// callbacks point back at this environment, unless an override is configured.
func (h *HandlerSet) callbackBase(ctx *fiber.Ctx) string {
	if base := h.container.Config.TaskRouter.CallbackBase; base != "" {
		return base
	}
	return ctx.Protocol() + "://" + ctx.Hostname()
}
