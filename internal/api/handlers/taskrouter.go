package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/acme/inbound-call-desk/internal/lifecycle"
)

// taskRouterEvent receives routing lifecycle notifications from the external
// queueing engine. The upstream delivery is at-least-once: anything other
// than a 2xx is redelivered, so only malformed payloads (400) and genuine
// internal failures (500) are non-success.
func (h *HandlerSet) taskRouterEvent(ctx *fiber.Ctx) error {
	event, err := lifecycle.ParseForm(ctx)
	if err != nil {
		h.container.Logger.Warn("taskrouter webhook: malformed payload", zap.Error(err))
		return translateError(err)
	}

	if err := h.lifecycle.Handle(ctx.Context(), event, h.callbackBase(ctx)); err != nil {
		return err
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}
