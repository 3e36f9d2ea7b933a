package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/acme/inbound-call-desk/internal/domain"
	"github.com/acme/inbound-call-desk/internal/session"
)

const (
	headerSessionID = "X-Session-Id"
	headerWorkerSID = "X-Worker-Sid"

	streamKeepAlive = 25 * time.Second
)

type setPresenceRequest struct {
	Status string `json:"status"`
}

func (h *HandlerSet) identity(ctx *fiber.Ctx) (session.Identity, error) {
	identity, err := h.resolver.Resolve(ctx.Context(), ctx.Get(headerSessionID), ctx.Get(headerWorkerSID))
	if err != nil {
		return session.Identity{}, translateError(err)
	}
	return identity, nil
}

// getPresence returns the caller's own worker record: current status plus
// the roster attributes the client needs (exemption flag included).
func (h *HandlerSet) getPresence(ctx *fiber.Ctx) error {
	identity, err := h.identity(ctx)
	if err != nil {
		return err
	}

	worker, err := h.presence.Get(ctx.Context(), identity.WorkerSID)
	if err != nil {
		return translateError(err)
	}

	h.sessions.Track(context.Background(), identity.SessionID, identity.WorkerSID)

	return ctx.JSON(fiber.Map{
		"status": worker.Activity,
		"attributes": fiber.Map{
			"friendly_name": worker.FriendlyName,
			"contact_uri":   worker.ContactURI,
			"role":          worker.Role,
			"simul_ring":    worker.SimulRing,
		},
	})
}

// listWorkers returns the roster with current statuses, for the supervisor
// wallboard.
func (h *HandlerSet) listWorkers(ctx *fiber.Ctx) error {
	if _, err := h.identity(ctx); err != nil {
		return err
	}

	workers, err := h.presence.List(ctx.Context(), ctx.QueryInt("limit"))
	if err != nil {
		return translateError(err)
	}

	out := make([]fiber.Map, 0, len(workers))
	for _, worker := range workers {
		out = append(out, fiber.Map{
			"worker_sid":    worker.SID,
			"friendly_name": worker.FriendlyName,
			"status":        worker.Activity,
			"updated_at":    worker.UpdatedAt,
		})
	}
	return ctx.JSON(fiber.Map{"workers": out})
}

// setPresence writes the caller's presence. The body is normally JSON, but a
// bare form value is also accepted so the page-unload beacon path works.
func (h *HandlerSet) setPresence(ctx *fiber.Ctx) error {
	identity, err := h.identity(ctx)
	if err != nil {
		return err
	}

	var req setPresenceRequest
	if err := ctx.BodyParser(&req); err != nil || req.Status == "" {
		req.Status = ctx.FormValue("status")
	}

	activity, err := domain.ParseActivity(req.Status)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid status")
	}

	worker, err := h.presence.Set(ctx.Context(), identity.WorkerSID, activity)
	if err != nil {
		return translateError(err)
	}

	return ctx.JSON(fiber.Map{"success": true, "status": worker.Activity})
}

// streamPresence opens a long-lived SSE feed of the caller's presence. The
// first message carries the current state; afterwards one message per change,
// conflated to the latest while the client is slow. Clients reconnect with a
// fixed backoff and re-subscribe from scratch; there is no resume token.
func (h *HandlerSet) streamPresence(ctx *fiber.Ctx) error {
	identity, err := h.identity(ctx)
	if err != nil {
		return err
	}

	sub, err := h.presence.Subscribe(ctx.Context(), identity.WorkerSID)
	if err != nil {
		return translateError(err)
	}

	h.sessions.Track(context.Background(), identity.SessionID, identity.WorkerSID)

	logger := h.container.Logger
	workerSID := identity.WorkerSID

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Close()

		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case event := <-sub.Events():
				if err := writeStreamEvent(w, fiber.Map{"status": event.Activity}); err != nil {
					logger.Debug("presence stream: subscriber gone",
						zap.String("worker_sid", workerSID), zap.Error(err))
					return
				}
			case <-keepAlive.C:
				// Comment line keeps intermediaries from closing the
				// connection and doubles as a disconnect probe.
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

func writeStreamEvent(w *bufio.Writer, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(fiber.Map{"error": err.Error()})
	}
	if _, err := w.WriteString("data: " + string(data) + "\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

// sessionVisible is the foreground-visibility signal: the client regained
// focus and the expiry scheduler should re-check its cutoff immediately.
func (h *HandlerSet) sessionVisible(ctx *fiber.Ctx) error {
	identity, err := h.identity(ctx)
	if err != nil {
		return err
	}
	h.sessions.Poke(identity.SessionID)
	return ctx.SendStatus(fiber.StatusNoContent)
}

// sessionLogout tears the session's expiry scheduler down on explicit
// logout so the forced-logout sequence cannot fire afterwards.
func (h *HandlerSet) sessionLogout(ctx *fiber.Ctx) error {
	identity, err := h.identity(ctx)
	if err != nil {
		return err
	}
	h.sessions.Stop(identity.SessionID)
	return ctx.SendStatus(fiber.StatusNoContent)
}
