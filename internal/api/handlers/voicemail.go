package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/acme/inbound-call-desk/internal/domain"
	"github.com/acme/inbound-call-desk/internal/voicemail"
)

// voicemailScript answers the redirected call with the record-and-transcribe
// document. The call is live on the other end, so this endpoint always
// responds 200: any internal failure substitutes the minimal safe script
// rather than leaving the caller hanging on an error response.
func (h *HandlerSet) voicemailScript(ctx *fiber.Ctx) error {
	ctx.Set(fiber.HeaderContentType, "application/xml")

	taskSID := ctx.Query("taskSid")
	workspaceSID := ctx.Query("workspaceSid")
	if taskSID == "" || workspaceSID == "" {
		h.container.Logger.Warn("voicemail webhook: missing task identifiers",
			zap.String("task_sid", taskSID),
			zap.String("workspace_sid", workspaceSID))
		return ctx.Status(fiber.StatusOK).Send(voicemail.SafeScript())
	}

	cfg := h.container.Config.Voicemail
	script, err := voicemail.BuildScript(voicemail.ScriptParams{
		Greeting:        cfg.Greeting,
		FallbackMessage: cfg.FallbackMessage,
		MaxLength:       cfg.MaxLength,
		SilenceTimeout:  cfg.SilenceTimeout,
		FinishOnKey:     cfg.FinishOnKey,
		CompletionURL:   voicemail.CompletionURL(h.callbackBase(ctx), taskSID, workspaceSID),
	})
	if err != nil {
		h.container.Logger.Error("voicemail webhook: script build failed", zap.Error(err))
		return ctx.Status(fiber.StatusOK).Send(voicemail.SafeScript())
	}

	return ctx.Status(fiber.StatusOK).Send(script)
}

// voicemailComplete receives the transcription completion callback and
// triggers notification dispatch.
func (h *HandlerSet) voicemailComplete(ctx *fiber.Ctx) error {
	duration, _ := strconv.Atoi(ctx.FormValue("RecordingDuration"))

	record := domain.VoicemailRecord{
		From:                ctx.FormValue("From"),
		RecordingURL:        ctx.FormValue("RecordingUrl"),
		TranscriptionText:   ctx.FormValue("TranscriptionText"),
		TranscriptionStatus: ctx.FormValue("TranscriptionStatus"),
		DurationSec:         duration,
	}

	if err := h.voicemail.HandleCompletion(ctx.Context(), record); err != nil {
		h.container.Logger.Error("voicemail completion: dispatch failed", zap.Error(err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("error")
	}

	return ctx.Status(fiber.StatusOK).SendString("ok")
}
