package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/menubot-backend/internal/models"
	"github.com/Ananth-NQI/menubot-backend/internal/services"
	"github.com/Ananth-NQI/menubot-backend/internal/storage"
)

type messageProcessor interface {
	Process(ctx context.Context, msg services.InboundMessage) (string, error)
}

// ReplySender delivers a reply to a WhatsApp number.
type ReplySender interface {
	SendWhatsAppMessage(to, message string) error
}

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	processor   messageProcessor
	tenants     storage.TenantRegistry
	sender      ReplySender
	transcriber services.Transcriber
	log         *slog.Logger
}

// NewWhatsAppHandler creates a new WhatsApp handler. sender may be nil, in
// which case replies are only logged.
func NewWhatsAppHandler(
	log *slog.Logger,
	processor messageProcessor,
	tenants storage.TenantRegistry,
	sender ReplySender,
	transcriber services.Transcriber,
) *WhatsAppHandler {
	if transcriber == nil {
		transcriber = services.UnavailableTranscriber{}
	}
	return &WhatsAppHandler{
		processor:   processor,
		tenants:     tenants,
		sender:      sender,
		transcriber: transcriber,
		log:         log,
	}
}

// TwilioWebhookPayload represents incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid          string `form:"MessageSid"`
	AccountSid          string `form:"AccountSid"`
	MessagingServiceSid string `form:"MessagingServiceSid"`
	From                string `form:"From"` // whatsapp:+9665...
	To                  string `form:"To"`
	Body                string `form:"Body"`
	NumMedia            string `form:"NumMedia"`
	MediaUrl0           string `form:"MediaUrl0"`
	MediaContentType0   string `form:"MediaContentType0"`
}

func (p TwilioWebhookPayload) hasAudio() bool {
	return p.MediaUrl0 != "" && strings.HasPrefix(p.MediaContentType0, "audio/")
}

// isMessage is false for delivery status callbacks and empty events.
func (p TwilioWebhookPayload) isMessage() bool {
	return p.From != "" && (p.Body != "" || p.MediaUrl0 != "")
}

// HandleWebhook processes incoming WhatsApp messages. Processing errors
// answer 500 so Twilio redelivers; the message ID makes redelivery safe.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		h.log.Warn("invalid webhook payload", slog.Any("error", err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	if !payload.isMessage() {
		return c.SendStatus(fiber.StatusOK)
	}

	from := models.NormalizePhone(payload.From)
	reply, err := h.reply(c.UserContext(), from, payload, rawPayload(c))
	if err != nil {
		h.log.Error("message processing failed",
			slog.String("from", from),
			slog.String("message_id", payload.MessageSid),
			slog.Any("error", err),
		)
		return fiber.NewError(fiber.StatusInternalServerError, "processing failed")
	}

	h.send(from, reply)
	return c.SendStatus(fiber.StatusOK)
}

// reply resolves the tenant, turns audio into text and runs the processor.
func (h *WhatsAppHandler) reply(ctx context.Context, from string, payload TwilioWebhookPayload, raw string) (string, error) {
	tenant, err := h.tenants.TenantByPhone(ctx, from)
	if errors.Is(err, models.ErrNotFound) {
		h.log.Info("message from unknown sender", slog.String("from", from))
		return services.ReplyUnknownSender, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve tenant: %w", err)
	}

	msg := services.InboundMessage{
		TenantID:   tenant.ID,
		Sender:     from,
		Text:       payload.Body,
		MessageID:  payload.MessageSid,
		InputType:  models.InputText,
		RawPayload: raw,
	}

	if payload.hasAudio() {
		text, err := h.transcriber.Transcribe(ctx, payload.MediaUrl0, payload.MediaContentType0)
		if errors.Is(err, services.ErrTranscriptionUnavailable) {
			return services.ReplyAudioUnsupported, nil
		}
		if err != nil {
			return "", fmt.Errorf("transcribe audio: %w", err)
		}
		msg.Text = text
		msg.InputType = models.InputAudio
	}

	return h.processor.Process(ctx, msg)
}

func (h *WhatsAppHandler) send(to, reply string) {
	if reply == "" {
		return
	}
	if h.sender == nil {
		h.log.Info("reply not sent, twilio not configured", slog.String("to", to), slog.String("reply", reply))
		return
	}
	if err := h.sender.SendWhatsAppMessage(to, reply); err != nil {
		h.log.Error("failed to send whatsapp reply", slog.String("to", to), slog.Any("error", err))
		return
	}
	h.log.Debug("reply sent", slog.String("to", to))
}

// rawPayload serializes the form fields for the audit log.
func rawPayload(c *fiber.Ctx) string {
	fields := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		fields[string(key)] = string(value)
	})
	b, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(b)
}

// TestWebhookPayload is the JSON body accepted by the development webhook.
type TestWebhookPayload struct {
	From      string `json:"from"`
	Message   string `json:"message"`
	MessageID string `json:"message_id"`
}

// HandleTestWebhook runs a message through the processor and returns the
// reply as JSON instead of sending it.
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil || payload.From == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	from := models.NormalizePhone(payload.From)
	raw, _ := json.Marshal(payload)
	reply, err := h.reply(c.UserContext(), from, TwilioWebhookPayload{
		From:       payload.From,
		Body:       payload.Message,
		MessageSid: payload.MessageID,
	}, string(raw))
	if err != nil {
		h.log.Error("test message processing failed", slog.String("from", from), slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, "processing failed")
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"response": reply,
	})
}
