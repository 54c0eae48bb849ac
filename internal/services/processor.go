package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ananth-NQI/menubot-backend/internal/models"
	"github.com/Ananth-NQI/menubot-backend/internal/storage"
)

// InboundMessage is one verified message delivered by the channel.
type InboundMessage struct {
	TenantID string
	Sender   string
	Text     string
	// MessageID is the channel-assigned idempotency key. Empty disables
	// duplicate detection for this message.
	MessageID  string
	InputType  models.InputType
	RawPayload string
}

type dialogHandler interface {
	Handle(ctx context.Context, msg InboundMessage) (string, error)
}

// MessageProcessor is the entry point for every inbound message. It serializes
// messages per (tenant, sender) and suppresses redelivered message IDs.
type MessageProcessor struct {
	engine dialogHandler
	audit  storage.AuditLog
	locker SenderLocker
	log    *slog.Logger
}

// NewMessageProcessor creates a new message processor
func NewMessageProcessor(log *slog.Logger, engine dialogHandler, audit storage.AuditLog, locker SenderLocker) *MessageProcessor {
	return &MessageProcessor{
		engine: engine,
		audit:  audit,
		locker: locker,
		log:    log,
	}
}

// Process returns the reply for msg. A message ID already present in the
// audit log yields ReplyAlreadyProcessed without touching the dialogue.
func (p *MessageProcessor) Process(ctx context.Context, msg InboundMessage) (string, error) {
	if msg.InputType == "" {
		msg.InputType = models.InputText
	}

	unlock, err := p.locker.Lock(ctx, senderKey(msg.TenantID, msg.Sender))
	if err != nil {
		return "", fmt.Errorf("lock sender %s: %w", msg.Sender, err)
	}
	defer unlock()

	if msg.MessageID != "" {
		seen, err := p.audit.AuditExists(ctx, msg.TenantID, msg.MessageID)
		if err != nil {
			return "", fmt.Errorf("check message %s: %w", msg.MessageID, err)
		}
		if seen {
			p.log.Info("duplicate message skipped",
				slog.String("tenant_id", msg.TenantID),
				slog.String("message_id", msg.MessageID),
			)
			return ReplyAlreadyProcessed, nil
		}
	}

	return p.engine.Handle(ctx, msg)
}

func senderKey(tenantID, sender string) string {
	return tenantID + ":" + sender
}
