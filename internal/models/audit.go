package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InputType is the kind of inbound message.
type InputType string

const (
	InputText  InputType = "text"
	InputAudio InputType = "audio"
)

// AuditRecord is the append-only outcome of one processed inbound message.
// (TenantID, MessageID) is unique when MessageID is set.
type AuditRecord struct {
	ID         string         `json:"id" gorm:"primaryKey"`
	TenantID   string         `json:"tenant_id" gorm:"uniqueIndex:ux_audit_tenant_message,priority:1;not null"`
	MessageID  *string        `json:"message_id,omitempty" gorm:"uniqueIndex:ux_audit_tenant_message,priority:2"`
	Sender     string         `json:"sender" gorm:"index;not null"`
	InputType  InputType      `json:"input_type" gorm:"not null"`
	InputText  string         `json:"input_text"`
	Action     string         `json:"action" gorm:"not null"`
	Success    bool           `json:"success"`
	Detail     map[string]any `json:"detail,omitempty" gorm:"serializer:json;type:jsonb"`
	RawPayload string         `json:"raw_payload,omitempty" gorm:"type:text"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
}

// BeforeCreate assigns an ID when the caller did not.
func (a *AuditRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
