package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	KindAnnouncement   Kind = "announcement"
	KindInvite         Kind = "invite"
	KindReminder       Kind = "reminder"
	KindOrganizerNudge Kind = "organizer_nudge"
	KindFinalized      Kind = "finalized"
	KindCelebration    Kind = "celebration"
	KindCancellation   Kind = "cancellation"
)

type RecipientKind string

const (
	RecipientTeamChannel RecipientKind = "team_channel"
	RecipientMemberDM    RecipientKind = "member_dm"
)

// Intent is one message to deliver. DedupeKey correlates repeated attempts
// for the same logical message in the audit trail; dedupe decisions belong
// to the caller (event state, sent_reminders), not to the dispatcher.
type Intent struct {
	Kind                Kind
	EventID             snowflake.ID
	RecipientKind       RecipientKind
	RecipientExternalID int64
	Channel             string
	Text                string
	DedupeKey           string
}

type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// Delivery is the audit record of one dispatch attempt. It is never read
// back by business logic.
type Delivery struct {
	ID        snowflake.ID   `gorm:"column:id;primaryKey" json:"id,string"`
	EventID   snowflake.ID   `gorm:"column:event_id;index" json:"event_id,string"`
	Kind      Kind           `gorm:"column:kind" json:"kind"`
	Recipient string         `gorm:"column:recipient" json:"recipient"`
	DedupeKey string         `gorm:"column:dedupe_key;index" json:"dedupe_key"`
	Status    DeliveryStatus `gorm:"column:status" json:"status"`
	Error     *string        `gorm:"column:error" json:"error,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Delivery) TableName() string {
	return "notification_deliveries"
}
