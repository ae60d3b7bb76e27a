package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ContributionStatus string

const (
	ContributionStatusPending  ContributionStatus = "pending"
	ContributionStatusPaid     ContributionStatus = "paid"
	ContributionStatusDeclined ContributionStatus = "declined"
)

func (s ContributionStatus) Valid() bool {
	return s == ContributionStatusPending || s == ContributionStatusPaid || s == ContributionStatusDeclined
}

// Contribution is one member's standing on one event. A member has at most
// one row per event; status changes supersede it in place, rows are never
// deleted. CreatedAt is the join time and fixes participant ordering.
type Contribution struct {
	ID           snowflake.ID       `gorm:"column:id;primaryKey" json:"id,string"`
	EventID      snowflake.ID       `gorm:"column:event_id;uniqueIndex:idx_contributions_event_member;index" json:"event_id,string"`
	MemberID     snowflake.ID       `gorm:"column:member_id;uniqueIndex:idx_contributions_event_member" json:"member_id,string"`
	Status       ContributionStatus `gorm:"column:status" json:"status"`
	Amount       *int64             `gorm:"column:amount" json:"amount,omitempty"`
	MarkedPaidAt *time.Time         `gorm:"column:marked_paid_at" json:"marked_paid_at,omitempty"`
	CreatedAt    time.Time          `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"column:updated_at" json:"updated_at"`
}

func (Contribution) TableName() string {
	return "contributions"
}

// StatusCounts is the anonymous aggregate view of an event's ledger.
type StatusCounts struct {
	Pending  int64 `json:"pending"`
	Paid     int64 `json:"paid"`
	Declined int64 `json:"declined"`
}

// Participants is the number of members the share is split across.
func (c StatusCounts) Participants() int64 {
	return c.Pending + c.Paid
}
