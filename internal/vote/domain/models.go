package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Vote is one member's weight on one wishlist snapshot item. Re-casting
// overwrites the row; last write wins.
type Vote struct {
	ID        snowflake.ID `gorm:"column:id;primaryKey" json:"id,string"`
	EventID   snowflake.ID `gorm:"column:event_id;uniqueIndex:idx_votes_event_member_item;index" json:"event_id,string"`
	MemberID  snowflake.ID `gorm:"column:member_id;uniqueIndex:idx_votes_event_member_item" json:"member_id,string"`
	ItemID    snowflake.ID `gorm:"column:item_id;uniqueIndex:idx_votes_event_member_item" json:"item_id,string"`
	Weight    int          `gorm:"column:weight" json:"weight"`
	CreatedAt time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (Vote) TableName() string {
	return "votes"
}

// ItemWeight is the summed weight for one item, before snapshot ordering.
type ItemWeight struct {
	ItemID snowflake.ID
	Total  int64
}

// TallyEntry is one ranked row of the recomputed tally.
type TallyEntry struct {
	ItemID   snowflake.ID `json:"item_id,string"`
	Title    string       `json:"title"`
	Link     *string      `json:"link,omitempty"`
	Position int          `json:"position"`
	Total    int64        `json:"total"`
}
