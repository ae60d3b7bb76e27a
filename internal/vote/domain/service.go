package domain

import (
	"context"
	"errors"
)

type CastRequest struct {
	EventID         string
	ActorExternalID int64
	ItemID          string `json:"item_id"`
	Weight          int    `json:"weight"`
}

type TallyResponse struct {
	EventID string       `json:"event_id"`
	Entries []TallyEntry `json:"entries"`
}

type Service interface {
	Cast(ctx context.Context, req CastRequest) (Vote, error)
	Tally(ctx context.Context, eventID string) (TallyResponse, error)
}

var (
	ErrInvalidVote  = errors.New("invalid_vote")
	ErrUnknownItem  = errors.New("unknown_wishlist_item")
	ErrNotEligible  = errors.New("not_eligible")
	ErrVotingClosed = errors.New("voting_closed")
)
