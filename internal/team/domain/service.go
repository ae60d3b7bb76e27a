package domain

import (
	"context"
	"errors"
)

type RegisterTeamRequest struct {
	ExternalID int64  `json:"external_id"`
	Title      string `json:"title"`
}

// SyncMembershipRequest replaces a team's membership with the
// platform-reported member list.
type SyncMembershipRequest struct {
	TeamExternalID    int64   `json:"team_external_id"`
	MemberExternalIDs []int64 `json:"member_external_ids"`
}

type Service interface {
	Register(ctx context.Context, req RegisterTeamRequest) (Team, error)
	GetByExternalID(ctx context.Context, externalID int64) (Team, error)
	SyncMembership(ctx context.Context, req SyncMembershipRequest) error
	ListMemberIDs(ctx context.Context, externalID int64) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

var (
	ErrTeamNotFound      = errors.New("team_not_found")
	ErrInvalidExternalID = errors.New("invalid_external_id")
	ErrInvalidTitle      = errors.New("invalid_title")
	ErrUnknownMember     = errors.New("unknown_member")
)
