package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/kado/pkg/db/pagination"
)

type ListEventsRequest struct {
	TeamExternalID int64
	Status         string
	Page           pagination.Pagination
}

type ListEventsResponse struct {
	Events   []BirthdayEvent      `json:"events"`
	PageInfo *pagination.PageInfo `json:"page_info,omitempty"`
}

type ClaimRequest struct {
	EventID         string
	ActorExternalID int64
}

type ReleaseRequest struct {
	EventID         string
	ActorExternalID int64
}

type FinalizeRequest struct {
	EventID         string
	ActorExternalID int64
	GiftIndex       *int    `json:"gift_index,omitempty"`
	GiftText        *string `json:"gift_text,omitempty"`
	TotalPrice      int64   `json:"total_price"`
	PaymentDetails  string  `json:"payment_details"`
}

type CancelRequest struct {
	EventID         string
	ActorExternalID int64
}

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	Get(ctx context.Context, eventID string) (BirthdayEvent, error)
	List(ctx context.Context, req ListEventsRequest) (ListEventsResponse, error)
	Claim(ctx context.Context, req ClaimRequest) (BirthdayEvent, error)
	Release(ctx context.Context, req ReleaseRequest) (BirthdayEvent, error)
	Finalize(ctx context.Context, req FinalizeRequest) (BirthdayEvent, error)
	Cancel(ctx context.Context, req CancelRequest) (BirthdayEvent, error)
	CountActive(ctx context.Context) (int64, error)
	CountCelebrated(ctx context.Context) (int64, error)
}

var (
	ErrNotFound                 = errors.New("event_not_found")
	ErrInvalidEvent             = errors.New("invalid_event")
	ErrInvalidStatus            = errors.New("invalid_status")
	ErrInvalidTransition        = errors.New("invalid_transition")
	ErrNotEligible              = errors.New("not_eligible")
	ErrOrganizerAlreadyAssigned = errors.New("organizer_already_assigned")
	ErrIncompleteFinalization   = errors.New("incomplete_finalization")
	ErrUnauthorized             = errors.New("unauthorized")
)
