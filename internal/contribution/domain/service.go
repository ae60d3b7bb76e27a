package domain

import (
	"context"
	"errors"
)

type JoinRequest struct {
	EventID         string
	ActorExternalID int64
}

type DeclineRequest struct {
	EventID         string
	ActorExternalID int64
}

type ReportStatusRequest struct {
	EventID         string
	ActorExternalID int64
	Status          string `json:"status"`
	Amount          *int64 `json:"amount,omitempty"`
}

type AggregateResponse struct {
	EventID        string       `json:"event_id"`
	Counts         StatusCounts `json:"counts"`
	PerPersonShare *int64       `json:"per_person_share,omitempty"`
}

type DetailRequest struct {
	EventID         string
	ActorExternalID int64
}

type DetailResponse struct {
	EventID       string         `json:"event_id"`
	Contributions []Contribution `json:"contributions"`
}

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	Join(ctx context.Context, req JoinRequest) (Contribution, error)
	Decline(ctx context.Context, req DeclineRequest) (Contribution, error)
	ReportStatus(ctx context.Context, req ReportStatusRequest) (Contribution, error)
	Aggregate(ctx context.Context, eventID string) (AggregateResponse, error)
	Detail(ctx context.Context, req DetailRequest) (DetailResponse, error)
	CountAll(ctx context.Context) (StatusCounts, error)
}

var (
	ErrNotFound          = errors.New("contribution_not_found")
	ErrNotEligible       = errors.New("not_eligible")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrUnauthorized      = errors.New("unauthorized")
)
