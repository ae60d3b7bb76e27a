package domain

import (
	"context"
	"errors"
)

type UpsertMemberRequest struct {
	ExternalID  int64   `json:"external_id"`
	Username    *string `json:"username,omitempty"`
	DisplayName string  `json:"display_name"`
}

type SetBirthdayRequest struct {
	ExternalID int64  `json:"external_id"`
	Birthday   string `json:"birthday"`
	BirthYear  *int   `json:"birth_year,omitempty"`
}

type AddWishlistItemRequest struct {
	ExternalID int64   `json:"external_id"`
	Title      string  `json:"title"`
	Link       *string `json:"link,omitempty"`
}

type Service interface {
	Upsert(ctx context.Context, req UpsertMemberRequest) (Member, error)
	SetBirthday(ctx context.Context, req SetBirthdayRequest) (Member, error)
	GetByExternalID(ctx context.Context, externalID int64) (Member, error)
	AddWishlistItem(ctx context.Context, req AddWishlistItemRequest) (WishlistItem, error)
	ListWishlist(ctx context.Context, externalID int64) ([]WishlistItem, error)
	Count(ctx context.Context) (int64, error)
}

var (
	ErrMemberNotFound      = errors.New("member_not_found")
	ErrInvalidExternalID   = errors.New("invalid_external_id")
	ErrInvalidDisplayName  = errors.New("invalid_display_name")
	ErrInvalidBirthday     = errors.New("invalid_birthday")
	ErrInvalidWishlistItem = errors.New("invalid_wishlist_item")
)
