package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kado/internal/clock"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  memberdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  memberdomain.Repository
}

func NewService(p ServiceParam) memberdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("member.service"),

		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Upsert implements domain.Service.
func (s *Service) Upsert(ctx context.Context, req memberdomain.UpsertMemberRequest) (memberdomain.Member, error) {
	if req.ExternalID == 0 {
		return memberdomain.Member{}, memberdomain.ErrInvalidExternalID
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return memberdomain.Member{}, memberdomain.ErrInvalidDisplayName
	}

	now := s.clock.Now()

	existing, err := s.repo.FindByExternalID(ctx, s.db, req.ExternalID)
	if err != nil {
		return memberdomain.Member{}, err
	}
	if existing != nil {
		existing.DisplayName = displayName
		existing.Username = normalizeUsername(req.Username)
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, s.db, existing); err != nil {
			return memberdomain.Member{}, err
		}
		return *existing, nil
	}

	member := memberdomain.Member{
		ID:          s.genID.Generate(),
		ExternalID:  req.ExternalID,
		Username:    normalizeUsername(req.Username),
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &member); err != nil {
		return memberdomain.Member{}, err
	}
	return member, nil
}

// SetBirthday implements domain.Service.
func (s *Service) SetBirthday(ctx context.Context, req memberdomain.SetBirthdayRequest) (memberdomain.Member, error) {
	if req.ExternalID == 0 {
		return memberdomain.Member{}, memberdomain.ErrInvalidExternalID
	}

	birthday, err := normalizeBirthday(req.Birthday)
	if err != nil {
		return memberdomain.Member{}, err
	}
	if req.BirthYear != nil {
		year := *req.BirthYear
		if year < 1900 || year > s.clock.Now().Year() {
			return memberdomain.Member{}, memberdomain.ErrInvalidBirthday
		}
	}

	member, err := s.repo.FindByExternalID(ctx, s.db, req.ExternalID)
	if err != nil {
		return memberdomain.Member{}, err
	}
	if member == nil {
		return memberdomain.Member{}, memberdomain.ErrMemberNotFound
	}

	member.Birthday = &birthday
	member.BirthYear = req.BirthYear
	member.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, member); err != nil {
		return memberdomain.Member{}, err
	}

	s.log.Info("birthday set",
		zap.Int64("external_id", member.ExternalID),
		zap.String("birthday", birthday),
	)
	return *member, nil
}

// GetByExternalID implements domain.Service.
func (s *Service) GetByExternalID(ctx context.Context, externalID int64) (memberdomain.Member, error) {
	if externalID == 0 {
		return memberdomain.Member{}, memberdomain.ErrInvalidExternalID
	}
	member, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return memberdomain.Member{}, err
	}
	if member == nil {
		return memberdomain.Member{}, memberdomain.ErrMemberNotFound
	}
	return *member, nil
}

// AddWishlistItem implements domain.Service.
func (s *Service) AddWishlistItem(ctx context.Context, req memberdomain.AddWishlistItemRequest) (memberdomain.WishlistItem, error) {
	if req.ExternalID == 0 {
		return memberdomain.WishlistItem{}, memberdomain.ErrInvalidExternalID
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return memberdomain.WishlistItem{}, memberdomain.ErrInvalidWishlistItem
	}

	member, err := s.repo.FindByExternalID(ctx, s.db, req.ExternalID)
	if err != nil {
		return memberdomain.WishlistItem{}, err
	}
	if member == nil {
		return memberdomain.WishlistItem{}, memberdomain.ErrMemberNotFound
	}

	var item memberdomain.WishlistItem
	err = s.db.Transaction(func(tx *gorm.DB) error {
		position, err := s.repo.NextWishlistPosition(ctx, tx, member.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		item = memberdomain.WishlistItem{
			ID:        s.genID.Generate(),
			MemberID:  member.ID,
			Title:     title,
			Link:      normalizeLink(req.Link),
			Position:  position,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.repo.InsertWishlistItem(ctx, tx, &item)
	})
	if err != nil {
		return memberdomain.WishlistItem{}, err
	}
	return item, nil
}

// ListWishlist implements domain.Service.
func (s *Service) ListWishlist(ctx context.Context, externalID int64) ([]memberdomain.WishlistItem, error) {
	member, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, memberdomain.ErrMemberNotFound
	}
	return s.repo.ListWishlist(ctx, s.db, member.ID)
}

// Count implements domain.Service.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.db)
}

func normalizeUsername(username *string) *string {
	if username == nil {
		return nil
	}
	trimmed := strings.TrimPrefix(strings.TrimSpace(*username), "@")
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// normalizeBirthday validates an MM-DD string against a leap year so 02-29 is
// accepted.
func normalizeBirthday(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	parsed, err := time.Parse(memberdomain.BirthdayLayout, trimmed)
	if err != nil {
		return "", memberdomain.ErrInvalidBirthday
	}
	if _, err := time.Parse(time.DateOnly, fmt.Sprintf("2024-%02d-%02d", parsed.Month(), parsed.Day())); err != nil {
		return "", memberdomain.ErrInvalidBirthday
	}
	return fmt.Sprintf("%02d-%02d", parsed.Month(), parsed.Day()), nil
}

func normalizeLink(link *string) *string {
	if link == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*link)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
