package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/kado/internal/clock"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	teamdomain "github.com/smallbiznis/kado/internal/team/domain"
	"github.com/smallbiznis/kado/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	repo       teamdomain.Repository
	memberRepo memberdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       teamdomain.Repository
	MemberRepo memberdomain.Repository
}

func NewService(p ServiceParam) teamdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("team.service"),

		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		memberRepo: p.MemberRepo,
	}
}

// Register implements domain.Service.
func (s *Service) Register(ctx context.Context, req teamdomain.RegisterTeamRequest) (teamdomain.Team, error) {
	if req.ExternalID == 0 {
		return teamdomain.Team{}, teamdomain.ErrInvalidExternalID
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return teamdomain.Team{}, teamdomain.ErrInvalidTitle
	}

	now := s.clock.Now()

	existing, err := s.repo.FindByExternalID(ctx, s.db, req.ExternalID)
	if err != nil {
		return teamdomain.Team{}, err
	}
	if existing != nil {
		existing.Title = title
		existing.Slug = slug.Make(title)
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, s.db, existing); err != nil {
			return teamdomain.Team{}, err
		}
		return *existing, nil
	}

	team := teamdomain.Team{
		ID:         s.genID.Generate(),
		ExternalID: req.ExternalID,
		Title:      title,
		Slug:       slug.Make(title),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &team); err != nil {
		return teamdomain.Team{}, err
	}

	s.log.Info("team registered",
		zap.Int64("external_id", team.ExternalID),
		zap.String("slug", team.Slug),
	)
	return team, nil
}

// GetByExternalID implements domain.Service.
func (s *Service) GetByExternalID(ctx context.Context, externalID int64) (teamdomain.Team, error) {
	if externalID == 0 {
		return teamdomain.Team{}, teamdomain.ErrInvalidExternalID
	}
	team, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return teamdomain.Team{}, err
	}
	if team == nil {
		return teamdomain.Team{}, teamdomain.ErrTeamNotFound
	}
	return *team, nil
}

// SyncMembership implements domain.Service. The platform-reported list wins:
// unknown rows are added, missing rows removed.
func (s *Service) SyncMembership(ctx context.Context, req teamdomain.SyncMembershipRequest) error {
	team, err := s.repo.FindByExternalID(ctx, s.db, req.TeamExternalID)
	if err != nil {
		return err
	}
	if team == nil {
		return teamdomain.ErrTeamNotFound
	}

	wanted := make(map[snowflake.ID]struct{}, len(req.MemberExternalIDs))
	for _, externalID := range req.MemberExternalIDs {
		member, err := s.memberRepo.FindByExternalID(ctx, s.db, externalID)
		if err != nil {
			return err
		}
		if member == nil {
			return teamdomain.ErrUnknownMember
		}
		wanted[member.ID] = struct{}{}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.ListMemberIDs(ctx, tx, team.ID)
		if err != nil {
			return err
		}
		existing := make(map[snowflake.ID]struct{}, len(current))
		for _, id := range current {
			existing[id] = struct{}{}
			if _, ok := wanted[id]; !ok {
				if err := s.repo.DeleteMembership(ctx, tx, team.ID, id); err != nil {
					return err
				}
			}
		}

		now := s.clock.Now()
		for memberID := range wanted {
			if _, ok := existing[memberID]; ok {
				continue
			}
			membership := teamdomain.TeamMember{
				ID:        s.genID.Generate(),
				TeamID:    team.ID,
				MemberID:  memberID,
				CreatedAt: now,
			}
			if err := s.repo.InsertMembership(ctx, tx, &membership); err != nil {
				if db.IsDuplicateKeyErr(err) {
					continue
				}
				return err
			}
		}
		return nil
	})
}

// ListMemberIDs implements domain.Service.
func (s *Service) ListMemberIDs(ctx context.Context, externalID int64) ([]string, error) {
	team, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, teamdomain.ErrTeamNotFound
	}

	ids, err := s.repo.ListMemberIDs(ctx, s.db, team.ID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out, nil
}

// Count implements domain.Service.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.db)
}
