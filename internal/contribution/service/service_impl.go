package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kado/internal/clock"
	contributiondomain "github.com/smallbiznis/kado/internal/contribution/domain"
	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	obsmetrics "github.com/smallbiznis/kado/internal/observability/metrics"
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
	repo       contributiondomain.Repository
	eventRepo  eventdomain.Repository
	memberRepo memberdomain.Repository
	metrics    *obsmetrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       contributiondomain.Repository
	EventRepo  eventdomain.Repository
	MemberRepo memberdomain.Repository
	Metrics    *obsmetrics.Metrics
}

func NewService(p ServiceParam) contributiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("contribution.service"),

		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		eventRepo:  p.EventRepo,
		memberRepo: p.MemberRepo,
		metrics:    p.Metrics,
	}
}

// Join implements domain.Service. The event row is locked for the duration
// so concurrent participant actions on one event serialize.
func (s *Service) Join(ctx context.Context, req contributiondomain.JoinRequest) (contributiondomain.Contribution, error) {
	eventID, err := parseEventID(req.EventID)
	if err != nil {
		return contributiondomain.Contribution{}, err
	}
	actor, err := s.resolveActor(ctx, req.ActorExternalID)
	if err != nil {
		return contributiondomain.Contribution{}, err
	}

	var result contributiondomain.Contribution
	err = s.db.Transaction(func(tx *gorm.DB) error {
		event, err := s.eventRepo.FindByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if event == nil {
			return eventdomain.ErrNotFound
		}
		if event.HonoreeID == actor.ID {
			return contributiondomain.ErrNotEligible
		}
		if !statusJoinable(event.Status) {
			return contributiondomain.ErrNotEligible
		}

		now := s.clock.Now()
		existing, err := s.repo.FindByEventAndMember(ctx, tx, event.ID, actor.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			// A declined row is superseded back to pending; any other row
			// means the member already joined.
			if existing.Status != contributiondomain.ContributionStatusDeclined {
				return contributiondomain.ErrNotEligible
			}
			existing.Status = contributiondomain.ContributionStatusPending
			existing.MarkedPaidAt = nil
			existing.UpdatedAt = now
			if err := s.repo.Update(ctx, tx, existing); err != nil {
				return err
			}
			result = *existing
			return nil
		}

		contribution := contributiondomain.Contribution{
			ID:        s.genID.Generate(),
			EventID:   event.ID,
			MemberID:  actor.ID,
			Status:    contributiondomain.ContributionStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, &contribution); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return contributiondomain.ErrNotEligible
			}
			return err
		}
		result = contribution
		return nil
	})
	if err != nil {
		return contributiondomain.Contribution{}, err
	}

	s.metrics.RecordContribution(ctx, string(result.Status))
	return result, nil
}

// Decline implements domain.Service. Declining is self-service: it works
// whether or not the member joined first, leaving a declined row behind.
func (s *Service) Decline(ctx context.Context, req contributiondomain.DeclineRequest) (contributiondomain.Contribution, error) {
	eventID, err := parseEventID(req.EventID)
	if err != nil {
		return contributiondomain.Contribution{}, err
	}
	actor, err := s.resolveActor(ctx, req.ActorExternalID)
	if err != nil {
		return contributiondomain.Contribution{}, err
	}

	var result contributiondomain.Contribution
	err = s.db.Transaction(func(tx *gorm.DB) error {
		event, err := s.eventRepo.FindByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if event == nil {
			return eventdomain.ErrNotFound
		}
		if event.HonoreeID == actor.ID {
			return contributiondomain.ErrNotEligible
		}
		if !statusJoinable(event.Status) {
			return contributiondomain.ErrNotEligible
		}

		now := s.clock.Now()
		existing, err := s.repo.FindByEventAndMember(ctx, tx, event.ID, actor.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Status = contributiondomain.ContributionStatusDeclined
			existing.MarkedPaidAt = nil
			existing.UpdatedAt = now
			if err := s.repo.Update(ctx, tx, existing); err != nil {
				return err
			}
			result = *existing
			return nil
		}

		contribution := contributiondomain.Contribution{
			ID:        s.genID.Generate(),
			EventID:   event.ID,
			MemberID:  actor.ID,
			Status:    contributiondomain.ContributionStatusDeclined,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, &contribution); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return contributiondomain.ErrNotEligible
			}
			return err
		}
		result = contribution
		return nil
	})
	if err != nil {
		return contributiondomain.Contribution{}, err
	}

	s.metrics.RecordContribution(ctx, string(result.Status))
	return result, nil
}

// ReportStatus implements domain.Service.
func (s *Service) ReportStatus(ctx context.Context, req contributiondomain.ReportStatusRequest) (contributiondomain.Contribution, error) {
	eventID, err := parseEventID(req.EventID)
	if err != nil {
		return contributiondomain.Contribution{}, err
	}
	status := contributiondomain.ContributionStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		return contributiondomain.Contribution{}, contributiondomain.ErrInvalidStatus
	}
	if req.Amount != nil && *req.Amount <= 0 {
		return contributiondomain.Contribution{}, contributiondomain.ErrInvalidAmount
	}
	actor, err := s.resolveActor(ctx, req.ActorExternalID)
	if err != nil {
		return contributiondomain.Contribution{}, err
	}

	var result contributiondomain.Contribution
	err = s.db.Transaction(func(tx *gorm.DB) error {
		event, err := s.eventRepo.FindByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if event == nil {
			return eventdomain.ErrNotFound
		}
		if !statusLedgerOpen(event.Status) {
			return contributiondomain.ErrInvalidTransition
		}

		contribution, err := s.repo.FindByEventAndMember(ctx, tx, event.ID, actor.ID)
		if err != nil {
			return err
		}
		if contribution == nil {
			return contributiondomain.ErrNotFound
		}

		now := s.clock.Now()
		contribution.Status = status
		if req.Amount != nil {
			contribution.Amount = req.Amount
		}
		if status == contributiondomain.ContributionStatusPaid {
			if contribution.MarkedPaidAt == nil {
				contribution.MarkedPaidAt = &now
			}
		} else {
			contribution.MarkedPaidAt = nil
		}
		contribution.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, contribution); err != nil {
			return err
		}
		result = *contribution
		return nil
	})
	if err != nil {
		return contributiondomain.Contribution{}, err
	}

	s.metrics.RecordContribution(ctx, string(result.Status))
	return result, nil
}

// Aggregate implements domain.Service. The view is anonymous: counts and the
// per-person share, never who is behind which row.
func (s *Service) Aggregate(ctx context.Context, rawEventID string) (contributiondomain.AggregateResponse, error) {
	eventID, err := parseEventID(rawEventID)
	if err != nil {
		return contributiondomain.AggregateResponse{}, err
	}
	event, err := s.eventRepo.FindByID(ctx, s.db, eventID)
	if err != nil {
		return contributiondomain.AggregateResponse{}, err
	}
	if event == nil {
		return contributiondomain.AggregateResponse{}, eventdomain.ErrNotFound
	}

	counts, err := s.repo.CountsByEvent(ctx, s.db, event.ID)
	if err != nil {
		return contributiondomain.AggregateResponse{}, err
	}

	resp := contributiondomain.AggregateResponse{
		EventID: event.ID.String(),
		Counts:  counts,
	}
	if event.FinalizedAt != nil && event.TotalPrice != nil && counts.Participants() > 0 {
		// Minor units round up so the collected total always covers the price.
		share := (*event.TotalPrice + counts.Participants() - 1) / counts.Participants()
		resp.PerPersonShare = &share
	}
	return resp, nil
}

// Detail implements domain.Service. Only the event organizer sees the ledger
// with identities.
func (s *Service) Detail(ctx context.Context, req contributiondomain.DetailRequest) (contributiondomain.DetailResponse, error) {
	eventID, err := parseEventID(req.EventID)
	if err != nil {
		return contributiondomain.DetailResponse{}, err
	}
	actor, err := s.resolveActor(ctx, req.ActorExternalID)
	if err != nil {
		return contributiondomain.DetailResponse{}, err
	}
	event, err := s.eventRepo.FindByID(ctx, s.db, eventID)
	if err != nil {
		return contributiondomain.DetailResponse{}, err
	}
	if event == nil {
		return contributiondomain.DetailResponse{}, eventdomain.ErrNotFound
	}
	if event.OrganizerID == nil || *event.OrganizerID != actor.ID {
		return contributiondomain.DetailResponse{}, contributiondomain.ErrUnauthorized
	}

	contributions, err := s.repo.ListByEvent(ctx, s.db, event.ID)
	if err != nil {
		return contributiondomain.DetailResponse{}, err
	}
	return contributiondomain.DetailResponse{
		EventID:       event.ID.String(),
		Contributions: contributions,
	}, nil
}

// CountAll implements domain.Service.
func (s *Service) CountAll(ctx context.Context) (contributiondomain.StatusCounts, error) {
	return s.repo.CountAll(ctx, s.db)
}

func (s *Service) resolveActor(ctx context.Context, externalID int64) (*memberdomain.Member, error) {
	if externalID == 0 {
		return nil, memberdomain.ErrInvalidExternalID
	}
	actor, err := s.memberRepo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, memberdomain.ErrMemberNotFound
	}
	return actor, nil
}

// statusJoinable reports whether new participants may still join or decline.
// Participation opens with the announcement and closes once the gift is
// finalized.
func statusJoinable(status eventdomain.EventStatus) bool {
	switch status {
	case eventdomain.EventStatusAnnounced, eventdomain.EventStatusCollecting, eventdomain.EventStatusOrganizing:
		return true
	default:
		return false
	}
}

// statusLedgerOpen reports whether existing contribution rows may still be
// edited. Tighter than statusJoinable: the ledger opens with collecting.
func statusLedgerOpen(status eventdomain.EventStatus) bool {
	return status == eventdomain.EventStatusCollecting || status == eventdomain.EventStatusOrganizing
}

func parseEventID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, eventdomain.ErrNotFound
	}
	return id, nil
}
