package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kado/internal/clock"
	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	obsmetrics "github.com/smallbiznis/kado/internal/observability/metrics"
	votedomain "github.com/smallbiznis/kado/internal/vote/domain"
	"github.com/smallbiznis/kado/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxVoteWeight = 5

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	repo       votedomain.Repository
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
	Repo       votedomain.Repository
	EventRepo  eventdomain.Repository
	MemberRepo memberdomain.Repository
	Metrics    *obsmetrics.Metrics
}

func NewService(p ServiceParam) votedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("vote.service"),

		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		eventRepo:  p.EventRepo,
		memberRepo: p.MemberRepo,
		metrics:    p.Metrics,
	}
}

// Cast implements domain.Service. Re-casting on the same item overwrites the
// previous weight; last write wins.
func (s *Service) Cast(ctx context.Context, req votedomain.CastRequest) (votedomain.Vote, error) {
	eventID, err := parseID(req.EventID)
	if err != nil {
		return votedomain.Vote{}, eventdomain.ErrNotFound
	}
	itemID, err := parseID(req.ItemID)
	if err != nil {
		return votedomain.Vote{}, votedomain.ErrUnknownItem
	}
	if req.Weight < 1 || req.Weight > maxVoteWeight {
		return votedomain.Vote{}, votedomain.ErrInvalidVote
	}
	actor, err := s.resolveActor(ctx, req.ActorExternalID)
	if err != nil {
		return votedomain.Vote{}, err
	}

	var result votedomain.Vote
	err = s.db.Transaction(func(tx *gorm.DB) error {
		event, err := s.eventRepo.FindByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if event == nil {
			return eventdomain.ErrNotFound
		}
		if event.Status != eventdomain.EventStatusCollecting {
			return votedomain.ErrVotingClosed
		}
		if event.HonoreeID == actor.ID {
			return votedomain.ErrNotEligible
		}
		joined, err := s.eventRepo.IsJoinedParticipant(ctx, tx, event.ID, actor.ID)
		if err != nil {
			return err
		}
		if !joined {
			return votedomain.ErrNotEligible
		}
		if !snapshotHasItem(event, itemID) {
			return votedomain.ErrUnknownItem
		}

		now := s.clock.Now()
		existing, err := s.repo.FindByEventMemberItem(ctx, tx, event.ID, actor.ID, itemID)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Weight = req.Weight
			existing.UpdatedAt = now
			if err := s.repo.Update(ctx, tx, existing); err != nil {
				return err
			}
			result = *existing
			return nil
		}

		vote := votedomain.Vote{
			ID:        s.genID.Generate(),
			EventID:   event.ID,
			MemberID:  actor.ID,
			ItemID:    itemID,
			Weight:    req.Weight,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, &vote); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return votedomain.ErrInvalidVote
			}
			return err
		}
		result = vote
		return nil
	})
	if err != nil {
		return votedomain.Vote{}, err
	}

	s.metrics.RecordVoteCast(ctx)
	return result, nil
}

// Tally implements domain.Service. The ranking is recomputed from stored
// votes on every call: summed weight descending, ties broken by the item's
// position in the frozen wishlist snapshot.
func (s *Service) Tally(ctx context.Context, rawEventID string) (votedomain.TallyResponse, error) {
	eventID, err := parseID(rawEventID)
	if err != nil {
		return votedomain.TallyResponse{}, eventdomain.ErrNotFound
	}
	event, err := s.eventRepo.FindByID(ctx, s.db, eventID)
	if err != nil {
		return votedomain.TallyResponse{}, err
	}
	if event == nil {
		return votedomain.TallyResponse{}, eventdomain.ErrNotFound
	}

	items, err := snapshotItems(event)
	if err != nil {
		return votedomain.TallyResponse{}, err
	}
	weights, err := s.repo.SumWeightsByItem(ctx, s.db, event.ID)
	if err != nil {
		return votedomain.TallyResponse{}, err
	}

	totals := make(map[snowflake.ID]int64, len(weights))
	for _, w := range weights {
		totals[w.ItemID] = w.Total
	}

	entries := make([]votedomain.TallyEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, votedomain.TallyEntry{
			ItemID:   item.ItemID,
			Title:    item.Title,
			Link:     item.Link,
			Position: item.Position,
			Total:    totals[item.ItemID],
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].Position < entries[j].Position
	})

	return votedomain.TallyResponse{
		EventID: event.ID.String(),
		Entries: entries,
	}, nil
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

func snapshotItems(event *eventdomain.BirthdayEvent) ([]eventdomain.WishlistSnapshotItem, error) {
	if len(event.WishlistSnapshot) == 0 {
		return nil, nil
	}
	var items []eventdomain.WishlistSnapshotItem
	if err := json.Unmarshal(event.WishlistSnapshot, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func snapshotHasItem(event *eventdomain.BirthdayEvent, itemID snowflake.ID) bool {
	items, err := snapshotItems(event)
	if err != nil {
		return false
	}
	for _, item := range items {
		if item.ItemID == itemID {
			return true
		}
	}
	return false
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, votedomain.ErrInvalidVote
	}
	return id, nil
}
