package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kado/internal/clock"
	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	notificationdomain "github.com/smallbiznis/kado/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/kado/internal/observability/metrics"
	teamdomain "github.com/smallbiznis/kado/internal/team/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	repo       eventdomain.Repository
	memberRepo memberdomain.Repository
	teamRepo   teamdomain.Repository
	dispatcher notificationdomain.Dispatcher
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       eventdomain.Repository
	MemberRepo memberdomain.Repository
	TeamRepo   teamdomain.Repository
	Dispatcher notificationdomain.Dispatcher
}

func NewService(p ServiceParam) eventdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("event.service"),

		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		memberRepo: p.MemberRepo,
		teamRepo:   p.TeamRepo,
		dispatcher: p.Dispatcher,
	}
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context, eventID string) (eventdomain.BirthdayEvent, error) {
	id, err := parseEventID(eventID)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	event, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	if event == nil {
		return eventdomain.BirthdayEvent{}, eventdomain.ErrNotFound
	}
	return *event, nil
}

// List implements domain.Service.
func (s *Service) List(ctx context.Context, req eventdomain.ListEventsRequest) (eventdomain.ListEventsResponse, error) {
	filter := eventdomain.ListFilter{}

	if req.TeamExternalID != 0 {
		team, err := s.teamRepo.FindByExternalID(ctx, s.db, req.TeamExternalID)
		if err != nil {
			return eventdomain.ListEventsResponse{}, err
		}
		if team == nil {
			return eventdomain.ListEventsResponse{}, teamdomain.ErrTeamNotFound
		}
		filter.TeamID = team.ID
	}

	if req.Status != "" {
		status := eventdomain.EventStatus(strings.ToLower(strings.TrimSpace(req.Status)))
		if !knownStatus(status) {
			return eventdomain.ListEventsResponse{}, eventdomain.ErrInvalidStatus
		}
		filter.Statuses = []eventdomain.EventStatus{status}
	}

	events, pageInfo, err := s.repo.List(ctx, s.db, filter, req.Page)
	if err != nil {
		return eventdomain.ListEventsResponse{}, err
	}
	return eventdomain.ListEventsResponse{Events: events, PageInfo: pageInfo}, nil
}

// Claim implements domain.Service. Exactly one concurrent claimer wins; the
// compare-and-set on (status, organizer_id) decides.
func (s *Service) Claim(ctx context.Context, req eventdomain.ClaimRequest) (eventdomain.BirthdayEvent, error) {
	id, err := parseEventID(req.EventID)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	actor, err := s.resolveActor(ctx, req.ActorExternalID)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}

	event, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	if event == nil {
		return eventdomain.BirthdayEvent{}, eventdomain.ErrNotFound
	}
	if event.HonoreeID == actor.ID {
		return eventdomain.BirthdayEvent{}, eventdomain.ErrNotEligible
	}
	joined, err := s.repo.IsJoinedParticipant(ctx, s.db, event.ID, actor.ID)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	if !joined {
		return eventdomain.BirthdayEvent{}, eventdomain.ErrNotEligible
	}

	rows, err := s.repo.ClaimOrganizer(ctx, s.db, event.ID, actor.ID, s.clock.Now())
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	if rows == 0 {
		return eventdomain.BirthdayEvent{}, s.classifyClaimFailure(ctx, event.ID)
	}

	obsmetrics.Scheduler().IncEventTransition(string(eventdomain.EventStatusCollecting), string(eventdomain.EventStatusOrganizing))
	s.log.Info("organizer claimed",
		zap.Int64("event_id", int64(event.ID)),
		zap.Int64("organizer_id", int64(actor.ID)),
	)
	return s.reload(ctx, event.ID)
}

// Release implements domain.Service. Only the current organizer may release,
// and only before finalization; the event drops back to collecting.
func (s *Service) Release(ctx context.Context, req eventdomain.ReleaseRequest) (eventdomain.BirthdayEvent, error) {
	id, err := parseEventID(req.EventID)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	actor, err := s.resolveActor(ctx, req.ActorExternalID)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}

	rows, err := s.repo.ReleaseOrganizer(ctx, s.db, id, actor.ID, s.clock.Now())
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	if rows == 0 {
		return eventdomain.BirthdayEvent{}, s.classifyReleaseFailure(ctx, id, actor.ID)
	}

	obsmetrics.Scheduler().IncEventTransition(string(eventdomain.EventStatusOrganizing), string(eventdomain.EventStatusCollecting))
	s.log.Info("organizer released",
		zap.Int64("event_id", int64(id)),
		zap.Int64("organizer_id", int64(actor.ID)),
	)
	return s.reload(ctx, id)
}

// Finalize implements domain.Service.
func (s *Service) Finalize(ctx context.Context, req eventdomain.FinalizeRequest) (eventdomain.BirthdayEvent, error) {
	id, err := parseEventID(req.EventID)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	actor, err := s.resolveActor(ctx, req.ActorExternalID)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}

	event, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	if event == nil {
		return eventdomain.BirthdayEvent{}, eventdomain.ErrNotFound
	}
	if event.Status != eventdomain.EventStatusOrganizing {
		return eventdomain.BirthdayEvent{}, eventdomain.ErrInvalidTransition
	}
	if event.OrganizerID == nil || *event.OrganizerID != actor.ID {
		return eventdomain.BirthdayEvent{}, eventdomain.ErrUnauthorized
	}

	gift, err := resolveGift(event, req)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	if req.TotalPrice <= 0 || strings.TrimSpace(req.PaymentDetails) == "" {
		return eventdomain.BirthdayEvent{}, eventdomain.ErrIncompleteFinalization
	}

	rows, err := s.repo.Finalize(ctx, s.db, event.ID, actor.ID, gift, req.TotalPrice, strings.TrimSpace(req.PaymentDetails), s.clock.Now())
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	if rows == 0 {
		// Lost a race with release or cancel between read and CAS.
		return eventdomain.BirthdayEvent{}, eventdomain.ErrInvalidTransition
	}

	obsmetrics.Scheduler().IncEventTransition(string(eventdomain.EventStatusOrganizing), string(eventdomain.EventStatusFinalized))

	updated, err := s.reload(ctx, event.ID)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	s.notifyFinalized(ctx, &updated, gift)
	return updated, nil
}

// Cancel implements domain.Service. Any member of the event's team may
// cancel; the event must not already be terminal.
func (s *Service) Cancel(ctx context.Context, req eventdomain.CancelRequest) (eventdomain.BirthdayEvent, error) {
	id, err := parseEventID(req.EventID)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	actor, err := s.resolveActor(ctx, req.ActorExternalID)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}

	event, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	if event == nil {
		return eventdomain.BirthdayEvent{}, eventdomain.ErrNotFound
	}

	isMember, err := s.teamRepo.HasMembership(ctx, s.db, event.TeamID, actor.ID)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	if !isMember {
		return eventdomain.BirthdayEvent{}, eventdomain.ErrUnauthorized
	}
	if event.Status.IsTerminal() {
		return eventdomain.BirthdayEvent{}, eventdomain.ErrInvalidTransition
	}

	from := event.Status
	rows, err := s.repo.Cancel(ctx, s.db, event.ID, nonTerminalStatuses(), s.clock.Now(), "")
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	if rows == 0 {
		return eventdomain.BirthdayEvent{}, eventdomain.ErrInvalidTransition
	}

	obsmetrics.Scheduler().IncEventTransition(string(from), string(eventdomain.EventStatusCancelled))
	s.log.Info("event cancelled",
		zap.Int64("event_id", int64(event.ID)),
		zap.String("from_status", string(from)),
		zap.Int64("actor_id", int64(actor.ID)),
	)

	updated, err := s.reload(ctx, event.ID)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	s.notifyCancelled(ctx, &updated)
	return updated, nil
}

// CountActive implements domain.Service.
func (s *Service) CountActive(ctx context.Context) (int64, error) {
	return s.repo.CountByStatuses(ctx, s.db, nonTerminalStatuses())
}

// CountCelebrated implements domain.Service.
func (s *Service) CountCelebrated(ctx context.Context) (int64, error) {
	return s.repo.CountByStatuses(ctx, s.db, []eventdomain.EventStatus{eventdomain.EventStatusCelebrated})
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

func (s *Service) reload(ctx context.Context, id snowflake.ID) (eventdomain.BirthdayEvent, error) {
	event, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return eventdomain.BirthdayEvent{}, err
	}
	if event == nil {
		return eventdomain.BirthdayEvent{}, eventdomain.ErrNotFound
	}
	return *event, nil
}

func (s *Service) classifyClaimFailure(ctx context.Context, id snowflake.ID) error {
	event, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if event == nil {
		return eventdomain.ErrNotFound
	}
	if event.Status == eventdomain.EventStatusOrganizing && event.OrganizerID != nil {
		return eventdomain.ErrOrganizerAlreadyAssigned
	}
	return eventdomain.ErrInvalidTransition
}

func (s *Service) classifyReleaseFailure(ctx context.Context, id, actorID snowflake.ID) error {
	event, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if event == nil {
		return eventdomain.ErrNotFound
	}
	if event.Status != eventdomain.EventStatusOrganizing {
		return eventdomain.ErrInvalidTransition
	}
	if event.OrganizerID == nil || *event.OrganizerID != actorID {
		return eventdomain.ErrUnauthorized
	}
	return eventdomain.ErrInvalidTransition
}

// notifyFinalized posts the gift decision to the team channel. Delivery is
// best effort after commit.
func (s *Service) notifyFinalized(ctx context.Context, event *eventdomain.BirthdayEvent, gift string) {
	honoreeName := s.honoreeName(ctx, event)
	intent := notificationdomain.Intent{
		Kind:          notificationdomain.KindFinalized,
		EventID:       event.ID,
		RecipientKind: notificationdomain.RecipientTeamChannel,
		Channel:       s.teamChannel(ctx, event.TeamID),
		Text: fmt.Sprintf("The gift for %s is decided: %s. Check your DM for your share.",
			honoreeName, gift),
		DedupeKey: fmt.Sprintf("finalized:%d", event.ID),
	}
	if err := s.dispatcher.Dispatch(ctx, intent); err != nil {
		s.log.Warn("finalize notice not delivered", zap.Int64("event_id", int64(event.ID)), zap.Error(err))
	}
}

func (s *Service) notifyCancelled(ctx context.Context, event *eventdomain.BirthdayEvent) {
	honoreeName := s.honoreeName(ctx, event)
	intent := notificationdomain.Intent{
		Kind:          notificationdomain.KindCancellation,
		EventID:       event.ID,
		RecipientKind: notificationdomain.RecipientTeamChannel,
		Channel:       s.teamChannel(ctx, event.TeamID),
		Text: fmt.Sprintf("The birthday collection for %s has been cancelled. No further contributions are needed.",
			honoreeName),
		DedupeKey: fmt.Sprintf("cancelled:%d", event.ID),
	}
	if err := s.dispatcher.Dispatch(ctx, intent); err != nil {
		s.log.Warn("cancellation notice not delivered", zap.Int64("event_id", int64(event.ID)), zap.Error(err))
	}
}

func (s *Service) teamChannel(ctx context.Context, teamID snowflake.ID) string {
	team, err := s.teamRepo.FindByID(ctx, s.db, teamID)
	if err != nil || team == nil {
		return ""
	}
	return strconv.FormatInt(team.ExternalID, 10)
}

func (s *Service) honoreeName(ctx context.Context, event *eventdomain.BirthdayEvent) string {
	honoree, err := s.memberRepo.FindByID(ctx, s.db, event.HonoreeID)
	if err != nil || honoree == nil {
		return "the honoree"
	}
	return honoree.DisplayName
}

// resolveGift picks the finalized gift either by index into the frozen
// wishlist snapshot or as free text.
func resolveGift(event *eventdomain.BirthdayEvent, req eventdomain.FinalizeRequest) (string, error) {
	if req.GiftIndex != nil {
		var items []eventdomain.WishlistSnapshotItem
		if len(event.WishlistSnapshot) > 0 {
			if err := json.Unmarshal(event.WishlistSnapshot, &items); err != nil {
				return "", err
			}
		}
		if *req.GiftIndex < 0 || *req.GiftIndex >= len(items) {
			return "", eventdomain.ErrIncompleteFinalization
		}
		return items[*req.GiftIndex].Title, nil
	}
	if req.GiftText != nil {
		gift := strings.TrimSpace(*req.GiftText)
		if gift == "" {
			return "", eventdomain.ErrIncompleteFinalization
		}
		return gift, nil
	}
	return "", eventdomain.ErrIncompleteFinalization
}

func parseEventID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, eventdomain.ErrNotFound
	}
	return id, nil
}

func knownStatus(status eventdomain.EventStatus) bool {
	switch status {
	case eventdomain.EventStatusScheduled,
		eventdomain.EventStatusAnnounced,
		eventdomain.EventStatusCollecting,
		eventdomain.EventStatusOrganizing,
		eventdomain.EventStatusFinalized,
		eventdomain.EventStatusCelebrated,
		eventdomain.EventStatusCancelled:
		return true
	default:
		return false
	}
}

func nonTerminalStatuses() []eventdomain.EventStatus {
	return []eventdomain.EventStatus{
		eventdomain.EventStatusScheduled,
		eventdomain.EventStatusAnnounced,
		eventdomain.EventStatusCollecting,
		eventdomain.EventStatusOrganizing,
		eventdomain.EventStatusFinalized,
	}
}
