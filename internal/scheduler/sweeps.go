package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	contributiondomain "github.com/smallbiznis/kado/internal/contribution/domain"
	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	notificationdomain "github.com/smallbiznis/kado/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/kado/internal/observability/metrics"
	"github.com/smallbiznis/kado/internal/scheduler/guard"
	teamdomain "github.com/smallbiznis/kado/internal/team/domain"
	"github.com/smallbiznis/kado/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	jobCreateEvents     = "create_events"
	jobTransitionEvents = "transition_events"
	jobSendReminders    = "send_reminders"

	reminderKindOrganizerFollowup = "organizer_followup"

	// inviteWishlistItems caps how many wishlist entries an invite DM shows.
	inviteWishlistItems = 3
)

// CreateEventsJob materialises birthday events for every member whose next
// birthday falls inside the announce window. The honoree/team/year unique
// index makes the sweep idempotent: re-running it on the same day, or on a
// second replica, inserts nothing new.
func (s *Scheduler) CreateEventsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	now := s.clock.Now()
	policy := s.policy.Get()

	members, err := s.memberRepo.ListWithBirthday(ctx, s.db)
	if err != nil {
		return fmt.Errorf("list members with birthday: %w", err)
	}

	var errs error
	created := 0
	for _, member := range members {
		if ctx.Err() != nil {
			break
		}
		if member.Birthday == nil {
			continue
		}
		parsed, err := time.Parse(memberdomain.BirthdayLayout, *member.Birthday)
		if err != nil {
			// A malformed row should not stall the whole sweep.
			s.logSchedulerError(ctx, run, "scheduler.create_events.bad_birthday", jobCreateEvents, 0, err,
				zap.String("member_id", idString(member.ID)))
			obsmetrics.Scheduler().IncLifecycleError(obsmetrics.LifecycleStageCreateEvents, err)
			continue
		}
		occurrence := guard.NextOccurrence(parsed.Month(), parsed.Day(), now)
		if guard.DaysUntil(occurrence, now) > policy.AnnounceLeadDays {
			continue
		}

		teams, err := s.teamRepo.ListTeamsByMemberID(ctx, s.db, member.ID)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("list teams for member %s: %w", idString(member.ID), err))
			run.IncError()
			continue
		}
		for _, team := range teams {
			n, err := s.createEventForTeam(ctx, member, team, occurrence)
			if err != nil {
				s.logSchedulerError(ctx, run, "scheduler.create_events.failed", jobCreateEvents, team.ID, err,
					zap.String("member_id", idString(member.ID)))
				obsmetrics.Scheduler().IncLifecycleError(obsmetrics.LifecycleStageCreateEvents, err)
				errs = errors.Join(errs, err)
				run.IncError()
				continue
			}
			created += n
			run.AddProcessed(n)
		}
	}

	obsmetrics.Scheduler().AddBatchProcessed(jobCreateEvents, "events", created)
	return errs
}

// createEventForTeam inserts one scheduled event for the honoree in one team,
// freezing the wishlist snapshot at creation time. Returns the number of rows
// created (0 when the event for that year already exists).
func (s *Scheduler) createEventForTeam(
	ctx context.Context,
	member memberdomain.Member,
	team teamdomain.Team,
	occurrence time.Time,
) (int, error) {
	ctx = s.withLogContext(ctx, team.ID)

	existing, err := s.eventRepo.FindByHonoreeTeamYear(ctx, s.db, member.ID, team.ID, occurrence.Year())
	if err != nil {
		return 0, fmt.Errorf("find event for honoree %s: %w", idString(member.ID), err)
	}
	if existing != nil {
		return 0, nil
	}

	snapshot, err := s.snapshotWishlist(ctx, member.ID)
	if err != nil {
		return 0, fmt.Errorf("snapshot wishlist for honoree %s: %w", idString(member.ID), err)
	}

	now := s.clock.Now()
	event := &eventdomain.BirthdayEvent{
		ID:               s.genID.Generate(),
		TeamID:           team.ID,
		HonoreeID:        member.ID,
		Year:             occurrence.Year(),
		BirthdayOn:       occurrence.Format(eventdomain.DateLayout),
		Status:           eventdomain.EventStatusScheduled,
		WishlistSnapshot: snapshot,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.eventRepo.Insert(ctx, s.db, event); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Another replica created it between our check and insert.
			return 0, nil
		}
		return 0, fmt.Errorf("insert event: %w", err)
	}

	s.logger(ctx).Info("scheduler.event.created",
		zap.String("job", jobCreateEvents),
		zap.String("event_id", idString(event.ID)),
		zap.String("honoree_id", idString(member.ID)),
		zap.String("birthday_on", event.BirthdayOn),
	)
	return 1, nil
}

func (s *Scheduler) snapshotWishlist(ctx context.Context, memberID snowflake.ID) (datatypes.JSON, error) {
	items, err := s.memberRepo.ListWishlist(ctx, s.db, memberID)
	if err != nil {
		return nil, err
	}
	snapshot := make([]eventdomain.WishlistSnapshotItem, 0, len(items))
	for _, item := range items {
		snapshot = append(snapshot, eventdomain.WishlistSnapshotItem{
			ItemID:   item.ID,
			Title:    item.Title,
			Link:     item.Link,
			Position: item.Position,
		})
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// TransitionEventsJob advances every due event by at most one lifecycle edge
// per tick. Each edge is a CAS update stamped with today's date, so replaying
// the sweep on the same day is a no-op even if the process crashed between
// the update and the notifications.
func (s *Scheduler) TransitionEventsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	now := s.clock.Now()
	policy := s.policy.Get()
	firedOn := guard.CivilDate(now).Format(eventdomain.DateLayout)

	statuses := []eventdomain.EventStatus{
		eventdomain.EventStatusScheduled,
		eventdomain.EventStatusAnnounced,
		eventdomain.EventStatusCollecting,
		eventdomain.EventStatusOrganizing,
		eventdomain.EventStatusFinalized,
	}
	events, err := s.fetchEventsForWork(ctx, statuses, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("claim events for transition: %w", err)
	}
	if len(events) == 0 {
		obsmetrics.Scheduler().IncBatchDeferred(jobTransitionEvents, obsmetrics.SchedulerBatchDeferredReasonSkipLockedEmpty)
		return nil
	}

	var errs error
	for _, event := range events {
		if ctx.Err() != nil {
			break
		}
		eventCtx := s.withLogContext(ctx, event.TeamID)
		s.logEventClaimed(eventCtx, jobTransitionEvents, event)

		if err := s.transitionEvent(eventCtx, run, event, policy.AnnounceLeadDays, policy.CollectingGrace, policy.OverdueCancelDays, now, firedOn); err != nil {
			// One stuck event never blocks the rest of the batch.
			errs = errors.Join(errs, err)
			run.IncError()
		}
	}
	return errs
}

func (s *Scheduler) transitionEvent(
	ctx context.Context,
	run *jobRun,
	event eventdomain.BirthdayEvent,
	leadDays int,
	collectingGrace time.Duration,
	overdueDays int,
	now time.Time,
	firedOn string,
) error {
	birthday, err := event.BirthdayDate()
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.transition.bad_date", jobTransitionEvents, event.TeamID, err,
			zap.String("event_id", idString(event.ID)))
		obsmetrics.Scheduler().IncLifecycleError(obsmetrics.LifecycleStageOverdueCancel, err)
		return fmt.Errorf("event %s: parse birthday_on: %w", idString(event.ID), err)
	}

	// Overdue cancellation outranks forward progress: an event whose
	// birthday slipped past without finalization must not announce or
	// open collecting afterwards.
	if guardErr := guard.EnsureOverdueCancel(event.Status, birthday, now, overdueDays); guardErr == nil {
		return s.applyOverdueCancel(ctx, run, event, now, firedOn)
	}

	switch event.Status {
	case eventdomain.EventStatusScheduled:
		if guardErr := guard.EnsureEventCanAnnounce(event.Status, birthday, now, leadDays); guardErr != nil {
			return nil
		}
		return s.applyAnnounce(ctx, run, event, now, firedOn)
	case eventdomain.EventStatusAnnounced:
		if guardErr := guard.EnsureCollectingCanOpen(event.Status, event.AnnouncedAt, collectingGrace, now); guardErr != nil {
			// An early join opens collecting before the grace elapses.
			counts, err := s.contributionRepo.CountsByEvent(ctx, s.db, event.ID)
			if err != nil {
				obsmetrics.Scheduler().IncLifecycleError(obsmetrics.LifecycleStageOpenCollecting, err)
				s.logSchedulerError(ctx, run, "scheduler.open_collecting.count_failed", jobTransitionEvents, event.TeamID, err,
					zap.String("event_id", idString(event.ID)))
				return fmt.Errorf("count participants for event %s: %w", idString(event.ID), err)
			}
			if counts.Participants() == 0 {
				return nil
			}
		}
		return s.applyOpenCollecting(ctx, run, event, now, firedOn)
	case eventdomain.EventStatusFinalized:
		if guardErr := guard.EnsureEventCanCelebrate(event.Status, birthday, now); guardErr != nil {
			return nil
		}
		return s.applyCelebrate(ctx, run, event, now, firedOn)
	default:
		// collecting and organizing only move via participant actions or
		// the overdue cancel above.
		return nil
	}
}

func (s *Scheduler) applyAnnounce(ctx context.Context, run *jobRun, event eventdomain.BirthdayEvent, now time.Time, firedOn string) error {
	rows, err := s.eventRepo.MarkAnnounced(ctx, s.db, event.ID, now, firedOn)
	if err != nil {
		obsmetrics.Scheduler().IncLifecycleError(obsmetrics.LifecycleStageAnnounce, err)
		s.logSchedulerError(ctx, run, "scheduler.announce.failed", jobTransitionEvents, event.TeamID, err,
			zap.String("event_id", idString(event.ID)))
		return fmt.Errorf("announce event %s: %w", idString(event.ID), err)
	}
	if rows == 0 {
		// Lost the race to another replica or already fired today.
		return nil
	}
	obsmetrics.Scheduler().IncEventTransition(string(eventdomain.EventStatusScheduled), string(eventdomain.EventStatusAnnounced))
	s.logEventTransition(ctx, jobTransitionEvents, event, eventdomain.EventStatusAnnounced)
	run.AddProcessed(1)

	// Notifications go out after the state change is durable; a crash here
	// loses messages, never consistency.
	s.notifyAnnounced(ctx, run, event)
	return nil
}

func (s *Scheduler) applyOpenCollecting(ctx context.Context, run *jobRun, event eventdomain.BirthdayEvent, now time.Time, firedOn string) error {
	rows, err := s.eventRepo.OpenCollecting(ctx, s.db, event.ID, now, firedOn)
	if err != nil {
		obsmetrics.Scheduler().IncLifecycleError(obsmetrics.LifecycleStageOpenCollecting, err)
		s.logSchedulerError(ctx, run, "scheduler.open_collecting.failed", jobTransitionEvents, event.TeamID, err,
			zap.String("event_id", idString(event.ID)))
		return fmt.Errorf("open collecting for event %s: %w", idString(event.ID), err)
	}
	if rows == 0 {
		return nil
	}
	obsmetrics.Scheduler().IncEventTransition(string(eventdomain.EventStatusAnnounced), string(eventdomain.EventStatusCollecting))
	s.logEventTransition(ctx, jobTransitionEvents, event, eventdomain.EventStatusCollecting)
	run.AddProcessed(1)
	return nil
}

func (s *Scheduler) applyCelebrate(ctx context.Context, run *jobRun, event eventdomain.BirthdayEvent, now time.Time, firedOn string) error {
	rows, err := s.eventRepo.MarkCelebrated(ctx, s.db, event.ID, now, firedOn)
	if err != nil {
		obsmetrics.Scheduler().IncLifecycleError(obsmetrics.LifecycleStageCelebrate, err)
		s.logSchedulerError(ctx, run, "scheduler.celebrate.failed", jobTransitionEvents, event.TeamID, err,
			zap.String("event_id", idString(event.ID)))
		return fmt.Errorf("celebrate event %s: %w", idString(event.ID), err)
	}
	if rows == 0 {
		return nil
	}
	obsmetrics.Scheduler().IncEventTransition(string(eventdomain.EventStatusFinalized), string(eventdomain.EventStatusCelebrated))
	s.logEventTransition(ctx, jobTransitionEvents, event, eventdomain.EventStatusCelebrated)
	run.AddProcessed(1)

	s.notifyCelebrated(ctx, run, event)
	return nil
}

func (s *Scheduler) applyOverdueCancel(ctx context.Context, run *jobRun, event eventdomain.BirthdayEvent, now time.Time, firedOn string) error {
	from := []eventdomain.EventStatus{event.Status}
	rows, err := s.eventRepo.Cancel(ctx, s.db, event.ID, from, now, firedOn)
	if err != nil {
		obsmetrics.Scheduler().IncLifecycleError(obsmetrics.LifecycleStageOverdueCancel, err)
		s.logSchedulerError(ctx, run, "scheduler.overdue_cancel.failed", jobTransitionEvents, event.TeamID, err,
			zap.String("event_id", idString(event.ID)))
		return fmt.Errorf("overdue cancel event %s: %w", idString(event.ID), err)
	}
	if rows == 0 {
		return nil
	}
	obsmetrics.Scheduler().IncEventTransition(string(event.Status), string(eventdomain.EventStatusCancelled))
	s.logEventTransition(ctx, jobTransitionEvents, event, eventdomain.EventStatusCancelled)
	run.AddProcessed(1)

	s.notifyOverdueCancelled(ctx, run, event)
	return nil
}

// SendRemindersJob nudges pending participants before the birthday and the
// organizer after finalization. sent_reminders is the record of truth: a
// reminder kind is inserted only after every message in the batch delivered,
// so a partial failure retries the whole kind on the next tick.
func (s *Scheduler) SendRemindersJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	now := s.clock.Now()
	policy := s.policy.Get()

	statuses := []eventdomain.EventStatus{
		eventdomain.EventStatusCollecting,
		eventdomain.EventStatusOrganizing,
		eventdomain.EventStatusFinalized,
	}
	events, err := s.fetchEventsForWork(ctx, statuses, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("claim events for reminders: %w", err)
	}
	if len(events) == 0 {
		obsmetrics.Scheduler().IncBatchDeferred(jobSendReminders, obsmetrics.SchedulerBatchDeferredReasonSkipLockedEmpty)
		return nil
	}

	var errs error
	for _, event := range events {
		if ctx.Err() != nil {
			break
		}
		eventCtx := s.withLogContext(ctx, event.TeamID)

		var err error
		switch event.Status {
		case eventdomain.EventStatusCollecting, eventdomain.EventStatusOrganizing:
			err = s.sendParticipantReminder(eventCtx, run, event, now, policy.ReminderOffsets)
		case eventdomain.EventStatusFinalized:
			err = s.sendOrganizerFollowup(eventCtx, run, event, now, policy.OrganizerFollowupDays)
		}
		if err != nil {
			errs = errors.Join(errs, err)
			run.IncError()
		}
	}
	return errs
}

func (s *Scheduler) sendParticipantReminder(ctx context.Context, run *jobRun, event eventdomain.BirthdayEvent, now time.Time, offsets []int) error {
	birthday, err := event.BirthdayDate()
	if err != nil {
		return fmt.Errorf("event %s: parse birthday_on: %w", idString(event.ID), err)
	}
	offset, due := guard.DueReminderOffset(birthday, now, offsets)
	if !due {
		return nil
	}
	kind := fmt.Sprintf("before:%d", offset)
	sent, err := s.sentReminderExists(ctx, event.ID, kind)
	if err != nil {
		return fmt.Errorf("check reminder %s for event %s: %w", kind, idString(event.ID), err)
	}
	if sent {
		return nil
	}

	contributions, err := s.contributionRepo.ListByEvent(ctx, s.db, event.ID)
	if err != nil {
		return fmt.Errorf("list contributions for event %s: %w", idString(event.ID), err)
	}
	honoree := s.displayName(ctx, event.HonoreeID)
	text := fmt.Sprintf("Reminder: %d day(s) until %s's birthday. Please send your contribution if you haven't yet.",
		offset, honoree)
	if offset == 1 {
		text = fmt.Sprintf("Last call: %s's birthday is tomorrow. Please send your contribution if you haven't yet.", honoree)
	}

	delivered := true
	for _, contribution := range contributions {
		if contribution.Status != contributiondomain.ContributionStatusPending {
			continue
		}
		if err := s.dispatchToMember(ctx, run, event, notificationdomain.KindReminder, contribution.MemberID,
			text, fmt.Sprintf("%s:%s:%s", kind, idString(event.ID), idString(contribution.MemberID))); err != nil {
			delivered = false
		}
	}
	if !delivered {
		// Leave the kind unrecorded so the next tick retries everyone
		// still pending. Duplicate DMs to members who already got one
		// are the accepted cost.
		return fmt.Errorf("event %s: reminder %s partially delivered", idString(event.ID), kind)
	}

	if err := s.recordSentReminder(ctx, event.ID, kind, now); err != nil {
		return fmt.Errorf("record reminder %s for event %s: %w", kind, idString(event.ID), err)
	}
	obsmetrics.Scheduler().IncReminderSent(strconv.Itoa(offset))
	run.AddProcessed(1)
	return nil
}

func (s *Scheduler) sendOrganizerFollowup(ctx context.Context, run *jobRun, event eventdomain.BirthdayEvent, now time.Time, followupDays int) error {
	if event.OrganizerID == nil {
		return nil
	}
	if !guard.OrganizerFollowupDue(event.FinalizedAt, now, followupDays) {
		return nil
	}
	sent, err := s.sentReminderExists(ctx, event.ID, reminderKindOrganizerFollowup)
	if err != nil {
		return fmt.Errorf("check followup for event %s: %w", idString(event.ID), err)
	}
	if sent {
		return nil
	}

	honoree := s.displayName(ctx, event.HonoreeID)
	text := fmt.Sprintf("Follow-up on %s's gift: please review contributions and mark the paid ones, then close the loop with the team.", honoree)
	if err := s.dispatchToMember(ctx, run, event, notificationdomain.KindOrganizerNudge, *event.OrganizerID,
		text, fmt.Sprintf("%s:%s", reminderKindOrganizerFollowup, idString(event.ID))); err != nil {
		return fmt.Errorf("event %s: organizer followup not delivered: %w", idString(event.ID), err)
	}
	if err := s.recordSentReminder(ctx, event.ID, reminderKindOrganizerFollowup, now); err != nil {
		return fmt.Errorf("record followup for event %s: %w", idString(event.ID), err)
	}
	obsmetrics.Scheduler().IncReminderSent(reminderKindOrganizerFollowup)
	run.AddProcessed(1)
	return nil
}

// notifyAnnounced broadcasts the announcement to the team channel and DMs an
// invite to every team member except the honoree. Failures are logged and
// counted; the transition already committed.
func (s *Scheduler) notifyAnnounced(ctx context.Context, run *jobRun, event eventdomain.BirthdayEvent) {
	honoree := s.displayName(ctx, event.HonoreeID)
	announcement := fmt.Sprintf("🎂 %s's birthday is coming up on %s! A gift collection is being set up, watch your DMs.",
		honoree, event.BirthdayOn)
	s.dispatchToTeam(ctx, run, event, notificationdomain.KindAnnouncement, announcement,
		fmt.Sprintf("announce:%s", idString(event.ID)))

	invite := fmt.Sprintf("%s's birthday is on %s. Join the gift collection?%s",
		honoree, event.BirthdayOn, wishlistPreview(event.WishlistSnapshot))

	memberIDs, err := s.teamRepo.ListMemberIDs(ctx, s.db, event.TeamID)
	if err != nil {
		obsmetrics.Scheduler().IncLifecycleError(obsmetrics.LifecycleStageDispatchMessages, err)
		s.logSchedulerError(ctx, run, "scheduler.invite.list_members_failed", jobTransitionEvents, event.TeamID, err,
			zap.String("event_id", idString(event.ID)))
		return
	}
	for _, memberID := range memberIDs {
		if memberID == event.HonoreeID {
			continue
		}
		_ = s.dispatchToMember(ctx, run, event, notificationdomain.KindInvite, memberID, invite,
			fmt.Sprintf("invite:%s:%s", idString(event.ID), idString(memberID)))
	}
}

func (s *Scheduler) notifyCelebrated(ctx context.Context, run *jobRun, event eventdomain.BirthdayEvent) {
	honoree := s.displayName(ctx, event.HonoreeID)
	text := fmt.Sprintf("🎉 Happy birthday, %s! Best wishes from the whole team.", honoree)
	if event.SelectedGift != nil {
		text = fmt.Sprintf("🎉 Happy birthday, %s! The team got you: %s. Best wishes!", honoree, *event.SelectedGift)
	}
	s.dispatchToTeam(ctx, run, event, notificationdomain.KindCelebration, text,
		fmt.Sprintf("celebrate:%s", idString(event.ID)))
}

func (s *Scheduler) notifyOverdueCancelled(ctx context.Context, run *jobRun, event eventdomain.BirthdayEvent) {
	honoree := s.displayName(ctx, event.HonoreeID)
	text := fmt.Sprintf("The gift collection for %s was closed without a decision. No further contributions are needed.", honoree)
	s.dispatchToTeam(ctx, run, event, notificationdomain.KindCancellation, text,
		fmt.Sprintf("cancelled:%s", idString(event.ID)))
}

func (s *Scheduler) dispatchToTeam(ctx context.Context, run *jobRun, event eventdomain.BirthdayEvent, kind notificationdomain.Kind, text, dedupeKey string) {
	intent := notificationdomain.Intent{
		Kind:          kind,
		EventID:       event.ID,
		RecipientKind: notificationdomain.RecipientTeamChannel,
		Channel:       s.teamChannel(ctx, event.TeamID),
		Text:          text,
		DedupeKey:     dedupeKey,
	}
	if err := s.dispatcher.Dispatch(ctx, intent); err != nil {
		obsmetrics.Scheduler().IncLifecycleError(obsmetrics.LifecycleStageDispatchMessages, err)
		s.logSchedulerError(ctx, run, "scheduler.notify.team_failed", jobTransitionEvents, event.TeamID, err,
			zap.String("event_id", idString(event.ID)),
			zap.String("kind", string(kind)),
		)
	}
}

func (s *Scheduler) dispatchToMember(ctx context.Context, run *jobRun, event eventdomain.BirthdayEvent, kind notificationdomain.Kind, memberID snowflake.ID, text, dedupeKey string) error {
	member, err := s.memberRepo.FindByID(ctx, s.db, memberID)
	if err == nil && member == nil {
		err = fmt.Errorf("member %s not found", idString(memberID))
	}
	if err == nil {
		err = s.dispatcher.Dispatch(ctx, notificationdomain.Intent{
			Kind:                kind,
			EventID:             event.ID,
			RecipientKind:       notificationdomain.RecipientMemberDM,
			RecipientExternalID: member.ExternalID,
			Text:                text,
			DedupeKey:           dedupeKey,
		})
	}
	if err != nil {
		obsmetrics.Scheduler().IncLifecycleError(obsmetrics.LifecycleStageDispatchMessages, err)
		s.logSchedulerError(ctx, run, "scheduler.notify.member_failed", jobTransitionEvents, event.TeamID, err,
			zap.String("event_id", idString(event.ID)),
			zap.String("member_id", idString(memberID)),
			zap.String("kind", string(kind)),
		)
		return err
	}
	return nil
}

func (s *Scheduler) displayName(ctx context.Context, memberID snowflake.ID) string {
	member, err := s.memberRepo.FindByID(ctx, s.db, memberID)
	if err != nil || member == nil {
		return "the honoree"
	}
	return member.DisplayName
}

func (s *Scheduler) teamChannel(ctx context.Context, teamID snowflake.ID) string {
	team, err := s.teamRepo.FindByID(ctx, s.db, teamID)
	if err != nil || team == nil {
		return ""
	}
	return strconv.FormatInt(team.ExternalID, 10)
}

// wishlistPreview renders the top snapshot entries for an invite DM.
func wishlistPreview(snapshot []byte) string {
	if len(snapshot) == 0 {
		return ""
	}
	var items []eventdomain.WishlistSnapshotItem
	if err := json.Unmarshal(snapshot, &items); err != nil || len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(" Wishlist highlights:")
	for i, item := range items {
		if i == inviteWishlistItems {
			break
		}
		b.WriteString(fmt.Sprintf("\n%d. %s", i+1, item.Title))
		if item.Link != nil && *item.Link != "" {
			b.WriteString(" (" + *item.Link + ")")
		}
	}
	return b.String()
}
