package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/kado/internal/clock"
	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
	eventrepo "github.com/smallbiznis/kado/internal/event/repository"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	memberrepo "github.com/smallbiznis/kado/internal/member/repository"
	notificationrepo "github.com/smallbiznis/kado/internal/notification/repository"
	notificationservice "github.com/smallbiznis/kado/internal/notification/service"
	"github.com/smallbiznis/kado/internal/providers/chat"
	teamdomain "github.com/smallbiznis/kado/internal/team/domain"
	teamrepo "github.com/smallbiznis/kado/internal/team/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type serviceFixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	service eventdomain.Service

	team     teamdomain.Team
	honoree  memberdomain.Member
	bob      memberdomain.Member
	carol    memberdomain.Member
	outsider memberdomain.Member
}

func newServiceFixture(t *testing.T, dsn string) *serviceFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	statements := []string{
		`CREATE TABLE members (
			id INTEGER PRIMARY KEY,
			external_id INTEGER NOT NULL UNIQUE,
			username TEXT,
			display_name TEXT NOT NULL,
			birthday TEXT,
			birth_year INTEGER,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE teams (
			id INTEGER PRIMARY KEY,
			external_id INTEGER NOT NULL UNIQUE,
			title TEXT NOT NULL,
			slug TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE team_members (
			id INTEGER PRIMARY KEY,
			team_id INTEGER NOT NULL,
			member_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE (team_id, member_id)
		)`,
		`CREATE TABLE birthday_events (
			id INTEGER PRIMARY KEY,
			team_id INTEGER NOT NULL,
			honoree_id INTEGER NOT NULL,
			year INTEGER NOT NULL,
			birthday_on TEXT NOT NULL,
			status TEXT NOT NULL,
			organizer_id INTEGER,
			wishlist_snapshot TEXT,
			selected_gift TEXT,
			total_price INTEGER,
			payment_details TEXT,
			announced_at DATETIME,
			collecting_at DATETIME,
			organizing_at DATETIME,
			finalized_at DATETIME,
			celebrated_at DATETIME,
			cancelled_at DATETIME,
			last_fired_on TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (team_id, honoree_id, year)
		)`,
		`CREATE TABLE contributions (
			id INTEGER PRIMARY KEY,
			event_id INTEGER NOT NULL,
			member_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			amount INTEGER,
			marked_paid_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (event_id, member_id)
		)`,
		`CREATE TABLE notification_deliveries (
			id INTEGER PRIMARY KEY,
			event_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			recipient TEXT NOT NULL,
			dedupe_key TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2026, time.June, 5, 10, 0, 0, 0, time.UTC))

	dispatcher := notificationservice.NewDispatcher(notificationservice.DispatcherParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fakeClock,
		Repo:     notificationrepo.Provide(),
		Provider: &chat.NoOpProvider{},
	})

	svc := NewService(ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fakeClock,
		Repo:       eventrepo.Provide(),
		MemberRepo: memberrepo.Provide(),
		TeamRepo:   teamrepo.Provide(),
		Dispatcher: dispatcher,
	})

	f := &serviceFixture{db: db, node: node, clock: fakeClock, service: svc}
	ctx := context.Background()
	now := fakeClock.Now()

	members := memberrepo.Provide()
	teams := teamrepo.Provide()

	newMember := func(externalID int64, name string) memberdomain.Member {
		m := memberdomain.Member{
			ID: node.Generate(), ExternalID: externalID, DisplayName: name,
			CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, members.Insert(ctx, db, &m))
		return m
	}
	f.honoree = newMember(11, "Alice")
	f.bob = newMember(12, "Bob")
	f.carol = newMember(13, "Carol")
	f.outsider = newMember(14, "Dave")

	f.team = teamdomain.Team{
		ID: node.Generate(), ExternalID: -700100, Title: "Platform", Slug: "platform",
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, teams.Insert(ctx, db, &f.team))
	for _, m := range []memberdomain.Member{f.honoree, f.bob, f.carol} {
		require.NoError(t, teams.InsertMembership(ctx, db, &teamdomain.TeamMember{
			ID: node.Generate(), TeamID: f.team.ID, MemberID: m.ID, CreatedAt: now,
		}))
	}
	return f
}

// collectingEvent seeds an event in collecting with bob and carol joined.
func (f *serviceFixture) collectingEvent(t *testing.T) eventdomain.BirthdayEvent {
	t.Helper()
	ctx := context.Background()
	now := f.clock.Now()
	announcedAt := now.Add(-48 * time.Hour)
	collectingAt := now.Add(-24 * time.Hour)
	event := eventdomain.BirthdayEvent{
		ID:               f.node.Generate(),
		TeamID:           f.team.ID,
		HonoreeID:        f.honoree.ID,
		Year:             2026,
		BirthdayOn:       "2026-06-15",
		Status:           eventdomain.EventStatusCollecting,
		WishlistSnapshot: datatypes.JSON(`[{"title":"Chess set"},{"title":"Espresso beans"}]`),
		AnnouncedAt:      &announcedAt,
		CollectingAt:     &collectingAt,
		CreatedAt:        announcedAt,
		UpdatedAt:        now,
	}
	require.NoError(t, eventrepo.Provide().Insert(ctx, f.db, &event))
	for _, m := range []memberdomain.Member{f.bob, f.carol} {
		require.NoError(t, f.db.Exec(
			`INSERT INTO contributions (id, event_id, member_id, status, created_at, updated_at)
			 VALUES (?, ?, ?, 'pending', ?, ?)`,
			f.node.Generate(), event.ID, m.ID, now, now,
		).Error)
	}
	return event
}

// Sequential claims stand in for concurrent ones here: the single-statement
// CAS UPDATE (status = collecting AND organizer_id IS NULL) serializes racing
// claims in the database, and the single sqlite test connection cannot host a
// real goroutine race anyway.
func TestClaim_FirstJoinedMemberWins(t *testing.T) {
	f := newServiceFixture(t, "file:eventsvc_claim?mode=memory&cache=shared")
	ctx := context.Background()
	event := f.collectingEvent(t)

	claimed, err := f.service.Claim(ctx, eventdomain.ClaimRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.bob.ExternalID,
	})
	require.NoError(t, err)
	assert.Equal(t, eventdomain.EventStatusOrganizing, claimed.Status)
	require.NotNil(t, claimed.OrganizerID)
	assert.Equal(t, f.bob.ID, *claimed.OrganizerID)
	require.NotNil(t, claimed.OrganizingAt)

	_, err = f.service.Claim(ctx, eventdomain.ClaimRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.carol.ExternalID,
	})
	assert.ErrorIs(t, err, eventdomain.ErrOrganizerAlreadyAssigned)

	// The losing claim must not disturb the winner.
	reloaded, err := f.service.Get(ctx, event.ID.String())
	require.NoError(t, err)
	require.NotNil(t, reloaded.OrganizerID)
	assert.Equal(t, f.bob.ID, *reloaded.OrganizerID)
}

func TestClaim_Eligibility(t *testing.T) {
	f := newServiceFixture(t, "file:eventsvc_eligibility?mode=memory&cache=shared")
	ctx := context.Background()
	event := f.collectingEvent(t)

	_, err := f.service.Claim(ctx, eventdomain.ClaimRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.honoree.ExternalID,
	})
	assert.ErrorIs(t, err, eventdomain.ErrNotEligible, "honoree cannot organize their own gift")

	// Dave never joined the collection.
	_, err = f.service.Claim(ctx, eventdomain.ClaimRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.outsider.ExternalID,
	})
	assert.ErrorIs(t, err, eventdomain.ErrNotEligible)

	_, err = f.service.Claim(ctx, eventdomain.ClaimRequest{
		EventID:         event.ID.String(),
		ActorExternalID: 99999,
	})
	assert.ErrorIs(t, err, memberdomain.ErrMemberNotFound)
}

func TestRelease_OnlyOrganizerBeforeFinalize(t *testing.T) {
	f := newServiceFixture(t, "file:eventsvc_release?mode=memory&cache=shared")
	ctx := context.Background()
	event := f.collectingEvent(t)

	_, err := f.service.Release(ctx, eventdomain.ReleaseRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.bob.ExternalID,
	})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidTransition, "nothing to release while collecting")

	_, err = f.service.Claim(ctx, eventdomain.ClaimRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.bob.ExternalID,
	})
	require.NoError(t, err)

	_, err = f.service.Release(ctx, eventdomain.ReleaseRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.carol.ExternalID,
	})
	assert.ErrorIs(t, err, eventdomain.ErrUnauthorized)

	released, err := f.service.Release(ctx, eventdomain.ReleaseRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.bob.ExternalID,
	})
	require.NoError(t, err)
	assert.Equal(t, eventdomain.EventStatusCollecting, released.Status)
	assert.Nil(t, released.OrganizerID)

	// Carol can pick it up after the release.
	claimed, err := f.service.Claim(ctx, eventdomain.ClaimRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.carol.ExternalID,
	})
	require.NoError(t, err)
	require.NotNil(t, claimed.OrganizerID)
	assert.Equal(t, f.carol.ID, *claimed.OrganizerID)
}

func TestFinalize_RequiresOrganizerAndCompleteDetails(t *testing.T) {
	f := newServiceFixture(t, "file:eventsvc_finalize?mode=memory&cache=shared")
	ctx := context.Background()
	event := f.collectingEvent(t)
	giftIndex := 0
	badIndex := 5
	freeText := "  Concert tickets  "

	_, err := f.service.Finalize(ctx, eventdomain.FinalizeRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.bob.ExternalID,
		GiftIndex:       &giftIndex,
		TotalPrice:      9000,
		PaymentDetails:  "iban DE00 1234",
	})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidTransition, "finalize requires an organizing event")

	_, err = f.service.Claim(ctx, eventdomain.ClaimRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.bob.ExternalID,
	})
	require.NoError(t, err)

	_, err = f.service.Finalize(ctx, eventdomain.FinalizeRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.carol.ExternalID,
		GiftIndex:       &giftIndex,
		TotalPrice:      9000,
		PaymentDetails:  "iban DE00 1234",
	})
	assert.ErrorIs(t, err, eventdomain.ErrUnauthorized)

	for name, req := range map[string]eventdomain.FinalizeRequest{
		"no gift":          {TotalPrice: 9000, PaymentDetails: "iban DE00 1234"},
		"index past end":   {GiftIndex: &badIndex, TotalPrice: 9000, PaymentDetails: "iban DE00 1234"},
		"zero price":       {GiftIndex: &giftIndex, TotalPrice: 0, PaymentDetails: "iban DE00 1234"},
		"blank payment":    {GiftIndex: &giftIndex, TotalPrice: 9000, PaymentDetails: "   "},
		"blank gift text":  {GiftText: strPtr("  "), TotalPrice: 9000, PaymentDetails: "iban DE00 1234"},
	} {
		req.EventID = event.ID.String()
		req.ActorExternalID = f.bob.ExternalID
		_, err := f.service.Finalize(ctx, req)
		assert.ErrorIs(t, err, eventdomain.ErrIncompleteFinalization, name)
	}

	finalized, err := f.service.Finalize(ctx, eventdomain.FinalizeRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.bob.ExternalID,
		GiftText:        &freeText,
		TotalPrice:      12000,
		PaymentDetails:  "revolut @bob",
	})
	require.NoError(t, err)
	assert.Equal(t, eventdomain.EventStatusFinalized, finalized.Status)
	require.NotNil(t, finalized.SelectedGift)
	assert.Equal(t, "Concert tickets", *finalized.SelectedGift)
	require.NotNil(t, finalized.TotalPrice)
	assert.EqualValues(t, 12000, *finalized.TotalPrice)
	require.NotNil(t, finalized.FinalizedAt)

	var deliveries int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(*) FROM notification_deliveries WHERE event_id = ? AND kind = 'finalized'`,
		event.ID,
	).Scan(&deliveries).Error)
	assert.EqualValues(t, 1, deliveries)

	// Finalized is locked in: no release, no second finalize.
	_, err = f.service.Release(ctx, eventdomain.ReleaseRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.bob.ExternalID,
	})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidTransition)
	_, err = f.service.Finalize(ctx, eventdomain.FinalizeRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.bob.ExternalID,
		GiftIndex:       &giftIndex,
		TotalPrice:      9000,
		PaymentDetails:  "iban DE00 1234",
	})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidTransition)
}

func TestCancel_AnyTeamMemberUntilTerminal(t *testing.T) {
	f := newServiceFixture(t, "file:eventsvc_cancel?mode=memory&cache=shared")
	ctx := context.Background()
	event := f.collectingEvent(t)

	_, err := f.service.Cancel(ctx, eventdomain.CancelRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.outsider.ExternalID,
	})
	assert.ErrorIs(t, err, eventdomain.ErrUnauthorized)

	cancelled, err := f.service.Cancel(ctx, eventdomain.CancelRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.carol.ExternalID,
	})
	require.NoError(t, err)
	assert.Equal(t, eventdomain.EventStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Nil(t, cancelled.LastFiredOn, "user cancels are not scheduler fires")

	var deliveries int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(*) FROM notification_deliveries WHERE event_id = ? AND kind = 'cancellation'`,
		event.ID,
	).Scan(&deliveries).Error)
	assert.EqualValues(t, 1, deliveries)

	_, err = f.service.Cancel(ctx, eventdomain.CancelRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.bob.ExternalID,
	})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidTransition)

	_, err = f.service.Claim(ctx, eventdomain.ClaimRequest{
		EventID:         event.ID.String(),
		ActorExternalID: f.bob.ExternalID,
	})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidTransition, "terminal events take no claims")
}

func TestGetAndList_Validation(t *testing.T) {
	f := newServiceFixture(t, "file:eventsvc_getlist?mode=memory&cache=shared")
	ctx := context.Background()
	event := f.collectingEvent(t)

	_, err := f.service.Get(ctx, "not-a-snowflake")
	assert.ErrorIs(t, err, eventdomain.ErrNotFound)
	_, err = f.service.Get(ctx, f.node.Generate().String())
	assert.ErrorIs(t, err, eventdomain.ErrNotFound)

	_, err = f.service.List(ctx, eventdomain.ListEventsRequest{Status: "partying"})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidStatus)

	_, err = f.service.List(ctx, eventdomain.ListEventsRequest{TeamExternalID: -1})
	assert.ErrorIs(t, err, teamdomain.ErrTeamNotFound)

	resp, err := f.service.List(ctx, eventdomain.ListEventsRequest{
		TeamExternalID: f.team.ExternalID,
		Status:         "Collecting",
	})
	require.NoError(t, err)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, event.ID, resp.Events[0].ID)
	require.NotNil(t, resp.PageInfo)
	assert.False(t, resp.PageInfo.HasMore)
}

func strPtr(s string) *string { return &s }
