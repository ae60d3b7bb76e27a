package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/kado/internal/clock"
	"github.com/smallbiznis/kado/internal/config"
	contributionrepo "github.com/smallbiznis/kado/internal/contribution/repository"
	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
	eventrepo "github.com/smallbiznis/kado/internal/event/repository"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	memberrepo "github.com/smallbiznis/kado/internal/member/repository"
	notificationrepo "github.com/smallbiznis/kado/internal/notification/repository"
	notificationservice "github.com/smallbiznis/kado/internal/notification/service"
	obsmetrics "github.com/smallbiznis/kado/internal/observability/metrics"
	"github.com/smallbiznis/kado/internal/providers/chat"
	teamdomain "github.com/smallbiznis/kado/internal/team/domain"
	teamrepo "github.com/smallbiznis/kado/internal/team/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openSchedulerTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	// SQLite has no row locks; strip the clauses the postgres repos emit.
	stripForUpdate := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			newSQL = strings.ReplaceAll(newSQL, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripForUpdate))
	require.NoError(t, db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripForUpdate))

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
		`CREATE TABLE wishlist_items (
			id INTEGER PRIMARY KEY,
			member_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			link TEXT,
			position INTEGER NOT NULL,
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
		`CREATE TABLE votes (
			id INTEGER PRIMARY KEY,
			event_id INTEGER NOT NULL,
			member_id INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			weight INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (event_id, member_id, item_id)
		)`,
		`CREATE TABLE sent_reminders (
			id INTEGER PRIMARY KEY,
			event_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE (event_id, kind)
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
	return db
}

func TestScheduler_FullLifecycle_FakeClock(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()
	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "kado", Environment: "test"})

	db := openSchedulerTestDB(t, "file:sched_lifecycle?mode=memory&cache=shared")
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	start := time.Date(2026, time.June, 1, 0, 30, 0, 0, time.UTC)
	fakeClock := clock.NewFakeClock(start)

	memberRepository := memberrepo.Provide()
	teamRepository := teamrepo.Provide()
	eventRepository := eventrepo.Provide()
	contributionRepository := contributionrepo.Provide()

	dispatcher := notificationservice.NewDispatcher(notificationservice.DispatcherParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fakeClock,
		Repo:     notificationrepo.Provide(),
		Provider: &chat.NoOpProvider{},
	})

	policy := config.NewStaticPolicyHolder(config.LifecyclePolicy{
		AnnounceLeadDays:      14,
		CollectingGrace:       0,
		ReminderOffsets:       []int{3, 1},
		OrganizerFollowupDays: 7,
		OverdueCancelDays:     1,
	})

	sched, err := New(Params{
		DB:               db,
		Log:              zap.NewNop(),
		GenID:            node,
		Clock:            fakeClock,
		Policy:           policy,
		EventRepo:        eventRepository,
		MemberRepo:       memberRepository,
		TeamRepo:         teamRepository,
		ContributionRepo: contributionRepository,
		Dispatcher:       dispatcher,
		Config:           Config{BatchSize: 10, JobTimeout: 5 * time.Second},
	})
	require.NoError(t, err)

	ctx := context.Background()
	now := fakeClock.Now()

	newMember := func(externalID int64, name string, birthday *string) memberdomain.Member {
		m := memberdomain.Member{
			ID:          node.Generate(),
			ExternalID:  externalID,
			DisplayName: name,
			Birthday:    birthday,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		require.NoError(t, memberRepository.Insert(ctx, db, &m))
		return m
	}
	str := func(s string) *string { return &s }

	honoree := newMember(1001, "Alice", str("06-15"))
	m2 := newMember(1002, "Bob", nil)
	m3 := newMember(1003, "Carol", nil)
	lateHonoree := newMember(1004, "Dave", str("06-10"))

	team1 := teamdomain.Team{ID: node.Generate(), ExternalID: -500100, Title: "Platform", Slug: "platform", CreatedAt: now, UpdatedAt: now}
	team2 := teamdomain.Team{ID: node.Generate(), ExternalID: -500200, Title: "Infra", Slug: "infra", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, teamRepository.Insert(ctx, db, &team1))
	require.NoError(t, teamRepository.Insert(ctx, db, &team2))
	for _, pair := range []struct {
		team   teamdomain.Team
		member memberdomain.Member
	}{
		{team1, honoree}, {team1, m2}, {team1, m3},
		{team2, lateHonoree}, {team2, m2},
	} {
		require.NoError(t, teamRepository.InsertMembership(ctx, db, &teamdomain.TeamMember{
			ID: node.Generate(), TeamID: pair.team.ID, MemberID: pair.member.ID, CreatedAt: now,
		}))
	}

	require.NoError(t, memberRepository.InsertWishlistItem(ctx, db, &memberdomain.WishlistItem{
		ID: node.Generate(), MemberID: honoree.ID, Title: "Chess set", Position: 1, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, memberRepository.InsertWishlistItem(ctx, db, &memberdomain.WishlistItem{
		ID: node.Generate(), MemberID: honoree.ID, Title: "Espresso beans", Position: 2, CreatedAt: now, UpdatedAt: now,
	}))

	// A finalized event far from its birthday exercises the organizer
	// follow-up without interference from celebration.
	finalizedAt := now
	followupEvent := eventdomain.BirthdayEvent{
		ID:             node.Generate(),
		TeamID:         team1.ID,
		HonoreeID:      m3.ID,
		Year:           2026,
		BirthdayOn:     "2026-06-20",
		Status:         eventdomain.EventStatusFinalized,
		OrganizerID:    &m2.ID,
		SelectedGift:   str("Plant"),
		TotalPrice:     int64Ptr(4500),
		PaymentDetails: str("revolut @bob"),
		FinalizedAt:    &finalizedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, eventRepository.Insert(ctx, db, &followupEvent))

	deliveryCount := func(eventID snowflake.ID, kind string) int64 {
		var count int64
		require.NoError(t, db.Raw(
			`SELECT COUNT(*) FROM notification_deliveries WHERE event_id = ? AND kind = ?`,
			eventID, kind,
		).Scan(&count).Error)
		return count
	}
	reminderKinds := func(eventID snowflake.ID) []string {
		var kinds []string
		require.NoError(t, db.Raw(
			`SELECT kind FROM sent_reminders WHERE event_id = ? ORDER BY kind`,
			eventID,
		).Scan(&kinds).Error)
		return kinds
	}
	loadEvent := func(id snowflake.ID) eventdomain.BirthdayEvent {
		event, err := eventRepository.FindByID(ctx, db, id)
		require.NoError(t, err)
		require.NotNil(t, event)
		return *event
	}

	// June 1: both windowed events materialize and announce on the first tick.
	require.NoError(t, sched.RunOnce(ctx))

	eventA, err := eventRepository.FindByHonoreeTeamYear(ctx, db, honoree.ID, team1.ID, 2026)
	require.NoError(t, err)
	require.NotNil(t, eventA)
	assert.Equal(t, eventdomain.EventStatusAnnounced, eventA.Status)
	assert.Equal(t, "2026-06-15", eventA.BirthdayOn)
	require.NotNil(t, eventA.AnnouncedAt)
	require.NotNil(t, eventA.LastFiredOn)
	assert.Equal(t, "2026-06-01", *eventA.LastFiredOn)
	assert.NotEmpty(t, eventA.WishlistSnapshot)

	eventB, err := eventRepository.FindByHonoreeTeamYear(ctx, db, lateHonoree.ID, team2.ID, 2026)
	require.NoError(t, err)
	require.NotNil(t, eventB)
	assert.Equal(t, eventdomain.EventStatusAnnounced, eventB.Status)
	assert.Equal(t, "2026-06-10", eventB.BirthdayOn)

	assert.EqualValues(t, 1, deliveryCount(eventA.ID, "announcement"))
	assert.EqualValues(t, 2, deliveryCount(eventA.ID, "invite"), "everyone but the honoree gets an invite")
	assert.EqualValues(t, 1, deliveryCount(eventB.ID, "announcement"))
	assert.EqualValues(t, 1, deliveryCount(eventB.ID, "invite"))

	// A second tick on the same day opens collecting and must not re-announce.
	require.NoError(t, sched.RunOnce(ctx))
	assert.Equal(t, eventdomain.EventStatusCollecting, loadEvent(eventA.ID).Status)
	assert.Equal(t, eventdomain.EventStatusCollecting, loadEvent(eventB.ID).Status)
	assert.EqualValues(t, 1, deliveryCount(eventA.ID, "announcement"))
	assert.EqualValues(t, 2, deliveryCount(eventA.ID, "invite"))

	// Bob and Carol join Alice's collection.
	for _, member := range []memberdomain.Member{m2, m3} {
		require.NoError(t, db.Exec(
			`INSERT INTO contributions (id, event_id, member_id, status, created_at, updated_at)
			 VALUES (?, ?, ?, 'pending', ?, ?)`,
			node.Generate(), eventA.ID, member.ID, fakeClock.Now(), fakeClock.Now(),
		).Error)
	}

	// Walk the calendar one day at a time through the birthday.
	for day := 2; day <= 15; day++ {
		fakeClock.Advance(24 * time.Hour)
		require.NoError(t, sched.RunOnce(ctx))

		switch day {
		case 12:
			// Bob claims the organizer role three days out.
			rows, err := eventRepository.ClaimOrganizer(ctx, db, eventA.ID, m2.ID, fakeClock.Now())
			require.NoError(t, err)
			require.EqualValues(t, 1, rows)
		case 14:
			rows, err := eventRepository.Finalize(ctx, db, eventA.ID, m2.ID, "Chess set", 9000, "iban DE00 1234", fakeClock.Now())
			require.NoError(t, err)
			require.EqualValues(t, 1, rows)
		}
	}

	// Alice's event celebrated on the day.
	finalA := loadEvent(eventA.ID)
	assert.Equal(t, eventdomain.EventStatusCelebrated, finalA.Status)
	require.NotNil(t, finalA.CelebratedAt)
	require.NotNil(t, finalA.LastFiredOn)
	assert.Equal(t, "2026-06-15", *finalA.LastFiredOn)
	assert.EqualValues(t, 1, deliveryCount(eventA.ID, "celebration"))

	// Both reminder offsets fired exactly once, two pending DMs each.
	assert.Equal(t, []string{"before:1", "before:3"}, reminderKinds(eventA.ID))
	assert.EqualValues(t, 4, deliveryCount(eventA.ID, "reminder"))

	// Dave's event never found an organizer and cancelled the day after his
	// birthday slipped past.
	finalB := loadEvent(eventB.ID)
	assert.Equal(t, eventdomain.EventStatusCancelled, finalB.Status)
	require.NotNil(t, finalB.CancelledAt)
	require.NotNil(t, finalB.LastFiredOn)
	assert.Equal(t, "2026-06-11", *finalB.LastFiredOn)
	assert.EqualValues(t, 1, deliveryCount(eventB.ID, "cancellation"))
	assert.Equal(t, []string{"before:1", "before:3"}, reminderKinds(eventB.ID))
	assert.EqualValues(t, 0, deliveryCount(eventB.ID, "reminder"), "no pending participants to nudge")

	// The finalized event got its organizer follow-up exactly once and kept
	// waiting for its birthday.
	finalC := loadEvent(followupEvent.ID)
	assert.Equal(t, eventdomain.EventStatusFinalized, finalC.Status)
	assert.Equal(t, []string{"organizer_followup"}, reminderKinds(followupEvent.ID))
	assert.EqualValues(t, 1, deliveryCount(followupEvent.ID, "organizer_nudge"))

	reminderLabels := func(offset string) map[string]string {
		return map[string]string{"service": "kado", "env": "test", "offset": offset}
	}
	assert.EqualValues(t, 2, getCounterValue(t, registry, "kado_scheduler_reminders_sent_total", reminderLabels("3")))
	assert.EqualValues(t, 2, getCounterValue(t, registry, "kado_scheduler_reminders_sent_total", reminderLabels("1")))
	assert.EqualValues(t, 1, getCounterValue(t, registry, "kado_scheduler_reminders_sent_total", reminderLabels("organizer_followup")))
}

func TestScheduler_CreateEventsJob_IsIdempotentAcrossTicks(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()
	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "kado", Environment: "test"})

	db := openSchedulerTestDB(t, "file:sched_idempotent?mode=memory&cache=shared")
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	fakeClock := clock.NewFakeClock(start)

	memberRepository := memberrepo.Provide()
	teamRepository := teamrepo.Provide()
	eventRepository := eventrepo.Provide()

	dispatcher := notificationservice.NewDispatcher(notificationservice.DispatcherParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fakeClock,
		Repo:     notificationrepo.Provide(),
		Provider: &chat.NoOpProvider{},
	})

	sched, err := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fakeClock,
		Policy: config.NewStaticPolicyHolder(config.DefaultLifecyclePolicy()),

		EventRepo:        eventRepository,
		MemberRepo:       memberRepository,
		TeamRepo:         teamRepository,
		ContributionRepo: contributionrepo.Provide(),
		Dispatcher:       dispatcher,
		Config:           Config{BatchSize: 10},
	})
	require.NoError(t, err)

	ctx := context.Background()
	now := fakeClock.Now()
	birthday := "03-10"
	member := memberdomain.Member{
		ID: node.Generate(), ExternalID: 2001, DisplayName: "Eve",
		Birthday: &birthday, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, memberRepository.Insert(ctx, db, &member))
	team := teamdomain.Team{ID: node.Generate(), ExternalID: -600100, Title: "Data", Slug: "data", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, teamRepository.Insert(ctx, db, &team))
	require.NoError(t, teamRepository.InsertMembership(ctx, db, &teamdomain.TeamMember{
		ID: node.Generate(), TeamID: team.ID, MemberID: member.ID, CreatedAt: now,
	}))

	require.NoError(t, sched.CreateEventsJob(ctx))
	fakeClock.Advance(24 * time.Hour)
	require.NoError(t, sched.CreateEventsJob(ctx))

	var count int64
	require.NoError(t, db.Raw(
		`SELECT COUNT(*) FROM birthday_events WHERE honoree_id = ?`, member.ID,
	).Scan(&count).Error)
	assert.EqualValues(t, 1, count, "one event per honoree, team and year")
}

func int64Ptr(v int64) *int64 { return &v }
