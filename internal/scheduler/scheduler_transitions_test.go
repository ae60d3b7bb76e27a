package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
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

type transitionFixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	sched   *Scheduler
	honoree memberdomain.Member
	bob     memberdomain.Member
	team    teamdomain.Team
}

func newTransitionFixture(t *testing.T, dsn string, start time.Time, policy config.LifecyclePolicy) *transitionFixture {
	t.Helper()
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	t.Cleanup(restore)
	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "kado", Environment: "test"})

	db := openSchedulerTestDB(t, dsn)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(start)

	memberRepository := memberrepo.Provide()
	teamRepository := teamrepo.Provide()

	dispatcher := notificationservice.NewDispatcher(notificationservice.DispatcherParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fakeClock,
		Repo:     notificationrepo.Provide(),
		Provider: &chat.NoOpProvider{},
	})

	sched, err := New(Params{
		DB:               db,
		Log:              zap.NewNop(),
		GenID:            node,
		Clock:            fakeClock,
		Policy:           config.NewStaticPolicyHolder(policy),
		EventRepo:        eventrepo.Provide(),
		MemberRepo:       memberRepository,
		TeamRepo:         teamRepository,
		ContributionRepo: contributionrepo.Provide(),
		Dispatcher:       dispatcher,
		Config:           Config{BatchSize: 10, JobTimeout: 5 * time.Second},
	})
	require.NoError(t, err)

	f := &transitionFixture{db: db, node: node, clock: fakeClock, sched: sched}
	ctx := context.Background()
	now := fakeClock.Now()

	birthday := start.Format("01-02")
	f.honoree = memberdomain.Member{
		ID: node.Generate(), ExternalID: 3001, DisplayName: "Alice",
		Birthday: &birthday, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, memberRepository.Insert(ctx, db, &f.honoree))
	f.bob = memberdomain.Member{
		ID: node.Generate(), ExternalID: 3002, DisplayName: "Bob",
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, memberRepository.Insert(ctx, db, &f.bob))

	f.team = teamdomain.Team{ID: node.Generate(), ExternalID: -700100, Title: "Core", Slug: "core", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, teamRepository.Insert(ctx, db, &f.team))
	for _, member := range []memberdomain.Member{f.honoree, f.bob} {
		require.NoError(t, teamRepository.InsertMembership(ctx, db, &teamdomain.TeamMember{
			ID: node.Generate(), TeamID: f.team.ID, MemberID: member.ID, CreatedAt: now,
		}))
	}
	return f
}

func (f *transitionFixture) joinPending(t *testing.T, eventID, memberID snowflake.ID) {
	t.Helper()
	require.NoError(t, f.db.Exec(
		`INSERT INTO contributions (id, event_id, member_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, 'pending', ?, ?)`,
		f.node.Generate(), eventID, memberID, f.clock.Now(), f.clock.Now(),
	).Error)
}

func (f *transitionFixture) loadEvent(t *testing.T) eventdomain.BirthdayEvent {
	t.Helper()
	event, err := eventrepo.Provide().FindByHonoreeTeamYear(
		context.Background(), f.db, f.honoree.ID, f.team.ID, f.clock.Now().Year())
	require.NoError(t, err)
	require.NotNil(t, event)
	return *event
}

// A member whose birthday is today walks the whole lifecycle within one
// calendar date: earlier transitions stamping the date must not hold the
// celebration back.
func TestScheduler_SameDayLifecycleReachesCelebrated(t *testing.T) {
	f := newTransitionFixture(t,
		"file:sched_sameday?mode=memory&cache=shared",
		time.Date(2026, time.July, 20, 9, 0, 0, 0, time.UTC),
		config.LifecyclePolicy{
			AnnounceLeadDays:      14,
			CollectingGrace:       0,
			ReminderOffsets:       []int{3, 1},
			OrganizerFollowupDays: 7,
			OverdueCancelDays:     1,
		})
	ctx := context.Background()

	require.NoError(t, f.sched.RunOnce(ctx))
	event := f.loadEvent(t)
	require.Equal(t, eventdomain.EventStatusAnnounced, event.Status)
	require.NotNil(t, event.LastFiredOn)
	assert.Equal(t, "2026-07-20", *event.LastFiredOn)

	require.NoError(t, f.sched.RunOnce(ctx))
	require.Equal(t, eventdomain.EventStatusCollecting, f.loadEvent(t).Status)

	f.joinPending(t, event.ID, f.bob.ID)
	rows, err := eventrepo.Provide().ClaimOrganizer(ctx, f.db, event.ID, f.bob.ID, f.clock.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)
	rows, err = eventrepo.Provide().Finalize(ctx, f.db, event.ID, f.bob.ID, "Book", 3000, "iban DE00 9999", f.clock.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	require.NoError(t, f.sched.RunOnce(ctx))

	final := f.loadEvent(t)
	assert.Equal(t, eventdomain.EventStatusCelebrated, final.Status)
	require.NotNil(t, final.CelebratedAt)
	require.NotNil(t, final.LastFiredOn)
	assert.Equal(t, "2026-07-20", *final.LastFiredOn)

	var celebrations int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(*) FROM notification_deliveries WHERE event_id = ? AND kind = 'celebration'`,
		event.ID,
	).Scan(&celebrations).Error)
	assert.EqualValues(t, 1, celebrations)
}

// With a long announcement grace, collecting still opens as soon as the first
// participant joins. Declines alone do not count as participation.
func TestScheduler_EarlyJoinOpensCollectingBeforeGrace(t *testing.T) {
	start := time.Date(2026, time.August, 3, 8, 0, 0, 0, time.UTC)
	f := newTransitionFixture(t,
		"file:sched_earlyjoin?mode=memory&cache=shared",
		start,
		config.LifecyclePolicy{
			AnnounceLeadDays:      14,
			CollectingGrace:       48 * time.Hour,
			ReminderOffsets:       []int{3, 1},
			OrganizerFollowupDays: 7,
			OverdueCancelDays:     1,
		})
	ctx := context.Background()

	// Push the birthday out so only the announcement fires today.
	birthday := start.AddDate(0, 0, 10).Format("01-02")
	require.NoError(t, f.db.Exec(
		`UPDATE members SET birthday = ? WHERE id = ?`, birthday, f.honoree.ID,
	).Error)

	require.NoError(t, f.sched.RunOnce(ctx))
	event := f.loadEvent(t)
	require.Equal(t, eventdomain.EventStatusAnnounced, event.Status)

	// No joins yet: the grace holds collecting shut.
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, eventdomain.EventStatusAnnounced, f.loadEvent(t).Status)

	// A decline is not a join.
	require.NoError(t, f.db.Exec(
		`INSERT INTO contributions (id, event_id, member_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, 'declined', ?, ?)`,
		f.node.Generate(), event.ID, f.bob.ID, f.clock.Now(), f.clock.Now(),
	).Error)
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, eventdomain.EventStatusAnnounced, f.loadEvent(t).Status)

	// Bob changes his mind; the next tick opens collecting despite the grace.
	require.NoError(t, f.db.Exec(
		`UPDATE contributions SET status = 'pending' WHERE event_id = ? AND member_id = ?`,
		event.ID, f.bob.ID,
	).Error)
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, eventdomain.EventStatusCollecting, f.loadEvent(t).Status)
}
