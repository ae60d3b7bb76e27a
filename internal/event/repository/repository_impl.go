package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
	obsmetrics "github.com/smallbiznis/kado/internal/observability/metrics"
	"github.com/smallbiznis/kado/pkg/db/option"
	"github.com/smallbiznis/kado/pkg/db/pagination"
	"gorm.io/gorm"
)

const eventColumns = `id, team_id, honoree_id, year, birthday_on, status, organizer_id,
	 wishlist_snapshot, selected_gift, total_price, payment_details,
	 announced_at, collecting_at, organizing_at, finalized_at, celebrated_at,
	 cancelled_at, last_fired_on, created_at, updated_at`

type repo struct{}

func Provide() eventdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *eventdomain.BirthdayEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO birthday_events (
			id, team_id, honoree_id, year, birthday_on, status, organizer_id,
			wishlist_snapshot, selected_gift, total_price, payment_details,
			announced_at, collecting_at, organizing_at, finalized_at, celebrated_at,
			cancelled_at, last_fired_on, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.TeamID,
		event.HonoreeID,
		event.Year,
		event.BirthdayOn,
		event.Status,
		event.OrganizerID,
		event.WishlistSnapshot,
		event.SelectedGift,
		event.TotalPrice,
		event.PaymentDetails,
		event.AnnouncedAt,
		event.CollectingAt,
		event.OrganizingAt,
		event.FinalizedAt,
		event.CelebratedAt,
		event.CancelledAt,
		event.LastFiredOn,
		event.CreatedAt,
		event.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*eventdomain.BirthdayEvent, error) {
	var event eventdomain.BirthdayEvent
	err := db.WithContext(ctx).Raw(
		`SELECT `+eventColumns+` FROM birthday_events WHERE id = ?`,
		id,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*eventdomain.BirthdayEvent, error) {
	var event eventdomain.BirthdayEvent
	lockStart := time.Now()
	err := db.WithContext(ctx).Raw(
		`SELECT `+eventColumns+` FROM birthday_events WHERE id = ? FOR UPDATE`,
		id,
	).Scan(&event).Error
	obsmetrics.Scheduler().ObserveDBLockWait(obsmetrics.LockResourceEventByID, time.Since(lockStart))
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) FindByHonoreeTeamYear(ctx context.Context, db *gorm.DB, honoreeID, teamID snowflake.ID, year int) (*eventdomain.BirthdayEvent, error) {
	var event eventdomain.BirthdayEvent
	err := db.WithContext(ctx).Raw(
		`SELECT `+eventColumns+` FROM birthday_events
		 WHERE honoree_id = ? AND team_id = ? AND year = ?`,
		honoreeID,
		teamID,
		year,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter eventdomain.ListFilter, page pagination.Pagination) ([]eventdomain.BirthdayEvent, *pagination.PageInfo, error) {
	opts := []option.QueryOption{}
	if filter.TeamID != 0 {
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "team_id",
			Operator: option.EQ,
			Value:    filter.TeamID,
		}))
	}
	if len(filter.Statuses) > 0 {
		opts = append(opts, option.In("status", filter.Statuses))
	}
	opts = append(opts,
		option.WithSortBy("created_at desc, id desc"),
		option.ApplyPagination(page),
	)

	stmt := db.WithContext(ctx).Table("birthday_events").Select(eventColumns)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var rows []*eventdomain.BirthdayEvent
	if err := stmt.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	rows, info := pagination.BuildCursorPageInfo(rows, page.Limit(), func(e *eventdomain.BirthdayEvent) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        e.ID.String(),
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	events := make([]eventdomain.BirthdayEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, *row)
	}
	return events, info, nil
}

func (r *repo) ClaimDueForWork(ctx context.Context, db *gorm.DB, statuses []eventdomain.EventStatus, limit int) ([]eventdomain.BirthdayEvent, error) {
	var events []eventdomain.BirthdayEvent
	lockStart := time.Now()
	err := db.WithContext(ctx).Raw(
		`SELECT `+eventColumns+` FROM birthday_events
		 WHERE status IN ?
		 ORDER BY birthday_on ASC, id ASC
		 LIMIT ?
		 FOR UPDATE SKIP LOCKED`,
		statuses,
		limit,
	).Scan(&events).Error
	obsmetrics.Scheduler().ObserveDBLockWait(obsmetrics.LockResourceEventsForWork, time.Since(lockStart))
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) MarkAnnounced(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time, firedOn string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE birthday_events
		 SET status = ?, announced_at = COALESCE(announced_at, ?), last_fired_on = ?, updated_at = ?
		 WHERE id = ?
		   AND status = ?
		   AND (last_fired_on IS NULL OR last_fired_on <> ?)`,
		eventdomain.EventStatusAnnounced,
		now,
		firedOn,
		now,
		id,
		eventdomain.EventStatusScheduled,
		firedOn,
	)
	return result.RowsAffected, result.Error
}

// OpenCollecting omits the fired-on guard on purpose: the announce grace may
// elapse on the announcement day itself.
func (r *repo) OpenCollecting(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time, firedOn string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE birthday_events
		 SET status = ?, collecting_at = COALESCE(collecting_at, ?), last_fired_on = ?, updated_at = ?
		 WHERE id = ?
		   AND status = ?`,
		eventdomain.EventStatusCollecting,
		now,
		firedOn,
		now,
		id,
		eventdomain.EventStatusAnnounced,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ClaimOrganizer(ctx context.Context, db *gorm.DB, id, organizerID snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE birthday_events
		 SET organizer_id = ?, status = ?, organizing_at = COALESCE(organizing_at, ?), updated_at = ?
		 WHERE id = ?
		   AND status = ?
		   AND organizer_id IS NULL`,
		organizerID,
		eventdomain.EventStatusOrganizing,
		now,
		now,
		id,
		eventdomain.EventStatusCollecting,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ReleaseOrganizer(ctx context.Context, db *gorm.DB, id, organizerID snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE birthday_events
		 SET organizer_id = NULL, status = ?, updated_at = ?
		 WHERE id = ?
		   AND status = ?
		   AND organizer_id = ?
		   AND finalized_at IS NULL`,
		eventdomain.EventStatusCollecting,
		now,
		id,
		eventdomain.EventStatusOrganizing,
		organizerID,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Finalize(ctx context.Context, db *gorm.DB, id, organizerID snowflake.ID, gift string, totalPrice int64, paymentDetails string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE birthday_events
		 SET status = ?, selected_gift = ?, total_price = ?, payment_details = ?,
		     finalized_at = COALESCE(finalized_at, ?), updated_at = ?
		 WHERE id = ?
		   AND status = ?
		   AND organizer_id = ?`,
		eventdomain.EventStatusFinalized,
		gift,
		totalPrice,
		paymentDetails,
		now,
		now,
		id,
		eventdomain.EventStatusOrganizing,
		organizerID,
	)
	return result.RowsAffected, result.Error
}

// MarkCelebrated omits the fired-on guard on purpose: earlier transitions may
// have stamped the birthday date already when the whole lifecycle compresses
// onto one day, and the status check alone makes this edge fire once.
func (r *repo) MarkCelebrated(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time, firedOn string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE birthday_events
		 SET status = ?, celebrated_at = COALESCE(celebrated_at, ?), last_fired_on = ?, updated_at = ?
		 WHERE id = ?
		   AND status = ?`,
		eventdomain.EventStatusCelebrated,
		now,
		firedOn,
		now,
		id,
		eventdomain.EventStatusFinalized,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Cancel(ctx context.Context, db *gorm.DB, id snowflake.ID, fromStatuses []eventdomain.EventStatus, now time.Time, firedOn string) (int64, error) {
	// An empty firedOn marks a user-initiated cancel; the once-per-date guard
	// only applies to scheduler fires.
	if firedOn == "" {
		result := db.WithContext(ctx).Exec(
			`UPDATE birthday_events
			 SET status = ?, cancelled_at = COALESCE(cancelled_at, ?), updated_at = ?
			 WHERE id = ?
			   AND status IN ?`,
			eventdomain.EventStatusCancelled,
			now,
			now,
			id,
			fromStatuses,
		)
		return result.RowsAffected, result.Error
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE birthday_events
		 SET status = ?, cancelled_at = COALESCE(cancelled_at, ?), last_fired_on = ?, updated_at = ?
		 WHERE id = ?
		   AND status IN ?
		   AND (last_fired_on IS NULL OR last_fired_on <> ?)`,
		eventdomain.EventStatusCancelled,
		now,
		firedOn,
		now,
		id,
		fromStatuses,
		firedOn,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) CountByStatuses(ctx context.Context, db *gorm.DB, statuses []eventdomain.EventStatus) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM birthday_events WHERE status IN ?`,
		statuses,
	).Scan(&count).Error
	return count, err
}

func (r *repo) IsJoinedParticipant(ctx context.Context, db *gorm.DB, eventID, memberID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM contributions
		 WHERE event_id = ? AND member_id = ? AND status IN ('pending', 'paid')`,
		eventID,
		memberID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
