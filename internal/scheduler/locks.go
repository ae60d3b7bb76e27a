package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
	"github.com/smallbiznis/kado/pkg/db"
	"gorm.io/gorm"
)

const claimTimeout = 2 * time.Second

// fetchEventsForWork claims a batch of events inside a short transaction so
// a slow claim never wedges the tick. SKIP LOCKED means concurrent replicas
// simply divide the batch between them.
func (s *Scheduler) fetchEventsForWork(ctx context.Context, statuses []eventdomain.EventStatus, limit int) ([]eventdomain.BirthdayEvent, error) {
	claimCtx, cancel := context.WithTimeout(ctx, claimTimeout)
	defer cancel()

	var events []eventdomain.BirthdayEvent
	err := s.db.WithContext(claimCtx).Transaction(func(tx *gorm.DB) error {
		if claimCtx.Err() != nil {
			return claimCtx.Err()
		}
		var err error
		events, err = s.eventRepo.ClaimDueForWork(claimCtx, tx, statuses, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// sentReminderExists checks the per-(event, kind) dedupe ledger. A row is
// only written after fully successful dispatch, so failed sends re-derive
// next tick.
func (s *Scheduler) sentReminderExists(ctx context.Context, eventID snowflake.ID, kind string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM sent_reminders WHERE event_id = ? AND kind = ?`,
		eventID,
		kind,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Scheduler) recordSentReminder(ctx context.Context, eventID snowflake.ID, kind string, now time.Time) error {
	err := s.db.WithContext(ctx).Exec(
		`INSERT INTO sent_reminders (id, event_id, kind, created_at) VALUES (?, ?, ?, ?)`,
		s.genID.Generate(),
		eventID,
		kind,
		now,
	).Error
	if err != nil && db.IsDuplicateKeyErr(err) {
		// Another replica recorded it between our check and insert.
		return nil
	}
	return err
}
