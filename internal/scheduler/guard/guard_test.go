package guard

import (
	"testing"
	"time"

	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name  string
		month time.Month
		day   int
		today time.Time
		want  time.Time
	}{
		{"later this year", time.June, 15, date(2026, time.June, 1), date(2026, time.June, 15)},
		{"today counts as this year", time.June, 15, date(2026, time.June, 15), date(2026, time.June, 15)},
		{"already passed rolls to next year", time.June, 15, date(2026, time.June, 16), date(2027, time.June, 15)},
		{"feb 29 in a leap year", time.February, 29, date(2028, time.January, 1), date(2028, time.February, 29)},
		{"feb 29 lands on feb 28 in common years", time.February, 29, date(2026, time.January, 1), date(2026, time.February, 28)},
		{"feb 29 after feb 28 rolls forward", time.February, 29, date(2026, time.March, 1), date(2027, time.February, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOccurrence(tt.month, tt.day, tt.today)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestDaysUntil(t *testing.T) {
	birthday := date(2026, time.June, 15)

	assert.Equal(t, 14, DaysUntil(birthday, date(2026, time.June, 1)))
	assert.Equal(t, 0, DaysUntil(birthday, date(2026, time.June, 15)))
	assert.Equal(t, -3, DaysUntil(birthday, date(2026, time.June, 18)))

	// Intra-day times must not change the whole-day count.
	lateEvening := time.Date(2026, time.June, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 14, DaysUntil(birthday, lateEvening))
}

func TestEnsureEventCanAnnounce(t *testing.T) {
	birthday := date(2026, time.June, 15)

	require.NoError(t, EnsureEventCanAnnounce(eventdomain.EventStatusScheduled, birthday, date(2026, time.June, 1), 14))
	require.NoError(t, EnsureEventCanAnnounce(eventdomain.EventStatusScheduled, birthday, date(2026, time.June, 14), 14))

	err := EnsureEventCanAnnounce(eventdomain.EventStatusScheduled, birthday, date(2026, time.May, 31), 14)
	assert.ErrorIs(t, err, ErrNotDue)

	err = EnsureEventCanAnnounce(eventdomain.EventStatusAnnounced, birthday, date(2026, time.June, 1), 14)
	assert.ErrorIs(t, err, ErrWrongStatus)
}

func TestEnsureCollectingCanOpen(t *testing.T) {
	announced := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)

	err := EnsureCollectingCanOpen(eventdomain.EventStatusAnnounced, &announced, 0, announced)
	require.NoError(t, err, "zero grace opens immediately")

	err = EnsureCollectingCanOpen(eventdomain.EventStatusAnnounced, &announced, time.Hour, announced.Add(30*time.Minute))
	assert.ErrorIs(t, err, ErrNotDue)

	err = EnsureCollectingCanOpen(eventdomain.EventStatusAnnounced, &announced, time.Hour, announced.Add(time.Hour))
	require.NoError(t, err)

	err = EnsureCollectingCanOpen(eventdomain.EventStatusAnnounced, nil, 0, announced)
	assert.ErrorIs(t, err, ErrNotDue)

	err = EnsureCollectingCanOpen(eventdomain.EventStatusCollecting, &announced, 0, announced)
	assert.ErrorIs(t, err, ErrWrongStatus)
}

func TestEnsureEventCanCelebrate(t *testing.T) {
	birthday := date(2026, time.June, 15)

	err := EnsureEventCanCelebrate(eventdomain.EventStatusFinalized, birthday, date(2026, time.June, 14))
	assert.ErrorIs(t, err, ErrNotDue)

	require.NoError(t, EnsureEventCanCelebrate(eventdomain.EventStatusFinalized, birthday, date(2026, time.June, 15)))
	require.NoError(t, EnsureEventCanCelebrate(eventdomain.EventStatusFinalized, birthday, date(2026, time.June, 16)))

	err = EnsureEventCanCelebrate(eventdomain.EventStatusOrganizing, birthday, date(2026, time.June, 15))
	assert.ErrorIs(t, err, ErrNotFinalized)
}

func TestEnsureOverdueCancel(t *testing.T) {
	birthday := date(2026, time.June, 15)

	tests := []struct {
		name    string
		status  eventdomain.EventStatus
		today   time.Time
		overdue int
		wantErr error
	}{
		{"collecting past overdue cancels", eventdomain.EventStatusCollecting, date(2026, time.June, 16), 1, nil},
		{"scheduled past overdue cancels", eventdomain.EventStatusScheduled, date(2026, time.June, 16), 1, nil},
		{"on the birthday itself not yet", eventdomain.EventStatusCollecting, date(2026, time.June, 15), 1, ErrNotDue},
		{"before the birthday not due", eventdomain.EventStatusOrganizing, date(2026, time.June, 10), 1, ErrNotDue},
		{"finalized waits for celebration", eventdomain.EventStatusFinalized, date(2026, time.June, 20), 1, ErrAwaitingCelebration},
		{"celebrated already closed", eventdomain.EventStatusCelebrated, date(2026, time.June, 20), 1, ErrAlreadyClosed},
		{"cancelled already closed", eventdomain.EventStatusCancelled, date(2026, time.June, 20), 1, ErrAlreadyClosed},
		{"larger overdue window delays the cancel", eventdomain.EventStatusCollecting, date(2026, time.June, 17), 3, ErrNotDue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EnsureOverdueCancel(tt.status, birthday, tt.today, tt.overdue)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDueReminderOffset(t *testing.T) {
	birthday := date(2026, time.June, 15)
	offsets := []int{3, 1}

	offset, due := DueReminderOffset(birthday, date(2026, time.June, 12), offsets)
	require.True(t, due)
	assert.Equal(t, 3, offset)

	offset, due = DueReminderOffset(birthday, date(2026, time.June, 14), offsets)
	require.True(t, due)
	assert.Equal(t, 1, offset)

	_, due = DueReminderOffset(birthday, date(2026, time.June, 13), offsets)
	assert.False(t, due)

	_, due = DueReminderOffset(birthday, date(2026, time.June, 15), offsets)
	assert.False(t, due, "the birthday itself is not a reminder day")

	_, due = DueReminderOffset(birthday, date(2026, time.June, 12), nil)
	assert.False(t, due)
}

func TestOrganizerFollowupDue(t *testing.T) {
	finalized := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)

	assert.False(t, OrganizerFollowupDue(&finalized, date(2026, time.June, 16), 7))
	assert.True(t, OrganizerFollowupDue(&finalized, date(2026, time.June, 17), 7))
	assert.True(t, OrganizerFollowupDue(&finalized, date(2026, time.June, 20), 7))
	assert.False(t, OrganizerFollowupDue(nil, date(2026, time.June, 20), 7))
	assert.False(t, OrganizerFollowupDue(&finalized, date(2026, time.June, 20), 0))
}
