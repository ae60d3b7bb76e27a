// Package guard holds the pure calendar predicates the scheduler drives
// birthday events by. Everything here is a function of dates and policy so
// the rules are testable without a database.
package guard

import (
	"errors"
	"time"

	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
)

var (
	ErrNotDue              = errors.New("event_not_due")
	ErrWrongStatus         = errors.New("event_wrong_status")
	ErrNotFinalized        = errors.New("event_not_finalized")
	ErrAlreadyClosed       = errors.New("event_already_closed")
	ErrAwaitingCelebration = errors.New("event_awaiting_celebration")
)

// CivilDate truncates a timestamp to its calendar date in the same location.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysUntil counts whole calendar days from today to the target date.
// Negative means the date has passed.
func DaysUntil(target, today time.Time) int {
	return int(CivilDate(target).Sub(CivilDate(today)).Hours() / 24)
}

// EnsureEventCanAnnounce gates scheduled → announced: the announce window
// opens leadDays before the birthday.
func EnsureEventCanAnnounce(status eventdomain.EventStatus, birthday, today time.Time, leadDays int) error {
	if status != eventdomain.EventStatusScheduled {
		return ErrWrongStatus
	}
	if DaysUntil(birthday, today) > leadDays {
		return ErrNotDue
	}
	return nil
}

// EnsureCollectingCanOpen gates announced → collecting: the announcement
// grace must have elapsed. A zero grace opens on the next tick.
func EnsureCollectingCanOpen(status eventdomain.EventStatus, announcedAt *time.Time, grace time.Duration, now time.Time) error {
	if status != eventdomain.EventStatusAnnounced {
		return ErrWrongStatus
	}
	if announcedAt == nil {
		return ErrNotDue
	}
	if now.Before(announcedAt.Add(grace)) {
		return ErrNotDue
	}
	return nil
}

// EnsureEventCanCelebrate gates finalized → celebrated: the birthday has
// arrived.
func EnsureEventCanCelebrate(status eventdomain.EventStatus, birthday, today time.Time) error {
	if status != eventdomain.EventStatusFinalized {
		return ErrNotFinalized
	}
	if DaysUntil(birthday, today) > 0 {
		return ErrNotDue
	}
	return nil
}

// EnsureOverdueCancel gates the scheduler-detected overdue cancel: the
// birthday passed overdueDays ago and the event never reached finalized.
func EnsureOverdueCancel(status eventdomain.EventStatus, birthday, today time.Time, overdueDays int) error {
	switch status {
	case eventdomain.EventStatusScheduled,
		eventdomain.EventStatusAnnounced,
		eventdomain.EventStatusCollecting,
		eventdomain.EventStatusOrganizing:
	case eventdomain.EventStatusFinalized:
		return ErrAwaitingCelebration
	default:
		return ErrAlreadyClosed
	}
	if DaysUntil(birthday, today) > -overdueDays {
		return ErrNotDue
	}
	return nil
}

// DueReminderOffset picks the reminder offset matching today, if any.
// Offsets count days before the birthday.
func DueReminderOffset(birthday, today time.Time, offsets []int) (int, bool) {
	days := DaysUntil(birthday, today)
	for _, offset := range offsets {
		if days == offset {
			return offset, true
		}
	}
	return 0, false
}

// OrganizerFollowupDue reports whether the post-finalization organizer
// follow-up is due.
func OrganizerFollowupDue(finalizedAt *time.Time, today time.Time, followupDays int) bool {
	if finalizedAt == nil || followupDays <= 0 {
		return false
	}
	return DaysUntil(finalizedAt.AddDate(0, 0, followupDays), today) <= 0
}

// NextOccurrence resolves a recurring month/day birthday to its next civil
// date on or after today. Feb 29 birthdays land on Feb 28 in common years.
func NextOccurrence(month time.Month, day int, today time.Time) time.Time {
	candidate := occurrenceInYear(today.Year(), month, day, today.Location())
	if candidate.Before(CivilDate(today)) {
		candidate = occurrenceInYear(today.Year()+1, month, day, today.Location())
	}
	return candidate
}

func occurrenceInYear(year int, month time.Month, day int, loc *time.Location) time.Time {
	if month == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
