package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kado/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows event list queries.
type ListFilter struct {
	TeamID   snowflake.ID
	Statuses []EventStatus
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *BirthdayEvent) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BirthdayEvent, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BirthdayEvent, error)
	FindByHonoreeTeamYear(ctx context.Context, db *gorm.DB, honoreeID, teamID snowflake.ID, year int) (*BirthdayEvent, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]BirthdayEvent, *pagination.PageInfo, error)

	// ClaimDueForWork locks a batch of non-terminal events with
	// FOR UPDATE SKIP LOCKED so concurrent sweeps never block each other.
	ClaimDueForWork(ctx context.Context, db *gorm.DB, statuses []EventStatus, limit int) ([]BirthdayEvent, error)

	// CAS transition markers. Each returns the number of rows changed;
	// zero means the guard failed and the caller re-reads to classify.
	MarkAnnounced(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time, firedOn string) (int64, error)
	OpenCollecting(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time, firedOn string) (int64, error)
	ClaimOrganizer(ctx context.Context, db *gorm.DB, id, organizerID snowflake.ID, now time.Time) (int64, error)
	ReleaseOrganizer(ctx context.Context, db *gorm.DB, id, organizerID snowflake.ID, now time.Time) (int64, error)
	Finalize(ctx context.Context, db *gorm.DB, id, organizerID snowflake.ID, gift string, totalPrice int64, paymentDetails string, now time.Time) (int64, error)
	MarkCelebrated(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time, firedOn string) (int64, error)
	Cancel(ctx context.Context, db *gorm.DB, id snowflake.ID, fromStatuses []EventStatus, now time.Time, firedOn string) (int64, error)

	CountByStatuses(ctx context.Context, db *gorm.DB, statuses []EventStatus) (int64, error)

	// IsJoinedParticipant reports whether the member has a pending or paid
	// contribution row on the event.
	IsJoinedParticipant(ctx context.Context, db *gorm.DB, eventID, memberID snowflake.ID) (bool, error)
}
