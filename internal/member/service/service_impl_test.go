package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/kado/internal/clock"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	memberrepo "github.com/smallbiznis/kado/internal/member/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newMemberService(t *testing.T, dsn string) (memberdomain.Service, *gorm.DB) {
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
		`CREATE TABLE wishlist_items (
			id INTEGER PRIMARY KEY,
			member_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			link TEXT,
			position INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}

	node, err := snowflake.NewNode(8)
	require.NoError(t, err)
	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  memberrepo.Provide(),
	})
	return svc, db
}

func TestUpsert_CreatesThenUpdatesInPlace(t *testing.T) {
	svc, db := newMemberService(t, "file:membersvc_upsert?mode=memory&cache=shared")
	ctx := context.Background()

	_, err := svc.Upsert(ctx, memberdomain.UpsertMemberRequest{DisplayName: "Alice"})
	assert.ErrorIs(t, err, memberdomain.ErrInvalidExternalID)
	_, err = svc.Upsert(ctx, memberdomain.UpsertMemberRequest{ExternalID: 41, DisplayName: "   "})
	assert.ErrorIs(t, err, memberdomain.ErrInvalidDisplayName)

	username := "alice_a"
	created, err := svc.Upsert(ctx, memberdomain.UpsertMemberRequest{
		ExternalID: 41, DisplayName: " Alice ", Username: &username,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", created.DisplayName)

	renamed := "alice_b"
	updated, err := svc.Upsert(ctx, memberdomain.UpsertMemberRequest{
		ExternalID: 41, DisplayName: "Alice B", Username: &renamed,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Alice B", updated.DisplayName)

	var rows int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM members`).Scan(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestSetBirthday_MonthDayValidation(t *testing.T) {
	svc, _ := newMemberService(t, "file:membersvc_birthday?mode=memory&cache=shared")
	ctx := context.Background()

	_, err := svc.Upsert(ctx, memberdomain.UpsertMemberRequest{ExternalID: 42, DisplayName: "Bob"})
	require.NoError(t, err)

	for _, bad := range []string{"", "June 15", "13-01", "02-30", "00-10"} {
		_, err := svc.SetBirthday(ctx, memberdomain.SetBirthdayRequest{ExternalID: 42, Birthday: bad})
		assert.ErrorIs(t, err, memberdomain.ErrInvalidBirthday, bad)
	}

	// Leap day is a legal birthday even though most years lack it.
	member, err := svc.SetBirthday(ctx, memberdomain.SetBirthdayRequest{ExternalID: 42, Birthday: " 02-29 "})
	require.NoError(t, err)
	require.NotNil(t, member.Birthday)
	assert.Equal(t, "02-29", *member.Birthday)

	year := 1990
	member, err = svc.SetBirthday(ctx, memberdomain.SetBirthdayRequest{
		ExternalID: 42, Birthday: "06-15", BirthYear: &year,
	})
	require.NoError(t, err)
	require.NotNil(t, member.BirthYear)
	assert.Equal(t, 1990, *member.BirthYear)

	futureYear := 2030
	_, err = svc.SetBirthday(ctx, memberdomain.SetBirthdayRequest{
		ExternalID: 42, Birthday: "06-15", BirthYear: &futureYear,
	})
	assert.ErrorIs(t, err, memberdomain.ErrInvalidBirthday)

	_, err = svc.SetBirthday(ctx, memberdomain.SetBirthdayRequest{ExternalID: 43, Birthday: "06-15"})
	assert.ErrorIs(t, err, memberdomain.ErrMemberNotFound)
}

func TestAddWishlistItem_AppendsInOrder(t *testing.T) {
	svc, _ := newMemberService(t, "file:membersvc_wishlist?mode=memory&cache=shared")
	ctx := context.Background()

	_, err := svc.Upsert(ctx, memberdomain.UpsertMemberRequest{ExternalID: 44, DisplayName: "Carol"})
	require.NoError(t, err)

	_, err = svc.AddWishlistItem(ctx, memberdomain.AddWishlistItemRequest{ExternalID: 44, Title: "  "})
	assert.ErrorIs(t, err, memberdomain.ErrInvalidWishlistItem)

	link := "https://example.com/chess"
	first, err := svc.AddWishlistItem(ctx, memberdomain.AddWishlistItemRequest{
		ExternalID: 44, Title: "Chess set", Link: &link,
	})
	require.NoError(t, err)
	second, err := svc.AddWishlistItem(ctx, memberdomain.AddWishlistItemRequest{
		ExternalID: 44, Title: "Espresso beans",
	})
	require.NoError(t, err)
	assert.Less(t, first.Position, second.Position)

	items, err := svc.ListWishlist(ctx, 44)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Chess set", items[0].Title)
	require.NotNil(t, items[0].Link)
	assert.Equal(t, "Espresso beans", items[1].Title)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
