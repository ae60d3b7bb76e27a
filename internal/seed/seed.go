// Package seed bootstraps development fixtures: a gateway API key so the
// chat gateway can talk to a fresh instance, and optional demo data for
// local runs.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/smallbiznis/kado/internal/apikey/domain"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	teamdomain "github.com/smallbiznis/kado/internal/team/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	devKeyName = "dev"
	// devAPIKey is a fixed development credential. Production deployments
	// create keys through /admin/api-keys instead.
	devAPIKey = "kado_live_key_dev_0000000000000000"
	devKeyID  = "key_dev"
)

// EnsureDevAPIKey inserts a fixed gateway+admin key when no key exists yet.
// It never runs against production.
func EnsureDevAPIKey(db *gorm.DB, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Raw(`SELECT COUNT(*) FROM api_keys`).Scan(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		key := apikeydomain.APIKey{
			ID:        node.Generate(),
			KeyID:     devKeyID,
			Name:      devKeyName,
			Scopes:    []string{apikeydomain.ScopeGateway, apikeydomain.ScopeAdmin},
			KeyHash:   apikeydomain.HashAPIKey(devAPIKey),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&key).Error; err != nil {
			return err
		}
		if log != nil {
			log.Info("seeded development api key", zap.String("key_id", devKeyID))
		}
		return nil
	})
}

// EnsureDemoData seeds a small team with birthdays and wishlists so a local
// instance has something for the scheduler to chew on. Idempotent: it skips
// when any member exists.
func EnsureDemoData(db *gorm.DB, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Raw(`SELECT COUNT(*) FROM members`).Scan(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		team := teamdomain.Team{
			ID:         node.Generate(),
			ExternalID: -1001,
			Title:      "Demo Team",
			Slug:       "demo-team",
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.WithContext(ctx).Create(&team).Error; err != nil {
			return err
		}

		soon := now.AddDate(0, 0, 10)
		birthdays := []string{
			fmt.Sprintf("%02d-%02d", int(soon.Month()), soon.Day()),
			"03-14",
			"11-30",
		}
		names := []string{"Alice Demo", "Bob Demo", "Carol Demo"}
		wishlists := [][]string{
			{"Board game", "Coffee beans", "Novel"},
			{"Headphones"},
			nil,
		}

		for i, name := range names {
			birthday := birthdays[i]
			member := memberdomain.Member{
				ID:          node.Generate(),
				ExternalID:  int64(-(i + 1)),
				DisplayName: name,
				Birthday:    &birthday,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.WithContext(ctx).Create(&member).Error; err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Create(&teamdomain.TeamMember{
				ID:        node.Generate(),
				TeamID:    team.ID,
				MemberID:  member.ID,
				CreatedAt: now,
			}).Error; err != nil {
				return err
			}
			for pos, title := range wishlists[i] {
				if err := tx.WithContext(ctx).Create(&memberdomain.WishlistItem{
					ID:        node.Generate(),
					MemberID:  member.ID,
					Title:     title,
					Position:  pos + 1,
					CreatedAt: now,
					UpdatedAt: now,
				}).Error; err != nil {
					return err
				}
			}
		}

		if log != nil {
			log.Info("seeded demo data", zap.String("team", team.Slug))
		}
		return nil
	})
}
