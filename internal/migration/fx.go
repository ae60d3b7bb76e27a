package migration

import (
	"github.com/smallbiznis/kado/internal/config"
	"github.com/smallbiznis/kado/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		if cfg.Environment != "production" {
			if err := seed.EnsureDevAPIKey(conn, log); err != nil {
				return err
			}
		}
		if cfg.SeedDemoData {
			return seed.EnsureDemoData(conn, log)
		}
		return nil
	}),
)
