package migration

import (
	"strings"

	"github.com/smallbiznis/studiobook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.RunMigrations {
			log.Info("schema migrations disabled")
			return nil
		}

		if strings.EqualFold(strings.TrimSpace(cfg.DBType), "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
			log.Info("schema migrations applied", zap.String("dialect", "postgres"))
			return nil
		}

		if err := AutoMigrate(conn); err != nil {
			return err
		}
		log.Info("schema auto-migrated", zap.String("dialect", cfg.DBType))
		return nil
	}),
)
