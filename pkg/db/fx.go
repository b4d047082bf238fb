package db

import (
	"context"
	"strings"

	"github.com/smallbiznis/studiobook/internal/config"
	"github.com/smallbiznis/studiobook/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(Open),
)

// Open connects to the configured database and installs tracing and pool metrics plugins.
func Open(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(log, logger.DefaultGormLoggerConfig()),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	poolCfg := ConfigFrom(cfg)
	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(poolCfg.Name))); err != nil {
		return nil, err
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          poolCfg.Name,
		RefreshInterval: 15,
		StartServer:     false,
		Labels:          map[string]string{"dialect": strings.ToLower(poolCfg.Type)},
	})); err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if poolCfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(poolCfg.MaxIdleConn)
	}
	if poolCfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(poolCfg.MaxOpenConn)
	}
	if poolCfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(poolCfg.ConnMaxLifetime)
	}
	if poolCfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(poolCfg.ConnMaxIdleTime)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sqlDB.PingContext(ctx)
		},
		OnStop: func(ctx context.Context) error {
			log.Info("closing database connections")
			return sqlDB.Close()
		},
	})

	log.Info("database connected", zap.String("type", poolCfg.Type), zap.String("name", poolCfg.Name))
	return conn, nil
}
