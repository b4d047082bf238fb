package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/studiobook/internal/activity"
	"github.com/smallbiznis/studiobook/internal/booking"
	"github.com/smallbiznis/studiobook/internal/cache"
	"github.com/smallbiznis/studiobook/internal/clock"
	"github.com/smallbiznis/studiobook/internal/config"
	"github.com/smallbiznis/studiobook/internal/gamification"
	"github.com/smallbiznis/studiobook/internal/lock"
	"github.com/smallbiznis/studiobook/internal/metricspush"
	"github.com/smallbiznis/studiobook/internal/migration"
	"github.com/smallbiznis/studiobook/internal/observability"
	"github.com/smallbiznis/studiobook/internal/ratelimit"
	"github.com/smallbiznis/studiobook/internal/review"
	"github.com/smallbiznis/studiobook/internal/server"
	"github.com/smallbiznis/studiobook/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,
		ratelimit.Module,
		cache.Module,

		// Functional domains
		activity.Module,
		gamification.Module,
		booking.Module,
		review.Module,

		metricspush.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
