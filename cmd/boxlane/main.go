package main

import (
	"github.com/boxlane/boxlane/internal/carrier"
	"github.com/boxlane/boxlane/internal/clock"
	"github.com/boxlane/boxlane/internal/config"
	"github.com/boxlane/boxlane/internal/ingest"
	"github.com/boxlane/boxlane/internal/migration"
	"github.com/boxlane/boxlane/internal/observability"
	"github.com/boxlane/boxlane/internal/ratelimit"
	"github.com/boxlane/boxlane/internal/resolver"
	"github.com/boxlane/boxlane/internal/routing"
	"github.com/boxlane/boxlane/internal/schedule"
	"github.com/boxlane/boxlane/internal/scheduler"
	"github.com/boxlane/boxlane/internal/server"
	"github.com/boxlane/boxlane/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,

		// Functional domains
		schedule.Module,
		carrier.Module,
		ingest.Module,
		resolver.Module,
		routing.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
