package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/clock"
	"github.com/marketlane/settlo/internal/config"
	"github.com/marketlane/settlo/internal/migration"
	"github.com/marketlane/settlo/internal/observability"
	"github.com/marketlane/settlo/internal/reconcile"
	"github.com/marketlane/settlo/internal/server"
	"github.com/marketlane/settlo/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		reconcile.Module,
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
