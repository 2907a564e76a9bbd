package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/openpress/peerflow/internal/clock"
	"github.com/openpress/peerflow/internal/config"
	"github.com/openpress/peerflow/internal/logger"
	"github.com/openpress/peerflow/internal/migration"
	"github.com/openpress/peerflow/internal/observability"
	"github.com/openpress/peerflow/internal/server"
	"github.com/openpress/peerflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
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
