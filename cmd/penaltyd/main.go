package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/penaltyd/internal/appeal"
	"github.com/fieldops/penaltyd/internal/clock"
	"github.com/fieldops/penaltyd/internal/config"
	"github.com/fieldops/penaltyd/internal/escalation"
	"github.com/fieldops/penaltyd/internal/evaluation"
	"github.com/fieldops/penaltyd/internal/event"
	"github.com/fieldops/penaltyd/internal/forgiveness"
	"github.com/fieldops/penaltyd/internal/ledger"
	"github.com/fieldops/penaltyd/internal/lock"
	"github.com/fieldops/penaltyd/internal/logger"
	"github.com/fieldops/penaltyd/internal/metrics"
	"github.com/fieldops/penaltyd/internal/migration"
	"github.com/fieldops/penaltyd/internal/policy"
	"github.com/fieldops/penaltyd/internal/scheduler"
	"github.com/fieldops/penaltyd/internal/server"
	"github.com/fieldops/penaltyd/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		lock.Module,
		migration.Module,

		// Domain services
		policy.Module,
		event.Module,
		ledger.Module,
		forgiveness.Module,
		escalation.Module,
		evaluation.Module,
		appeal.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
