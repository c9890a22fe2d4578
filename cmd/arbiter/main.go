package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldview/arbiter/internal/audit"
	"github.com/fieldview/arbiter/internal/clock"
	"github.com/fieldview/arbiter/internal/config"
	"github.com/fieldview/arbiter/internal/entitlement"
	"github.com/fieldview/arbiter/internal/events"
	"github.com/fieldview/arbiter/internal/ledger"
	"github.com/fieldview/arbiter/internal/migration"
	"github.com/fieldview/arbiter/internal/notification"
	"github.com/fieldview/arbiter/internal/observability"
	"github.com/fieldview/arbiter/internal/policy"
	"github.com/fieldview/arbiter/internal/processor"
	"github.com/fieldview/arbiter/internal/purchase"
	"github.com/fieldview/arbiter/internal/refund"
	"github.com/fieldview/arbiter/internal/schedule"
	"github.com/fieldview/arbiter/internal/server"
	"github.com/fieldview/arbiter/internal/settlement"
	"github.com/fieldview/arbiter/internal/telemetry"
	"github.com/fieldview/arbiter/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		clock.Module,
		db.Module,
		fx.Invoke(func(conn *gorm.DB, log *zap.Logger) error {
			return migration.Run(context.Background(), conn, log)
		}),
		events.Module,
		audit.Module,
		ledger.Module,
		policy.Module,
		schedule.Module,
		purchase.Module,
		entitlement.Module,
		telemetry.Module,
		processor.Module,
		notification.Module,
		refund.Module,
		settlement.Module,
		server.Module,
	)
	app.Run()
}
