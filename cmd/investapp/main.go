package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/angedjimenou/investapp/internal/account"
	"github.com/angedjimenou/investapp/internal/config"
	"github.com/angedjimenou/investapp/internal/events"
	"github.com/angedjimenou/investapp/internal/identity"
	"github.com/angedjimenou/investapp/internal/ledger"
	"github.com/angedjimenou/investapp/internal/migration"
	"github.com/angedjimenou/investapp/internal/observability"
	"github.com/angedjimenou/investapp/internal/onboarding"
	"github.com/angedjimenou/investapp/internal/payment"
	"github.com/angedjimenou/investapp/internal/purchase"
	"github.com/angedjimenou/investapp/internal/referral"
	"github.com/angedjimenou/investapp/internal/seed"
	"github.com/angedjimenou/investapp/internal/server"
	"github.com/angedjimenou/investapp/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			return seed.EnsureRootAccount(conn, cfg.BootstrapInviteCode)
		}),

		account.Module,
		ledger.Module,
		events.Module,
		identity.Module,
		referral.Module,
		onboarding.Module,
		purchase.Module,
		payment.Module,

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
