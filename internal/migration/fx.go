package migration

import (
	"strings"

	"github.com/boxlane/boxlane/internal/config"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"github.com/boxlane/boxlane/internal/seed"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, repo scheduledomain.Repository) error {
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := RunAutoMigrations(conn); err != nil {
				return err
			}
		}

		if err := CreateViews(conn); err != nil {
			return err
		}

		return seed.EnsureReferenceLocations(conn, node, repo)
	}),
)
