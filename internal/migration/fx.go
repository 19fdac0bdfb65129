package migration

import (
	"strings"

	appealdomain "github.com/fieldops/penaltyd/internal/appeal/domain"
	"github.com/fieldops/penaltyd/internal/config"
	escalationdomain "github.com/fieldops/penaltyd/internal/escalation/domain"
	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
	kpidomain "github.com/fieldops/penaltyd/internal/kpi/domain"
	ledgerdomain "github.com/fieldops/penaltyd/internal/ledger/domain"
	policydomain "github.com/fieldops/penaltyd/internal/policy/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if strings.EqualFold(conn.Dialector.Name(), "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// golang-migrate DDL targets postgres; other dialects (sqlite in
		// dev) get the schema from the models directly.
		return conn.AutoMigrate(
			&policydomain.Policy{},
			&eventdomain.PenaltyEvent{},
			&ledgerdomain.PenaltyLedger{},
			&appealdomain.Appeal{},
			&escalationdomain.Probation{},
			&kpidomain.Reward{},
			&kpidomain.KPISnapshot{},
		)
	}),
)
