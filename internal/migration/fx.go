package migration

import (
	"github.com/mesaops/comanda/internal/config"
	costreportdomain "github.com/mesaops/comanda/internal/costreport/domain"
	ledgerdomain "github.com/mesaops/comanda/internal/ledger/domain"
	opmodedomain "github.com/mesaops/comanda/internal/opmode/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Versioned SQL only targets postgres; other dialects are for
			// local development and lean on gorm's schema sync.
			return conn.AutoMigrate(
				&opmodedomain.ModeState{},
				&ledgerdomain.OrderRecord{},
				&ledgerdomain.ConsumptionRecord{},
				&ledgerdomain.LaborRecord{},
				&ledgerdomain.ExpenseRecord{},
				&costreportdomain.DailyCostReport{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
