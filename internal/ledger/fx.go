package ledger

import (
	"github.com/mesaops/comanda/internal/ledger/repository"
	"github.com/mesaops/comanda/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.ProvideOrderLedger),
	fx.Provide(repository.ProvideConsumptionLedger),
	fx.Provide(repository.ProvideLaborLedger),
	fx.Provide(repository.ProvideExpenseLedger),
	fx.Provide(service.New),
)
