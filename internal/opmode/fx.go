package opmode

import (
	"github.com/mesaops/comanda/internal/opmode/repository"
	"github.com/mesaops/comanda/internal/opmode/service"
	"go.uber.org/fx"
)

var Module = fx.Module("opmode.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
