package costreport

import (
	"github.com/mesaops/comanda/internal/costreport/repository"
	"github.com/mesaops/comanda/internal/costreport/service"
	"go.uber.org/fx"
)

var Module = fx.Module("costreport.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
