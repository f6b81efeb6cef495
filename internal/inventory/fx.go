package inventory

import (
	"go.uber.org/fx"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/inventory/repository"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/inventory/service"
)

var Module = fx.Module("inventory.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
