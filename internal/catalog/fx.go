package catalog

import (
	"go.uber.org/fx"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/repository"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/service"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
