package risk

import (
	"go.uber.org/fx"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/cache"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/risk/repository"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/risk/service"
)

var Module = fx.Module("risk.service",
	fx.Provide(cache.NewRiskResolverCache),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
