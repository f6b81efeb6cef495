package fulfillment

import (
	"go.uber.org/fx"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/fulfillment/repository"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/fulfillment/service"
)

var Module = fx.Module("fulfillment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
