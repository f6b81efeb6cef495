package audit

import (
	"go.uber.org/fx"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/repository"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/service"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
