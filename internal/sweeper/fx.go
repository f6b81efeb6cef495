package sweeper

import (
	"context"

	"go.uber.org/fx"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/config"
)

var Module = fx.Module("sweeper",
	fx.Provide(New),
	fx.Invoke(Run),
)

func Run(lc fx.Lifecycle, cfg config.Config, s *Sweeper) {
	if !cfg.Fulfillment.SweeperEnabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go s.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
