// Package sweeper periodically retries pending deliveries of paid
// orders, so a restock eventually fulfils the backlog without anyone
// replaying payment callbacks.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	auditdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/auditcontext"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/clock"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/config"
	fulfillmentdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/fulfillment/domain"
	obsmetrics "github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/metrics"
)

const runTimeout = 2 * time.Minute

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	Cfg         config.Config
	Fulfillment fulfillmentdomain.Service
}

type Sweeper struct {
	log         *zap.Logger
	clock       clock.Clock
	interval    time.Duration
	batch       int
	fulfillment fulfillmentdomain.Service
}

func New(p Params) *Sweeper {
	interval := p.Cfg.Fulfillment.SweeperInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	batch := p.Cfg.Fulfillment.SweeperBatch
	if batch <= 0 {
		batch = 50
	}
	return &Sweeper{
		log:         p.Log.Named("sweeper"),
		clock:       p.Clock,
		interval:    interval,
		batch:       batch,
		fulfillment: p.Fulfillment,
	}
}

func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("sweeper started", zap.Duration("interval", s.interval), zap.Int("batch", s.batch))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Exposed so tests and admin tooling
// can trigger a sweep without the ticker.
func (s *Sweeper) RunOnce(parent context.Context) {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, runTimeout)
	defer cancel()

	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "sweeper")

	sweepMetrics := obsmetrics.Sweeper()
	delivered, err := s.fulfillment.RetryPending(ctx, s.batch)
	sweepMetrics.ObserveRun(start, err)
	if err != nil {
		sweepMetrics.ObserveDBError(err)
		s.log.Error("sweep failed", zap.Error(err))
		return
	}
	if delivered > 0 {
		sweepMetrics.AddRetried(delivered)
		s.log.Info("sweep delivered pending orders", zap.Int("delivered", delivered))
	}
}
