package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	auditdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/auditcontext"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/clock"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/config"
	fulfillmentdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/fulfillment/domain"
)

type fulfillmentStub struct {
	mu         sync.Mutex
	limits     []int
	actorTypes []string
	actors     []string
	delivered  int
	err        error
}

func (f *fulfillmentStub) HandlePaid(ctx context.Context, orderID int64) (*fulfillmentdomain.Delivery, error) {
	return nil, errors.New("not implemented")
}

func (f *fulfillmentStub) Approve(ctx context.Context, orderID int64, actor, note string) (*fulfillmentdomain.Delivery, error) {
	return nil, errors.New("not implemented")
}

func (f *fulfillmentStub) AssignUnit(ctx context.Context, orderID, unitID int64, actor string) (*fulfillmentdomain.Delivery, error) {
	return nil, errors.New("not implemented")
}

func (f *fulfillmentStub) Refund(ctx context.Context, orderID int64, reason, actor string) (*fulfillmentdomain.Delivery, error) {
	return nil, errors.New("not implemented")
}

func (f *fulfillmentStub) VerifyHighValue(ctx context.Context, orderID int64, approve bool, actor string) (*fulfillmentdomain.Delivery, error) {
	return nil, errors.New("not implemented")
}

func (f *fulfillmentStub) RetryPending(ctx context.Context, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	actorType, actorID := auditcontext.ActorFromContext(ctx)
	f.actorTypes = append(f.actorTypes, actorType)
	f.actors = append(f.actors, actorID)
	return f.delivered, f.err
}

func newSweeper(t *testing.T, stub *fulfillmentStub, cfg config.FulfillmentConfig) *Sweeper {
	t.Helper()
	return New(Params{
		Log:         zap.NewNop(),
		Clock:       clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Cfg:         config.Config{Fulfillment: cfg},
		Fulfillment: stub,
	})
}

func TestRunOncePassesBatchAndActor(t *testing.T) {
	stub := &fulfillmentStub{delivered: 2}
	s := newSweeper(t, stub, config.FulfillmentConfig{SweeperBatch: 25})

	s.RunOnce(context.Background())

	if len(stub.limits) != 1 || stub.limits[0] != 25 {
		t.Fatalf("unexpected limits %v", stub.limits)
	}
	if stub.actors[0] != "sweeper" {
		t.Fatalf("expected sweeper actor, got %q", stub.actors[0])
	}
}

func TestRunOnceDefaultsBatch(t *testing.T) {
	stub := &fulfillmentStub{}
	s := newSweeper(t, stub, config.FulfillmentConfig{})

	s.RunOnce(context.Background())

	if len(stub.limits) != 1 || stub.limits[0] != 50 {
		t.Fatalf("unexpected limits %v", stub.limits)
	}
}

func TestRunOnceSurvivesRetryError(t *testing.T) {
	stub := &fulfillmentStub{err: errors.New("db gone")}
	s := newSweeper(t, stub, config.FulfillmentConfig{SweeperBatch: 10})

	s.RunOnce(context.Background())
	s.RunOnce(context.Background())

	if len(stub.limits) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(stub.limits))
	}
}

func TestRunOnceSetsSystemActorType(t *testing.T) {
	stub := &fulfillmentStub{}
	s := newSweeper(t, stub, config.FulfillmentConfig{SweeperBatch: 5})

	s.RunOnce(context.Background())

	if stub.actorTypes[0] != string(auditdomain.ActorTypeSystem) {
		t.Fatalf("expected system actor type, got %q", stub.actorTypes[0])
	}
	if stub.actors[0] != "sweeper" {
		t.Fatalf("expected sweeper actor id, got %q", stub.actors[0])
	}
}
