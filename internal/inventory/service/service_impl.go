package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/domain"
	catalogdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/clock"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/inventory/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/metrics"
	"github.com/mertlendinyurt-source/epinnew-sub000/pkg/db"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Catalog catalogdomain.Repository
	Audit   auditdomain.Service
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	catalog catalogdomain.Repository
	audit   auditdomain.Service
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("inventory.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		catalog: p.Catalog,
		audit:   p.Audit,
		metrics: p.Metrics,
	}
}

func (s *Service) Claim(ctx context.Context, req domain.ClaimRequest) (*domain.ClaimResult, error) {
	if existing, err := s.existingAssignment(ctx, req.OrderID); err != nil || existing != nil {
		return existing, err
	}

	item, err := s.catalog.FindByID(ctx, s.db, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}

	if item.Unlimited {
		if item.DefaultCredentials == nil || strings.TrimSpace(*item.DefaultCredentials) == "" {
			s.countClaim(ctx, "out_of_stock")
			return nil, domain.ErrOutOfStock
		}
		s.countClaim(ctx, "unlimited")
		return &domain.ClaimResult{Payload: *item.DefaultCredentials}, nil
	}

	// Contention is resolved by the conditional update: losing a unit to
	// a concurrent claimer just means selecting the next oldest one.
	for {
		candidate, err := s.repo.FindOldestAvailable(ctx, s.db, req.ItemID)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			s.countClaim(ctx, "out_of_stock")
			return nil, domain.ErrOutOfStock
		}

		won, err := s.repo.ClaimUnit(ctx, s.db, candidate.ID, req.OrderID, req.Actor, s.clock.Now())
		if err != nil {
			// A concurrent claim for the same order landed first; the
			// unique index on order_id rejects the second binding.
			if db.IsDuplicateKeyErr(err) {
				return s.existingAssignment(ctx, req.OrderID)
			}
			return nil, err
		}
		if !won {
			continue
		}

		s.countClaim(ctx, "assigned")
		s.markDrained(ctx, item)
		return &domain.ClaimResult{UnitID: &candidate.ID, Payload: candidate.Payload}, nil
	}
}

func (s *Service) ClaimSpecific(ctx context.Context, req domain.ClaimRequest, unitID int64) (*domain.ClaimResult, error) {
	if existing, err := s.existingAssignment(ctx, req.OrderID); err != nil || existing != nil {
		return existing, err
	}

	unit, err := s.repo.FindByID(ctx, s.db, unitID)
	if err != nil {
		return nil, err
	}
	if unit == nil || unit.ItemID != req.ItemID {
		return nil, domain.ErrUnitNotFound
	}
	if unit.Status == domain.UnitStatusAssigned {
		s.countClaim(ctx, "conflict")
		return nil, domain.ErrUnitConflict
	}

	won, err := s.repo.ClaimUnit(ctx, s.db, unitID, req.OrderID, req.Actor, s.clock.Now())
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return s.existingAssignment(ctx, req.OrderID)
		}
		return nil, err
	}
	if !won {
		s.countClaim(ctx, "conflict")
		return nil, domain.ErrUnitConflict
	}

	s.countClaim(ctx, "assigned")
	if item, err := s.catalog.FindByID(ctx, s.db, req.ItemID); err == nil && item != nil {
		s.markDrained(ctx, item)
	}
	return &domain.ClaimResult{UnitID: &unit.ID, Payload: unit.Payload}, nil
}

func (s *Service) AddUnits(ctx context.Context, req domain.AddUnitsRequest) ([]domain.Unit, error) {
	item, err := s.catalog.FindByID(ctx, s.db, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}

	now := s.clock.Now()
	units := make([]*domain.Unit, 0, len(req.Lines))
	for _, line := range req.Lines {
		payload := strings.TrimSpace(line)
		if payload == "" {
			continue
		}
		units = append(units, &domain.Unit{
			ID:        s.genID.Generate().Int64(),
			ItemID:    req.ItemID,
			Payload:   payload,
			Status:    domain.UnitStatusAvailable,
			CreatedBy: req.Actor,
			CreatedAt: now,
		})
	}
	if len(units) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	if err := s.repo.InsertBatch(ctx, s.db, units); err != nil {
		return nil, err
	}

	targetID := snowflake.ID(req.ItemID).String()
	_ = s.audit.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &req.Actor,
		auditdomain.ActionStockAdd, "item", &targetID, map[string]any{
			"added":   len(units),
			"skipped": len(req.Lines) - len(units),
		})

	out := make([]domain.Unit, 0, len(units))
	for _, unit := range units {
		out = append(out, *unit)
	}
	return out, nil
}

func (s *Service) DeleteUnit(ctx context.Context, itemID, unitID int64) error {
	unit, err := s.repo.FindByID(ctx, s.db, unitID)
	if err != nil {
		return err
	}
	if unit == nil || unit.ItemID != itemID {
		return domain.ErrUnitNotFound
	}
	if unit.Status == domain.UnitStatusAssigned {
		return domain.ErrUnitAssigned
	}

	deleted, err := s.repo.DeleteAvailable(ctx, s.db, unitID)
	if err != nil {
		return err
	}
	if !deleted {
		// Assigned between the read and the delete.
		return domain.ErrUnitAssigned
	}

	targetID := snowflake.ID(unitID).String()
	_ = s.audit.AuditLog(ctx, "", nil,
		auditdomain.ActionStockDelete, "unit", &targetID, map[string]any{
			"item_id": snowflake.ID(itemID).String(),
		})
	return nil
}

func (s *Service) Stock(ctx context.Context, itemID int64) (*domain.StockView, error) {
	item, err := s.catalog.FindByID(ctx, s.db, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}

	summary, err := s.repo.Summary(ctx, s.db, itemID)
	if err != nil {
		return nil, err
	}
	available, err := s.repo.ListAvailable(ctx, s.db, itemID)
	if err != nil {
		return nil, err
	}

	return &domain.StockView{Summary: summary, Available: available}, nil
}

func (s *Service) existingAssignment(ctx context.Context, orderID int64) (*domain.ClaimResult, error) {
	existing, err := s.repo.FindAssignedByOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	s.countClaim(ctx, "idempotent")
	return &domain.ClaimResult{UnitID: &existing.ID, Payload: existing.Payload}, nil
}

// markDrained flips account items to sold once the pool empties.
func (s *Service) markDrained(ctx context.Context, item *catalogdomain.Item) {
	if item.Unlimited || item.Kind != catalogdomain.KindAccount {
		return
	}
	summary, err := s.repo.Summary(ctx, s.db, item.ID)
	if err != nil {
		s.log.Warn("stock summary failed after claim", zap.Int64("item_id", item.ID), zap.Error(err))
		return
	}
	if summary.Available > 0 {
		return
	}
	if err := s.catalog.MarkSoldOut(ctx, s.db, item.ID); err != nil {
		s.log.Warn("failed to mark item sold out", zap.Int64("item_id", item.ID), zap.Error(err))
	}
}

func (s *Service) countClaim(ctx context.Context, result string) {
	if s.metrics == nil {
		return
	}
	metrics.Add(ctx, s.metrics.StockClaims, 1, attribute.String("result", result))
}
