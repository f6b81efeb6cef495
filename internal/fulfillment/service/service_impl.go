package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/masking"
	catalogdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/clock"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/config"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/fulfillment/domain"
	inventorydomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/inventory/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/metrics"
	orderdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/order/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/providers/email"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/ratelimit"
	riskdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/risk/domain"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Cfg       config.Config
	Repo      domain.Repository
	Orders    orderdomain.Repository
	Catalog   catalogdomain.Repository
	Risk      riskdomain.Service
	Inventory inventorydomain.Service
	Audit     auditdomain.Service
	Email     email.Provider
	Metrics   *metrics.Metrics           `optional:"true"`
	Limiter   *ratelimit.CheckoutLimiter `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	cfg       config.FulfillmentConfig
	repo      domain.Repository
	orders    orderdomain.Repository
	catalog   catalogdomain.Repository
	risk      riskdomain.Service
	inventory inventorydomain.Service
	audit     auditdomain.Service
	email     email.Provider
	metrics   *metrics.Metrics
	limiter   *ratelimit.CheckoutLimiter
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("fulfillment.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		cfg:       p.Cfg.Fulfillment,
		repo:      p.Repo,
		orders:    p.Orders,
		catalog:   p.Catalog,
		risk:      p.Risk,
		inventory: p.Inventory,
		audit:     p.Audit,
		email:     p.Email,
		metrics:   p.Metrics,
		limiter:   p.Limiter,
	}
}

func (s *Service) HandlePaid(ctx context.Context, orderID int64) (*domain.Delivery, error) {
	order, err := s.paidOrder(ctx, orderID, true)
	if err != nil {
		return nil, err
	}

	if s.limiter.Enabled() {
		token, locked, err := s.limiter.TryLockOrder(ctx, snowflake.ID(orderID).String())
		if err != nil {
			s.log.Warn("order lock unavailable, relying on conditional updates", zap.Error(err))
		} else if locked {
			defer func() {
				_ = s.limiter.ReleaseOrder(ctx, snowflake.ID(orderID).String(), token)
			}()
		}
	}

	delivery, err := s.ensureDelivery(ctx, order)
	if err != nil {
		return nil, err
	}
	if delivery.Status.Terminal() || delivery.Status == domain.DeliveryHold {
		// Delivered and cancelled are final; held orders wait for an
		// admin decision, not for another callback.
		return delivery, nil
	}

	if order.Amount >= s.cfg.VerificationThreshold {
		if _, err := s.risk.GetAssessment(ctx, order.ID); errors.Is(err, riskdomain.ErrAssessmentNotFound) {
			return s.holdForVerification(ctx, order, delivery)
		} else if err != nil {
			return nil, err
		}
	}

	return s.scoreAndFulfill(ctx, order, delivery, "system")
}

func (s *Service) Approve(ctx context.Context, orderID int64, actor, note string) (*domain.Delivery, error) {
	order, err := s.paidOrder(ctx, orderID, false)
	if err != nil {
		return nil, err
	}

	delivery, err := s.repo.FindByOrder(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, domain.ErrDeliveryNotFound
	}
	switch delivery.Status {
	case domain.DeliveryDelivered:
		return nil, domain.ErrAlreadyDelivered
	case domain.DeliveryCancelled:
		return nil, domain.ErrDeliveryCancelled
	}
	if domain.HoldReason(delivery.HoldReason) == domain.HoldVerificationRequired {
		// Verification holds have their own decision endpoint.
		return nil, domain.ErrPolicy
	}

	assessment, err := s.risk.GetAssessment(ctx, order.ID)
	if err != nil && !errors.Is(err, riskdomain.ErrAssessmentNotFound) {
		return nil, err
	}
	if assessment != nil && s.liveStatus(assessment) == riskdomain.StatusBlocked && note == "" {
		// A blocked order is only released with an explicit override
		// note, never silently.
		return nil, domain.ErrPolicy
	}

	delivered, err := s.deliver(ctx, order, delivery, actor)
	if err != nil {
		return nil, err
	}

	targetID := snowflake.ID(order.ID).String()
	meta := map[string]any{"previous_status": string(delivery.Status)}
	if note != "" {
		meta["note"] = note
	}
	if assessment != nil {
		meta["risk_status"] = string(s.liveStatus(assessment))
	}
	_ = s.audit.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actor,
		auditdomain.ActionOrderManualApprove, "order", &targetID, meta)

	return delivered, nil
}

func (s *Service) AssignUnit(ctx context.Context, orderID, unitID int64, actor string) (*domain.Delivery, error) {
	order, err := s.paidOrder(ctx, orderID, false)
	if err != nil {
		return nil, err
	}

	delivery, err := s.repo.FindByOrder(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, domain.ErrDeliveryNotFound
	}
	if delivery.Status == domain.DeliveryDelivered {
		return delivery, nil
	}
	if delivery.Status == domain.DeliveryCancelled {
		return nil, domain.ErrDeliveryCancelled
	}
	if domain.HoldReason(delivery.HoldReason) == domain.HoldVerificationRequired {
		return nil, domain.ErrPolicy
	}

	assessment, err := s.risk.GetAssessment(ctx, order.ID)
	if err != nil && !errors.Is(err, riskdomain.ErrAssessmentNotFound) {
		return nil, err
	}
	if assessment != nil && s.liveStatus(assessment) == riskdomain.StatusBlocked {
		return nil, domain.ErrPolicy
	}

	claim, err := s.inventory.ClaimSpecific(ctx, inventorydomain.ClaimRequest{
		OrderID: order.ID,
		ItemID:  order.ItemID,
		Actor:   actor,
	}, unitID)
	if err != nil {
		return nil, err
	}

	delivered, err := s.finishDelivery(ctx, order, delivery, claim, actor)
	if err != nil {
		return nil, err
	}

	targetID := snowflake.ID(order.ID).String()
	_ = s.audit.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actor,
		auditdomain.ActionStockAssign, "order", &targetID, map[string]any{
			"unit_id": snowflake.ID(unitID).String(),
			"payload": masking.MaskSecret(claim.Payload),
		})

	return delivered, nil
}

func (s *Service) Refund(ctx context.Context, orderID int64, reason, actor string) (*domain.Delivery, error) {
	order, err := s.orders.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	now := s.clock.Now()
	delivery, err := s.repo.FindByOrder(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		delivery = &domain.Delivery{
			ID:        s.genID.Generate().Int64(),
			OrderID:   order.ID,
			Status:    domain.DeliveryCancelled,
			Message:   reason,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, s.db, delivery); err != nil {
			return nil, err
		}
	} else if delivery.Status != domain.DeliveryCancelled {
		// Refunding a delivered order is allowed; the assigned unit
		// stays assigned either way.
		if _, err := s.repo.MarkCancelled(ctx, s.db, order.ID, delivery.Status, reason, now); err != nil {
			return nil, err
		}
	}

	if err := s.orders.MarkRefunded(ctx, s.db, order.ID, now); err != nil {
		return nil, err
	}

	targetID := snowflake.ID(order.ID).String()
	_ = s.audit.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actor,
		auditdomain.ActionOrderManualRefund, "order", &targetID, map[string]any{
			"reason":          reason,
			"previous_status": string(delivery.Status),
		})

	return s.repo.FindByOrder(ctx, s.db, order.ID)
}

func (s *Service) VerifyHighValue(ctx context.Context, orderID int64, approve bool, actor string) (*domain.Delivery, error) {
	order, err := s.paidOrder(ctx, orderID, false)
	if err != nil {
		return nil, err
	}

	delivery, err := s.repo.FindByOrder(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, domain.ErrDeliveryNotFound
	}
	if delivery.Status != domain.DeliveryHold ||
		domain.HoldReason(delivery.HoldReason) != domain.HoldVerificationRequired {
		return nil, domain.ErrNotVerification
	}

	now := s.clock.Now()
	targetID := snowflake.ID(order.ID).String()

	if !approve {
		if _, err := s.repo.MarkCancelled(ctx, s.db, order.ID, domain.DeliveryHold, "verification rejected", now); err != nil {
			return nil, err
		}
		if err := s.orders.MarkRefunded(ctx, s.db, order.ID, now); err != nil {
			return nil, err
		}
		_ = s.audit.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actor,
			auditdomain.ActionOrderVerificationReject, "order", &targetID, nil)
		return s.repo.FindByOrder(ctx, s.db, order.ID)
	}

	moved, err := s.repo.MarkPending(ctx, s.db, order.ID, domain.DeliveryHold, now)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, domain.ErrInvalidTransition
	}
	delivery.Status = domain.DeliveryPending
	delivery.HoldReason = ""

	_ = s.audit.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actor,
		auditdomain.ActionOrderVerificationApprove, "order", &targetID, nil)

	return s.scoreAndFulfill(ctx, order, delivery, actor)
}

func (s *Service) RetryPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	pending, err := s.repo.ListPendingPaid(ctx, s.db, limit)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, row := range pending {
		result, err := s.HandlePaid(ctx, row.OrderID)
		if err != nil {
			s.log.Warn("pending delivery retry failed",
				zap.Int64("order_id", row.OrderID), zap.Error(err))
			continue
		}
		if result != nil && result.Status == domain.DeliveryDelivered {
			delivered++
		}
	}
	return delivered, nil
}

// paidOrder loads the order and enforces payment state. When accepting
// callbacks, a pending order is promoted to paid.
func (s *Service) paidOrder(ctx context.Context, orderID int64, promote bool) (*orderdomain.Order, error) {
	order, err := s.orders.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	switch order.PaymentStatus {
	case orderdomain.PaymentPaid:
		return order, nil
	case orderdomain.PaymentPending:
		if !promote {
			return nil, domain.ErrOrderNotPaid
		}
		moved, err := s.orders.PromotePaid(ctx, s.db, order.ID, s.clock.Now())
		if err != nil {
			return nil, err
		}
		if !moved {
			// Lost to a concurrent refund or callback; trust the row.
			fresh, err := s.orders.FindByID(ctx, s.db, order.ID)
			if err != nil {
				return nil, err
			}
			if fresh == nil || fresh.PaymentStatus != orderdomain.PaymentPaid {
				return nil, domain.ErrOrderNotPaid
			}
			return fresh, nil
		}
		order.PaymentStatus = orderdomain.PaymentPaid
		return order, nil
	default:
		return nil, domain.ErrOrderNotPaid
	}
}

func (s *Service) ensureDelivery(ctx context.Context, order *orderdomain.Order) (*domain.Delivery, error) {
	delivery, err := s.repo.FindByOrder(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	if delivery != nil {
		return delivery, nil
	}

	now := s.clock.Now()
	delivery = &domain.Delivery{
		ID:        s.genID.Generate().Int64(),
		OrderID:   order.ID,
		Status:    domain.DeliveryPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, delivery); err != nil {
		// A concurrent callback may have created it first.
		if existing, findErr := s.repo.FindByOrder(ctx, s.db, order.ID); findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return delivery, nil
}

func (s *Service) holdForVerification(ctx context.Context, order *orderdomain.Order, delivery *domain.Delivery) (*domain.Delivery, error) {
	now := s.clock.Now()
	message := fmt.Sprintf("amount %d at or over verification threshold %d", order.Amount, s.cfg.VerificationThreshold)
	moved, err := s.repo.MarkHold(ctx, s.db, order.ID, delivery.Status, domain.HoldVerificationRequired, message, now)
	if err != nil {
		return nil, err
	}
	if moved {
		s.countHold(ctx, domain.HoldVerificationRequired)
		s.notify(order, "verification_required", nil)
	}
	return s.repo.FindByOrder(ctx, s.db, order.ID)
}

func (s *Service) scoreAndFulfill(ctx context.Context, order *orderdomain.Order, delivery *domain.Delivery, actor string) (*domain.Delivery, error) {
	assessment, err := s.risk.Assess(ctx, riskdomain.AssessRequest{
		OrderID:  order.ID,
		UserID:   order.UserID,
		PlayerID: order.PlayerID,
		Input: riskdomain.OrderInput{
			Amount:    order.Amount,
			Email:     order.Email,
			Phone:     order.Phone,
			IP:        order.IP,
			UserAgent: order.UserAgent,
		},
		EmailVerified:    order.EmailVerified,
		AccountCreatedAt: order.AccountCreatedAt,
		LoginAt:          order.LoginAt,
	})
	if err != nil {
		return nil, err
	}

	if assessment.TestMode && assessment.Status != riskdomain.StatusClean {
		// A test-mode verdict must never gate a live order. Inconsistent
		// rows fail closed rather than silently delivering.
		return nil, domain.ErrPolicy
	}

	settings, err := s.risk.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	switch assessment.Status {
	case riskdomain.StatusClean:
		return s.deliverQuiet(ctx, order, delivery, actor)
	case riskdomain.StatusSuspicious:
		if settings.SuspiciousAutoApprove {
			return s.deliverQuiet(ctx, order, delivery, actor)
		}
		return s.holdForRisk(ctx, order, delivery, assessment, domain.HoldRiskSuspicious)
	case riskdomain.StatusFlagged:
		return s.holdForRisk(ctx, order, delivery, assessment, domain.HoldRiskFlagged)
	case riskdomain.StatusBlocked:
		return s.holdForRisk(ctx, order, delivery, assessment, domain.HoldRiskBlocked)
	default:
		return nil, fmt.Errorf("unknown risk status %q", assessment.Status)
	}
}

func (s *Service) holdForRisk(ctx context.Context, order *orderdomain.Order, delivery *domain.Delivery, assessment *riskdomain.Assessment, reason domain.HoldReason) (*domain.Delivery, error) {
	now := s.clock.Now()
	message := fmt.Sprintf("risk score %d", assessment.Score)
	moved, err := s.repo.MarkHold(ctx, s.db, order.ID, delivery.Status, reason, message, now)
	if err != nil {
		return nil, err
	}
	if moved {
		s.countHold(ctx, reason)
		targetID := snowflake.ID(order.ID).String()
		_ = s.audit.AuditLog(ctx, string(auditdomain.ActorTypeSystem), nil,
			auditdomain.ActionOrderRiskFlag, "order", &targetID, map[string]any{
				"score":       assessment.Score,
				"risk_status": string(assessment.Status),
				"hold_reason": string(reason),
			})
		s.notify(order, "delivery_hold", nil)
	}
	return s.repo.FindByOrder(ctx, s.db, order.ID)
}

// deliverQuiet claims stock and swallows out-of-stock: the delivery
// simply stays pending until restock.
func (s *Service) deliverQuiet(ctx context.Context, order *orderdomain.Order, delivery *domain.Delivery, actor string) (*domain.Delivery, error) {
	result, err := s.deliver(ctx, order, delivery, actor)
	if errors.Is(err, inventorydomain.ErrOutOfStock) {
		s.log.Info("no stock available, delivery stays pending",
			zap.Int64("order_id", order.ID), zap.Int64("item_id", order.ItemID))
		return s.repo.FindByOrder(ctx, s.db, order.ID)
	}
	return result, err
}

func (s *Service) deliver(ctx context.Context, order *orderdomain.Order, delivery *domain.Delivery, actor string) (*domain.Delivery, error) {
	claim, err := s.inventory.Claim(ctx, inventorydomain.ClaimRequest{
		OrderID: order.ID,
		ItemID:  order.ItemID,
		Actor:   actor,
	})
	if err != nil {
		return nil, err
	}
	return s.finishDelivery(ctx, order, delivery, claim, actor)
}

func (s *Service) finishDelivery(ctx context.Context, order *orderdomain.Order, delivery *domain.Delivery, claim *inventorydomain.ClaimResult, actor string) (*domain.Delivery, error) {
	now := s.clock.Now()
	moved, err := s.repo.MarkDelivered(ctx, s.db, order.ID, delivery.Status, claim.UnitID, claim.Payload, actor, now)
	if err != nil {
		return nil, err
	}
	if !moved {
		// Lost the transition race; the other actor's result stands.
		return s.repo.FindByOrder(ctx, s.db, order.ID)
	}

	if err := s.catalog.IncrementSales(ctx, s.db, order.ItemID); err != nil {
		s.log.Warn("failed to bump sales count", zap.Int64("item_id", order.ItemID), zap.Error(err))
	}
	if s.metrics != nil {
		metrics.Add(ctx, s.metrics.Deliveries, 1, attribute.String("item_kind", order.Kind))
	}

	s.notify(order, "delivery_complete", &claim.Payload)
	return s.repo.FindByOrder(ctx, s.db, order.ID)
}

func (s *Service) countHold(ctx context.Context, reason domain.HoldReason) {
	if s.metrics == nil {
		return
	}
	metrics.Add(ctx, s.metrics.DeliveriesHeld, 1, attribute.String("hold_reason", string(reason)))
}

func (s *Service) liveStatus(assessment *riskdomain.Assessment) riskdomain.Status {
	if assessment.TestMode && assessment.ActualStatus != nil {
		return *assessment.ActualStatus
	}
	return assessment.Status
}
