package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	catalogdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/clock"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/order/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Catalog catalogdomain.Repository
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	catalog catalogdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("order.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		catalog: p.Catalog,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	itemID, err := snowflake.ParseString(strings.TrimSpace(req.ItemID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	item, err := s.catalog.FindByID(ctx, s.db, itemID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	if !item.Active || item.Status == catalogdomain.ItemStatusSold {
		return nil, domain.ErrItemInactive
	}

	now := s.clock.Now()
	order := &domain.Order{
		ID:               s.genID.Generate().Int64(),
		UserID:           userID.Int64(),
		ItemID:           itemID.Int64(),
		Kind:             string(item.Kind),
		PlayerID:         strings.TrimSpace(req.PlayerID),
		Amount:           req.Amount,
		PaymentStatus:    domain.PaymentPending,
		Email:            strings.TrimSpace(req.Email),
		Phone:            strings.TrimSpace(req.Phone),
		IP:               strings.TrimSpace(req.IP),
		UserAgent:        req.UserAgent,
		EmailVerified:    req.EmailVerified,
		AccountCreatedAt: req.AccountCreatedAt,
		LoginAt:          req.LoginAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, s.db, order); err != nil {
		return nil, err
	}

	resp := toResponse(order)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	row, err := s.repo.FindRowByID(ctx, s.db, orderID.Int64())
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(&row.Order)
	attachViews(&resp, row)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	var cursor *domain.OrderCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339, decoded.CreatedAt)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.OrderCursor{ID: id.Int64(), CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	rows, err := s.repo.List(ctx, s.db, domain.ListFilter{
		PaymentStatus:  req.PaymentStatus,
		DeliveryStatus: req.DeliveryStatus,
		RiskStatus:     req.RiskStatus,
		Cursor:         cursor,
		Limit:          pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, int32(pageSize), func(row *domain.ListRow) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        snowflake.ID(row.ID).String(),
			CreatedAt: row.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(rows) > pageSize {
		rows = rows[:pageSize]
	}

	orders := make([]domain.Response, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		resp := toResponse(&row.Order)
		attachViews(&resp, row)
		orders = append(orders, resp)
	}

	resp := domain.ListResponse{Orders: orders}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func attachViews(resp *domain.Response, row *domain.ListRow) {
	if row.RiskStatus != nil {
		risk := domain.RiskView{Status: *row.RiskStatus}
		if row.RiskScore != nil {
			risk.Score = *row.RiskScore
		}
		if len(row.RiskReasons) > 0 {
			risk.Reasons = json.RawMessage(row.RiskReasons)
		}
		resp.Risk = &risk
	}
	if row.DeliveryStatus != nil {
		delivery := domain.DeliveryView{Status: *row.DeliveryStatus}
		if row.HoldReason != nil {
			delivery.HoldReason = *row.HoldReason
		}
		resp.Delivery = &delivery
	}
}

func toResponse(order *domain.Order) domain.Response {
	return domain.Response{
		ID:            snowflake.ID(order.ID).String(),
		UserID:        snowflake.ID(order.UserID).String(),
		ItemID:        snowflake.ID(order.ItemID).String(),
		Kind:          order.Kind,
		PlayerID:      order.PlayerID,
		Amount:        order.Amount,
		PaymentStatus: order.PaymentStatus,
		Email:         order.Email,
		Phone:         order.Phone,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}
