package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/clock"
	"github.com/mertlendinyurt-source/epinnew-sub000/pkg/db"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	kind := domain.ItemKind(strings.TrimSpace(req.Kind))
	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}

	itemSlug := strings.TrimSpace(req.Slug)
	if itemSlug == "" {
		itemSlug = slug.Make(name)
	} else {
		itemSlug = slug.Make(itemSlug)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	var credentials *string
	if req.DefaultCredentials != nil {
		trimmed := strings.TrimSpace(*req.DefaultCredentials)
		if trimmed != "" {
			credentials = &trimmed
		}
	}

	now := s.clock.Now()
	item := &domain.Item{
		ID:                 s.genID.Generate().Int64(),
		Slug:               itemSlug,
		Name:               name,
		Kind:               kind,
		PriceTRY:           req.PriceTRY,
		Active:             active,
		Unlimited:          req.Unlimited,
		DefaultCredentials: credentials,
		Status:             domain.ItemStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.Metadata != nil {
		item.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Create(ctx, s.db, item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, idOrSlug string) (*domain.Response, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, domain.ErrInvalidID
	}

	var item *domain.Item
	var err error
	if id, parseErr := snowflake.ParseString(idOrSlug); parseErr == nil {
		item, err = s.repo.FindByID(ctx, s.db, id.Int64())
	} else {
		item, err = s.repo.FindBySlug(ctx, s.db, idOrSlug)
	}
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListFilter{Active: req.Active}
	if kind := domain.ItemKind(strings.TrimSpace(req.Kind)); kind != "" {
		if !kind.Valid() {
			return nil, domain.ErrInvalidKind
		}
		filter.Kind = kind
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, s.toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.PriceTRY != nil {
		item.PriceTRY = *req.PriceTRY
	}
	if req.Active != nil {
		item.Active = *req.Active
	}
	if req.Unlimited != nil {
		item.Unlimited = *req.Unlimited
	}
	if req.DefaultCredentials != nil {
		trimmed := strings.TrimSpace(*req.DefaultCredentials)
		if trimmed == "" {
			item.DefaultCredentials = nil
		} else {
			item.DefaultCredentials = &trimmed
		}
	}
	if req.Metadata != nil {
		item.Metadata = datatypes.JSONMap(req.Metadata)
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) MarkSoldOut(ctx context.Context, id string) error {
	itemID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}
	return s.repo.MarkSoldOut(ctx, s.db, itemID.Int64())
}

func (s *Service) toResponse(item *domain.Item) domain.Response {
	resp := domain.Response{
		ID:                 snowflake.ID(item.ID).String(),
		Slug:               item.Slug,
		Name:               item.Name,
		Kind:               item.Kind,
		PriceTRY:           item.PriceTRY,
		Active:             item.Active,
		Unlimited:          item.Unlimited,
		DefaultCredentials: item.DefaultCredentials,
		SalesCount:         item.SalesCount,
		Status:             item.Status,
		CreatedAt:          item.CreatedAt,
		UpdatedAt:          item.UpdatedAt,
	}
	if len(item.Metadata) > 0 {
		resp.Metadata = map[string]any(item.Metadata)
	}
	return resp
}
