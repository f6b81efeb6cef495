package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/repository"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/clock"
)

func setupCatalog(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	if err := db.AutoMigrate(&domain.Item{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, fake
}

func TestCreateItemGeneratesSlug(t *testing.T) {
	svc, fake := setupCatalog(t)

	resp, err := svc.Create(context.Background(), domain.CreateRequest{
		Name:     "Knight Online 1000 GB",
		Kind:     string(domain.KindCurrencyPackage),
		PriceTRY: 450,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Slug != "knight-online-1000-gb" {
		t.Fatalf("unexpected slug %q", resp.Slug)
	}
	if !resp.CreatedAt.Equal(fake.Now()) {
		t.Fatalf("expected clock timestamp, got %s", resp.CreatedAt)
	}
	if !resp.Active {
		t.Fatal("new items default to active")
	}
	if resp.Status != domain.ItemStatusActive {
		t.Fatalf("unexpected status %s", resp.Status)
	}
}

func TestCreateItemValidation(t *testing.T) {
	svc, _ := setupCatalog(t)

	if _, err := svc.Create(context.Background(), domain.CreateRequest{Name: "  ", Kind: string(domain.KindAccount)}); !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := svc.Create(context.Background(), domain.CreateRequest{Name: "Thing", Kind: "subscription"}); !errors.Is(err, domain.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestCreateItemDuplicateSlug(t *testing.T) {
	svc, _ := setupCatalog(t)

	req := domain.CreateRequest{
		Name:     "Valorant Points",
		Kind:     string(domain.KindCurrencyPackage),
		PriceTRY: 250,
	}
	if _, err := svc.Create(context.Background(), req); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(context.Background(), req); !errors.Is(err, domain.ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestGetItemByIDAndSlug(t *testing.T) {
	svc, _ := setupCatalog(t)

	created, err := svc.Create(context.Background(), domain.CreateRequest{
		Name:     "Steam Account",
		Kind:     string(domain.KindAccount),
		PriceTRY: 900,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	byID, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.ID != created.ID {
		t.Fatalf("expected %s, got %s", created.ID, byID.ID)
	}

	bySlug, err := svc.Get(context.Background(), "steam-account")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if bySlug.ID != created.ID {
		t.Fatalf("expected %s, got %s", created.ID, bySlug.ID)
	}

	if _, err := svc.Get(context.Background(), "no-such-item"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListItemsFilters(t *testing.T) {
	svc, _ := setupCatalog(t)

	inactive := false
	if _, err := svc.Create(context.Background(), domain.CreateRequest{
		Name: "Active Gold", Kind: string(domain.KindCurrencyPackage), PriceTRY: 100,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(context.Background(), domain.CreateRequest{
		Name: "Retired Account", Kind: string(domain.KindAccount), PriceTRY: 100, Active: &inactive,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	active := true
	items, err := svc.List(context.Background(), domain.ListRequest{Active: &active})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Active Gold" {
		t.Fatalf("unexpected active listing: %+v", items)
	}

	accounts, err := svc.List(context.Background(), domain.ListRequest{Kind: string(domain.KindAccount)})
	if err != nil {
		t.Fatalf("list kind: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Name != "Retired Account" {
		t.Fatalf("unexpected kind listing: %+v", accounts)
	}

	if _, err := svc.List(context.Background(), domain.ListRequest{Kind: "giftcard"}); !errors.Is(err, domain.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestUpdateItemPartialFields(t *testing.T) {
	svc, fake := setupCatalog(t)

	created, err := svc.Create(context.Background(), domain.CreateRequest{
		Name:     "PUBG UC",
		Kind:     string(domain.KindCurrencyPackage),
		PriceTRY: 300,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	fake.Advance(time.Minute)
	price := int64(350)
	inactive := false
	updated, err := svc.Update(context.Background(), domain.UpdateRequest{
		ID:       created.ID,
		PriceTRY: &price,
		Active:   &inactive,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PriceTRY != 350 || updated.Active {
		t.Fatalf("update not applied: %+v", updated)
	}
	if !updated.UpdatedAt.Equal(fake.Now()) {
		t.Fatalf("expected advanced clock timestamp, got %s", updated.UpdatedAt)
	}
	if updated.Name != "PUBG UC" {
		t.Fatalf("untouched field changed: %q", updated.Name)
	}

	empty := "   "
	if _, err := svc.Update(context.Background(), domain.UpdateRequest{ID: created.ID, Name: &empty}); !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := svc.Update(context.Background(), domain.UpdateRequest{ID: "999999999999"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkSoldOutSkipsUnlimited(t *testing.T) {
	svc, _ := setupCatalog(t)

	creds := "universal-code"
	limited, err := svc.Create(context.Background(), domain.CreateRequest{
		Name: "Pooled Account", Kind: string(domain.KindAccount), PriceTRY: 100,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	unlimited, err := svc.Create(context.Background(), domain.CreateRequest{
		Name: "Evergreen Pack", Kind: string(domain.KindCurrencyPackage), PriceTRY: 100,
		Unlimited: true, DefaultCredentials: &creds,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.MarkSoldOut(context.Background(), limited.ID); err != nil {
		t.Fatalf("mark sold: %v", err)
	}
	if err := svc.MarkSoldOut(context.Background(), unlimited.ID); err != nil {
		t.Fatalf("mark sold unlimited: %v", err)
	}

	got, err := svc.Get(context.Background(), limited.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.ItemStatusSold {
		t.Fatalf("expected sold, got %s", got.Status)
	}

	ever, err := svc.Get(context.Background(), unlimited.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ever.Status != domain.ItemStatusActive {
		t.Fatalf("unlimited item must stay active, got %s", ever.Status)
	}
}
