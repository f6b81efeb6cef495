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
	"gorm.io/datatypes"
	"gorm.io/gorm"

	catalogdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/domain"
	catalogrepository "github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/repository"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/clock"
	fulfillmentdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/fulfillment/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/order/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/order/repository"
	riskdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/risk/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/pkg/db/pagination"
)

type orderHarness struct {
	svc   domain.Service
	repo  domain.Repository
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
}

func setupOrders(t *testing.T) *orderHarness {
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

	if err := db.AutoMigrate(
		&catalogdomain.Item{},
		&domain.Order{},
		&riskdomain.Assessment{},
		&fulfillmentdomain.Delivery{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := repository.Provide()

	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fake,
		Repo:    repo,
		Catalog: catalogrepository.Provide(),
	})

	return &orderHarness{svc: svc, repo: repo, db: db, node: node, clock: fake}
}

func (h *orderHarness) seedItem(t *testing.T, active bool, status catalogdomain.ItemStatus) int64 {
	t.Helper()

	item := &catalogdomain.Item{
		ID:        h.node.Generate().Int64(),
		Slug:      fmt.Sprintf("item-%d", h.node.Generate().Int64()),
		Name:      "Gold Pack",
		Kind:      catalogdomain.KindCurrencyPackage,
		PriceTRY:  250,
		Active:    active,
		Status:    status,
		CreatedAt: h.clock.Now(),
		UpdatedAt: h.clock.Now(),
	}
	if err := h.db.Create(item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item.ID
}

func (h *orderHarness) createOrder(t *testing.T, itemID int64) *domain.Response {
	t.Helper()

	resp, err := h.svc.Create(context.Background(), domain.CreateRequest{
		UserID: h.node.Generate().String(),
		ItemID: snowflake.ID(itemID).String(),
		Amount: 250,
		Email:  "buyer@example.com",
		Phone:  "+905321234567",
		IP:     "203.0.113.10",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return resp
}

func TestCreateOrderValidations(t *testing.T) {
	h := setupOrders(t)
	itemID := h.seedItem(t, true, catalogdomain.ItemStatusActive)
	item := snowflake.ID(itemID).String()
	user := h.node.Generate().String()

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"empty user", domain.CreateRequest{ItemID: item, Amount: 100}, domain.ErrInvalidUser},
		{"garbage user", domain.CreateRequest{UserID: "abc", ItemID: item, Amount: 100}, domain.ErrInvalidUser},
		{"garbage item", domain.CreateRequest{UserID: user, ItemID: "abc", Amount: 100}, domain.ErrInvalidID},
		{"zero amount", domain.CreateRequest{UserID: user, ItemID: item, Amount: 0}, domain.ErrInvalidAmount},
		{"negative amount", domain.CreateRequest{UserID: user, ItemID: item, Amount: -5}, domain.ErrInvalidAmount},
		{"unknown item", domain.CreateRequest{UserID: user, ItemID: "123456789012345", Amount: 100}, domain.ErrItemNotFound},
	}
	for _, tc := range cases {
		if _, err := h.svc.Create(context.Background(), tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreateOrderRejectsUnsellableItems(t *testing.T) {
	h := setupOrders(t)

	inactive := h.seedItem(t, false, catalogdomain.ItemStatusActive)
	sold := h.seedItem(t, true, catalogdomain.ItemStatusSold)
	user := h.node.Generate().String()

	// Guard against column defaults resurrecting the seeded row as active.
	var activeRows int64
	if err := h.db.Raw(`SELECT COUNT(*) FROM items WHERE id = ? AND active = true`, inactive).Scan(&activeRows).Error; err != nil {
		t.Fatalf("inspect seed: %v", err)
	}
	if activeRows != 0 {
		t.Fatalf("inactive seed landed active")
	}

	for _, itemID := range []int64{inactive, sold} {
		_, err := h.svc.Create(context.Background(), domain.CreateRequest{
			UserID: user,
			ItemID: snowflake.ID(itemID).String(),
			Amount: 100,
		})
		if !errors.Is(err, domain.ErrItemInactive) {
			t.Fatalf("expected ErrItemInactive, got %v", err)
		}
	}
}

func TestCreateOrderStartsPendingPayment(t *testing.T) {
	h := setupOrders(t)
	itemID := h.seedItem(t, true, catalogdomain.ItemStatusActive)

	resp := h.createOrder(t, itemID)
	if resp.PaymentStatus != domain.PaymentPending {
		t.Fatalf("expected pending payment, got %s", resp.PaymentStatus)
	}
	if resp.Kind != string(catalogdomain.KindCurrencyPackage) {
		t.Fatalf("kind not copied from item: %q", resp.Kind)
	}
	if resp.ItemID != snowflake.ID(itemID).String() {
		t.Fatalf("unexpected item id %s", resp.ItemID)
	}
}

func TestGetOrderAttachesRiskAndDeliveryViews(t *testing.T) {
	h := setupOrders(t)
	itemID := h.seedItem(t, true, catalogdomain.ItemStatusActive)
	resp := h.createOrder(t, itemID)

	orderID, err := snowflake.ParseString(resp.ID)
	if err != nil {
		t.Fatalf("parse id: %v", err)
	}

	flagged := riskdomain.Assessment{
		ID:        h.node.Generate().Int64(),
		OrderID:   orderID.Int64(),
		Score:     70,
		Reasons:   datatypes.JSON(`[{"code":"disposable_email","points":40}]`),
		Status:    riskdomain.StatusFlagged,
		CreatedAt: h.clock.Now(),
	}
	if err := h.db.Create(&flagged).Error; err != nil {
		t.Fatalf("seed assessment: %v", err)
	}
	hold := fulfillmentdomain.Delivery{
		ID:         h.node.Generate().Int64(),
		OrderID:    orderID.Int64(),
		Status:     fulfillmentdomain.DeliveryHold,
		HoldReason: string(fulfillmentdomain.HoldRiskFlagged),
		CreatedAt:  h.clock.Now(),
		UpdatedAt:  h.clock.Now(),
	}
	if err := h.db.Create(&hold).Error; err != nil {
		t.Fatalf("seed delivery: %v", err)
	}

	got, err := h.svc.Get(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Risk == nil || got.Risk.Score != 70 || got.Risk.Status != string(riskdomain.StatusFlagged) {
		t.Fatalf("risk view missing or wrong: %+v", got.Risk)
	}
	if len(got.Risk.Reasons) == 0 {
		t.Fatal("risk reasons not attached")
	}
	if got.Delivery == nil || got.Delivery.Status != string(fulfillmentdomain.DeliveryHold) {
		t.Fatalf("delivery view missing or wrong: %+v", got.Delivery)
	}
	if got.Delivery.HoldReason != string(fulfillmentdomain.HoldRiskFlagged) {
		t.Fatalf("unexpected hold reason %q", got.Delivery.HoldReason)
	}

	if _, err := h.svc.Get(context.Background(), "abc"); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := h.svc.Get(context.Background(), "123456789012345"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrdersFilters(t *testing.T) {
	h := setupOrders(t)
	itemID := h.seedItem(t, true, catalogdomain.ItemStatusActive)

	first := h.createOrder(t, itemID)
	h.clock.Advance(time.Minute)
	second := h.createOrder(t, itemID)

	firstID, _ := snowflake.ParseString(first.ID)
	if moved, err := h.repo.PromotePaid(context.Background(), h.db, firstID.Int64(), h.clock.Now()); err != nil || !moved {
		t.Fatalf("mark paid: moved=%v err=%v", moved, err)
	}

	secondID, _ := snowflake.ParseString(second.ID)
	hold := fulfillmentdomain.Delivery{
		ID:         h.node.Generate().Int64(),
		OrderID:    secondID.Int64(),
		Status:     fulfillmentdomain.DeliveryHold,
		HoldReason: string(fulfillmentdomain.HoldRiskSuspicious),
		CreatedAt:  h.clock.Now(),
		UpdatedAt:  h.clock.Now(),
	}
	if err := h.db.Create(&hold).Error; err != nil {
		t.Fatalf("seed delivery: %v", err)
	}

	paid, err := h.svc.List(context.Background(), domain.ListRequest{PaymentStatus: "paid"})
	if err != nil {
		t.Fatalf("list paid: %v", err)
	}
	if len(paid.Orders) != 1 || paid.Orders[0].ID != first.ID {
		t.Fatalf("unexpected paid listing: %+v", paid.Orders)
	}

	held, err := h.svc.List(context.Background(), domain.ListRequest{DeliveryStatus: "hold"})
	if err != nil {
		t.Fatalf("list held: %v", err)
	}
	if len(held.Orders) != 1 || held.Orders[0].ID != second.ID {
		t.Fatalf("unexpected held listing: %+v", held.Orders)
	}
}

func TestListOrdersCursorPagination(t *testing.T) {
	h := setupOrders(t)
	itemID := h.seedItem(t, true, catalogdomain.ItemStatusActive)

	var ids []string
	for i := 0; i < 3; i++ {
		resp := h.createOrder(t, itemID)
		ids = append(ids, resp.ID)
		h.clock.Advance(time.Minute)
	}

	page1, err := h.svc.List(context.Background(), domain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(page1.Orders) != 2 || !page1.HasMore {
		t.Fatalf("expected 2 rows with more, got %d hasMore=%v", len(page1.Orders), page1.HasMore)
	}
	// Newest first.
	if page1.Orders[0].ID != ids[2] || page1.Orders[1].ID != ids[1] {
		t.Fatalf("unexpected ordering: %+v", page1.Orders)
	}

	page2, err := h.svc.List(context.Background(), domain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: page1.NextPageToken},
	})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page2.Orders) != 1 || page2.Orders[0].ID != ids[0] {
		t.Fatalf("unexpected page 2: %+v", page2.Orders)
	}

	if _, err := h.svc.List(context.Background(), domain.ListRequest{
		Pagination: pagination.Pagination{PageToken: "%%%not-base64%%%"},
	}); !errors.Is(err, domain.ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}
