package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/domain"
	catalogdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/domain"
	catalogrepository "github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/repository"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/clock"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/inventory/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/inventory/repository"
)

type auditStub struct {
	mu      sync.Mutex
	entries []string
}

func (a *auditStub) AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, action)
	return nil
}

func (a *auditStub) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

func (a *auditStub) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.entries...)
}

type harness struct {
	svc     domain.Service
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	catalog catalogdomain.Repository
	audit   *auditStub
}

func setupInventory(t *testing.T) *harness {
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

	if err := db.AutoMigrate(&catalogdomain.Item{}, &domain.Unit{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	audit := &auditStub{}
	catalogRepo := catalogrepository.Provide()

	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fake,
		Repo:    repository.Provide(),
		Catalog: catalogRepo,
		Audit:   audit,
	})

	return &harness{svc: svc, db: db, node: node, clock: fake, catalog: catalogRepo, audit: audit}
}

func (h *harness) seedItem(t *testing.T, kind catalogdomain.ItemKind, unlimited bool, creds *string) int64 {
	t.Helper()

	item := &catalogdomain.Item{
		ID:                 h.node.Generate().Int64(),
		Slug:               fmt.Sprintf("item-%d", h.node.Generate().Int64()),
		Name:               "Test Item",
		Kind:               kind,
		PriceTRY:           100,
		Active:             true,
		Unlimited:          unlimited,
		DefaultCredentials: creds,
		Status:             catalogdomain.ItemStatusActive,
		CreatedAt:          h.clock.Now(),
		UpdatedAt:          h.clock.Now(),
	}
	if err := h.db.Create(item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item.ID
}

func (h *harness) addStock(t *testing.T, itemID int64, lines ...string) []domain.Unit {
	t.Helper()

	units, err := h.svc.AddUnits(context.Background(), domain.AddUnitsRequest{
		ItemID: itemID,
		Lines:  lines,
		Actor:  "tester",
	})
	if err != nil {
		t.Fatalf("add units: %v", err)
	}
	return units
}

// gatedRepo holds every claimer that saw no existing assignment until the
// gate opens, forcing the idempotence read and the claim write to interleave.
type gatedRepo struct {
	domain.Repository
	arrived chan struct{}
	gate    chan struct{}
}

func (g *gatedRepo) FindAssignedByOrder(ctx context.Context, db *gorm.DB, orderID int64) (*domain.Unit, error) {
	unit, err := g.Repository.FindAssignedByOrder(ctx, db, orderID)
	if unit == nil && err == nil {
		g.arrived <- struct{}{}
		<-g.gate
	}
	return unit, err
}

func TestClaimFIFO(t *testing.T) {
	h := setupInventory(t)
	itemID := h.seedItem(t, catalogdomain.KindCurrencyPackage, false, nil)

	h.addStock(t, itemID, "code-oldest")
	h.clock.Advance(time.Minute)
	h.addStock(t, itemID, "code-newer")

	ctx := context.Background()
	first, err := h.svc.Claim(ctx, domain.ClaimRequest{OrderID: h.node.Generate().Int64(), ItemID: itemID, Actor: "system"})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if first.Payload != "code-oldest" {
		t.Fatalf("expected oldest unit first, got %q", first.Payload)
	}

	second, err := h.svc.Claim(ctx, domain.ClaimRequest{OrderID: h.node.Generate().Int64(), ItemID: itemID, Actor: "system"})
	if err != nil {
		t.Fatalf("claim second: %v", err)
	}
	if second.Payload != "code-newer" {
		t.Fatalf("expected newer unit second, got %q", second.Payload)
	}
}

func TestClaimIdempotentPerOrder(t *testing.T) {
	h := setupInventory(t)
	itemID := h.seedItem(t, catalogdomain.KindCurrencyPackage, false, nil)
	h.addStock(t, itemID, "code-1", "code-2")

	ctx := context.Background()
	orderID := h.node.Generate().Int64()

	first, err := h.svc.Claim(ctx, domain.ClaimRequest{OrderID: orderID, ItemID: itemID, Actor: "system"})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	second, err := h.svc.Claim(ctx, domain.ClaimRequest{OrderID: orderID, ItemID: itemID, Actor: "system"})
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if *first.UnitID != *second.UnitID {
		t.Fatalf("re-claim returned a different unit: %d vs %d", *first.UnitID, *second.UnitID)
	}

	stock, err := h.svc.Stock(ctx, itemID)
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	if stock.Summary.Assigned != 1 || stock.Summary.Available != 1 {
		t.Fatalf("expected 1 assigned / 1 available, got %+v", stock.Summary)
	}
}

func TestClaimOutOfStock(t *testing.T) {
	h := setupInventory(t)
	itemID := h.seedItem(t, catalogdomain.KindCurrencyPackage, false, nil)

	_, err := h.svc.Claim(context.Background(), domain.ClaimRequest{OrderID: h.node.Generate().Int64(), ItemID: itemID, Actor: "system"})
	if !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
}

func TestClaimConcurrentOrdersNoDoubleAssign(t *testing.T) {
	h := setupInventory(t)
	itemID := h.seedItem(t, catalogdomain.KindCurrencyPackage, false, nil)
	h.addStock(t, itemID, "c1", "c2", "c3", "c4", "c5")

	const claimers = 10
	var wg sync.WaitGroup
	results := make([]error, claimers)
	units := make([]*domain.ClaimResult, claimers)

	for i := 0; i < claimers; i++ {
		orderID := h.node.Generate().Int64()
		wg.Add(1)
		go func(slot int, orderID int64) {
			defer wg.Done()
			res, err := h.svc.Claim(context.Background(), domain.ClaimRequest{OrderID: orderID, ItemID: itemID, Actor: "system"})
			results[slot] = err
			units[slot] = res
		}(i, orderID)
	}
	wg.Wait()

	won := 0
	seen := map[int64]bool{}
	for i := 0; i < claimers; i++ {
		if results[i] == nil {
			won++
			if seen[*units[i].UnitID] {
				t.Fatalf("unit %d assigned twice", *units[i].UnitID)
			}
			seen[*units[i].UnitID] = true
			continue
		}
		if !errors.Is(results[i], domain.ErrOutOfStock) {
			t.Fatalf("unexpected error: %v", results[i])
		}
	}
	if won != 5 {
		t.Fatalf("expected exactly 5 winners, got %d", won)
	}
}

func TestClaimSameOrderRaceBindsOneUnit(t *testing.T) {
	h := setupInventory(t)
	itemID := h.seedItem(t, catalogdomain.KindCurrencyPackage, false, nil)
	h.addStock(t, itemID, "c1", "c2")

	gated := &gatedRepo{
		Repository: repository.Provide(),
		arrived:    make(chan struct{}, 2),
		gate:       make(chan struct{}),
	}
	svc := New(Params{
		DB:      h.db,
		Log:     zap.NewNop(),
		GenID:   h.node,
		Clock:   h.clock,
		Repo:    gated,
		Catalog: h.catalog,
		Audit:   h.audit,
	})

	orderID := h.node.Generate().Int64()
	var wg sync.WaitGroup
	results := make([]*domain.ClaimResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot], errs[slot] = svc.Claim(context.Background(),
				domain.ClaimRequest{OrderID: orderID, ItemID: itemID, Actor: "system"})
		}(i)
	}

	// Release both claimers only after each has passed the idempotence read.
	<-gated.arrived
	<-gated.arrived
	close(gated.gate)
	wg.Wait()

	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("claim %d: %v", i, errs[i])
		}
	}
	if *results[0].UnitID != *results[1].UnitID {
		t.Fatalf("order bound to two units: %d and %d", *results[0].UnitID, *results[1].UnitID)
	}

	var bound int64
	if err := h.db.Raw(`SELECT COUNT(*) FROM stock_units WHERE order_id = ?`, orderID).Scan(&bound).Error; err != nil {
		t.Fatalf("count bound units: %v", err)
	}
	if bound != 1 {
		t.Fatalf("expected exactly one unit bound to the order, got %d", bound)
	}
}

func TestClaimSpecificConflict(t *testing.T) {
	h := setupInventory(t)
	itemID := h.seedItem(t, catalogdomain.KindCurrencyPackage, false, nil)
	units := h.addStock(t, itemID, "code-1")

	ctx := context.Background()
	if _, err := h.svc.ClaimSpecific(ctx, domain.ClaimRequest{OrderID: h.node.Generate().Int64(), ItemID: itemID, Actor: "admin"}, units[0].ID); err != nil {
		t.Fatalf("claim specific: %v", err)
	}

	_, err := h.svc.ClaimSpecific(ctx, domain.ClaimRequest{OrderID: h.node.Generate().Int64(), ItemID: itemID, Actor: "admin"}, units[0].ID)
	if !errors.Is(err, domain.ErrUnitConflict) {
		t.Fatalf("expected ErrUnitConflict, got %v", err)
	}

	_, err = h.svc.ClaimSpecific(ctx, domain.ClaimRequest{OrderID: h.node.Generate().Int64(), ItemID: itemID, Actor: "admin"}, h.node.Generate().Int64())
	if !errors.Is(err, domain.ErrUnitNotFound) {
		t.Fatalf("expected ErrUnitNotFound, got %v", err)
	}
}

func TestClaimUnlimitedItem(t *testing.T) {
	h := setupInventory(t)
	creds := "shared-account:password"
	itemID := h.seedItem(t, catalogdomain.KindCurrencyPackage, true, &creds)

	ctx := context.Background()
	res, err := h.svc.Claim(ctx, domain.ClaimRequest{OrderID: h.node.Generate().Int64(), ItemID: itemID, Actor: "system"})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.UnitID != nil {
		t.Fatalf("unlimited claim must not consume a unit, got unit %d", *res.UnitID)
	}
	if res.Payload != creds {
		t.Fatalf("expected default credentials, got %q", res.Payload)
	}
}

func TestClaimUnlimitedWithoutCredentials(t *testing.T) {
	h := setupInventory(t)
	itemID := h.seedItem(t, catalogdomain.KindCurrencyPackage, true, nil)

	_, err := h.svc.Claim(context.Background(), domain.ClaimRequest{OrderID: h.node.Generate().Int64(), ItemID: itemID, Actor: "system"})
	if !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
}

func TestAccountPoolDrainMarksItemSold(t *testing.T) {
	h := setupInventory(t)
	itemID := h.seedItem(t, catalogdomain.KindAccount, false, nil)
	h.addStock(t, itemID, "acct:pw")

	if _, err := h.svc.Claim(context.Background(), domain.ClaimRequest{OrderID: h.node.Generate().Int64(), ItemID: itemID, Actor: "system"}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	item, err := h.catalog.FindByID(context.Background(), h.db, itemID)
	if err != nil {
		t.Fatalf("find item: %v", err)
	}
	if item.Status != catalogdomain.ItemStatusSold {
		t.Fatalf("expected drained account pool to be sold, got %s", item.Status)
	}
}

func TestAddUnitsSkipsBlankLines(t *testing.T) {
	h := setupInventory(t)
	itemID := h.seedItem(t, catalogdomain.KindCurrencyPackage, false, nil)

	units := h.addStock(t, itemID, "  code-1  ", "", "   ", "code-2")
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}

	_, err := h.svc.AddUnits(context.Background(), domain.AddUnitsRequest{ItemID: itemID, Lines: []string{"", "  "}, Actor: "tester"})
	if !errors.Is(err, domain.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}

	actions := h.audit.Actions()
	if len(actions) != 1 || actions[0] != auditdomain.ActionStockAdd {
		t.Fatalf("expected a single stock.add audit entry, got %v", actions)
	}
}

func TestDeleteUnitRefusesAssigned(t *testing.T) {
	h := setupInventory(t)
	itemID := h.seedItem(t, catalogdomain.KindCurrencyPackage, false, nil)
	units := h.addStock(t, itemID, "code-1", "code-2")

	ctx := context.Background()
	if _, err := h.svc.ClaimSpecific(ctx, domain.ClaimRequest{OrderID: h.node.Generate().Int64(), ItemID: itemID, Actor: "admin"}, units[0].ID); err != nil {
		t.Fatalf("claim specific: %v", err)
	}

	if err := h.svc.DeleteUnit(ctx, itemID, units[0].ID); !errors.Is(err, domain.ErrUnitAssigned) {
		t.Fatalf("expected ErrUnitAssigned, got %v", err)
	}
	if err := h.svc.DeleteUnit(ctx, itemID, units[1].ID); err != nil {
		t.Fatalf("delete available unit: %v", err)
	}

	stock, err := h.svc.Stock(ctx, itemID)
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	if stock.Summary.Available != 0 || stock.Summary.Assigned != 1 {
		t.Fatalf("unexpected summary %+v", stock.Summary)
	}
}
