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

	auditdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/domain"
	auditrepository "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/repository"
	auditservice "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/service"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/cache"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/clock"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/config"
	orderdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/order/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/risk/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/risk/repository"
)

type riskHarness struct {
	svc   domain.Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
}

func setupRisk(t *testing.T) *riskHarness {
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
		&orderdomain.Order{},
		&domain.SettingsRecord{},
		&domain.DenylistEntry{},
		&domain.Assessment{},
		&auditdomain.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	defaults, err := config.NewRiskDefaultsHolder()
	if err != nil {
		t.Fatalf("risk defaults: %v", err)
	}

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})

	svc := New(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Repo:     repository.Provide(),
		Cache:    cache.NewRiskResolverCache(),
		Defaults: defaults,
		Audit:    auditSvc,
	})

	return &riskHarness{svc: svc, db: db, node: node, clock: fake}
}

// cleanRequest builds an order whose only scored heuristic is first_order.
func (h *riskHarness) cleanRequest(amount int64) domain.AssessRequest {
	created := h.clock.Now().Add(-48 * time.Hour)
	login := h.clock.Now().Add(-5 * time.Minute)
	return domain.AssessRequest{
		OrderID: h.node.Generate().Int64(),
		UserID:  h.node.Generate().Int64(),
		Input: domain.OrderInput{
			Amount:    amount,
			Email:     "buyer@example.com",
			Phone:     "+905321234567",
			IP:        "203.0.113.10",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Gecko",
		},
		EmailVerified:    true,
		AccountCreatedAt: &created,
		LoginAt:          &login,
	}
}

func TestAssessCleanOrder(t *testing.T) {
	h := setupRisk(t)

	got, err := h.svc.Assess(context.Background(), h.cleanRequest(100))
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if got.Status != domain.StatusClean {
		t.Fatalf("expected CLEAN, got %s score=%d reasons=%s", got.Status, got.Score, got.Reasons)
	}
	if got.Score != 10 {
		t.Fatalf("expected first_order only (10), got %d", got.Score)
	}
}

func TestAssessIdempotentPerOrder(t *testing.T) {
	h := setupRisk(t)

	req := h.cleanRequest(100)
	first, err := h.svc.Assess(context.Background(), req)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}

	// Re-assessing the same order must return the stored verdict even if
	// the inputs drifted.
	req.Input.Amount = 5000
	req.Input.Email = "other@mailinator.com"
	second, err := h.svc.Assess(context.Background(), req)
	if err != nil {
		t.Fatalf("reassess: %v", err)
	}
	if second.ID != first.ID || second.Score != first.Score || second.Status != first.Status {
		t.Fatalf("verdict changed on reassess: %+v vs %+v", first, second)
	}

	stored, err := h.svc.GetAssessment(context.Background(), req.OrderID)
	if err != nil {
		t.Fatalf("get assessment: %v", err)
	}
	if stored.ID != first.ID {
		t.Fatalf("expected stored assessment %d, got %d", first.ID, stored.ID)
	}
}

func TestAssessDisabledScoresNothing(t *testing.T) {
	h := setupRisk(t)

	settings, err := h.svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	settings.Enabled = false
	if _, err := h.svc.UpdateSettings(context.Background(), settings, "admin"); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	req := h.cleanRequest(5000)
	req.Input.Email = "burner@mailinator.com"
	req.Input.Phone = ""

	got, err := h.svc.Assess(context.Background(), req)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if got.Status != domain.StatusClean || got.Score != 0 {
		t.Fatalf("disabled scoring must yield CLEAN/0, got %s/%d", got.Status, got.Score)
	}
}

func TestAssessDenylistedEmailBlocks(t *testing.T) {
	h := setupRisk(t)

	if _, err := h.svc.AddDenylist(context.Background(), domain.AddDenylistRequest{
		Type:  "email",
		Value: " Fraud@Example.COM ",
		Actor: "admin",
	}); err != nil {
		t.Fatalf("add denylist: %v", err)
	}

	req := h.cleanRequest(100)
	req.Input.Email = "fraud@example.com"

	got, err := h.svc.Assess(context.Background(), req)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if got.Status != domain.StatusBlocked {
		t.Fatalf("expected BLOCKED, got %s", got.Status)
	}
}

func TestAssessTestModeKeepsActualVerdict(t *testing.T) {
	h := setupRisk(t)

	settings, err := h.svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	settings.TestMode = true
	if _, err := h.svc.UpdateSettings(context.Background(), settings, "admin"); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	req := h.cleanRequest(100)
	req.Input.Email = "burner@mailinator.com"
	req.EmailVerified = false

	got, err := h.svc.Assess(context.Background(), req)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if got.Status != domain.StatusClean {
		t.Fatalf("test mode must report CLEAN, got %s", got.Status)
	}
	if !got.TestMode || got.ActualStatus == nil || *got.ActualStatus == domain.StatusClean {
		t.Fatalf("actual verdict not preserved: %+v", got)
	}
}

func TestUpdateSettingsValidatesThresholds(t *testing.T) {
	h := setupRisk(t)

	base, err := h.svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}

	bad := base
	bad.Thresholds = domain.Thresholds{CleanMax: -1, SuspiciousMax: 59}
	if _, err := h.svc.UpdateSettings(context.Background(), bad, "admin"); !errors.Is(err, domain.ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds, got %v", err)
	}
	bad.Thresholds = domain.Thresholds{CleanMax: 29, SuspiciousMax: 101}
	if _, err := h.svc.UpdateSettings(context.Background(), bad, "admin"); !errors.Is(err, domain.ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds, got %v", err)
	}
	bad.Thresholds = domain.Thresholds{CleanMax: 60, SuspiciousMax: 60}
	if _, err := h.svc.UpdateSettings(context.Background(), bad, "admin"); !errors.Is(err, domain.ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds, got %v", err)
	}

	good := base
	good.Thresholds = domain.Thresholds{CleanMax: 20, SuspiciousMax: 80}
	if _, err := h.svc.UpdateSettings(context.Background(), good, "admin"); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	reloaded, err := h.svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if reloaded.Thresholds.CleanMax != 20 || reloaded.Thresholds.SuspiciousMax != 80 {
		t.Fatalf("settings not persisted: %+v", reloaded.Thresholds)
	}
}

func TestDenylistNormalizesAndDeduplicates(t *testing.T) {
	h := setupRisk(t)

	if _, err := h.svc.AddDenylist(context.Background(), domain.AddDenylistRequest{Type: "passport", Value: "x"}); !errors.Is(err, domain.ErrInvalidDenylistType) {
		t.Fatalf("expected ErrInvalidDenylistType, got %v", err)
	}
	if _, err := h.svc.AddDenylist(context.Background(), domain.AddDenylistRequest{Type: "email", Value: "   "}); !errors.Is(err, domain.ErrInvalidDenylistValue) {
		t.Fatalf("expected ErrInvalidDenylistValue, got %v", err)
	}

	entry, err := h.svc.AddDenylist(context.Background(), domain.AddDenylistRequest{
		Type:   "phone",
		Value:  "+90 532 123 45 67",
		Reason: "chargeback",
		Actor:  "admin",
	})
	if err != nil {
		t.Fatalf("add denylist: %v", err)
	}
	if entry.Value != "5321234567" {
		t.Fatalf("phone not normalized: %q", entry.Value)
	}

	if _, err := h.svc.AddDenylist(context.Background(), domain.AddDenylistRequest{
		Type:  "phone",
		Value: "0532 123 45 67",
		Actor: "admin",
	}); !errors.Is(err, domain.ErrDenylistDuplicate) {
		t.Fatalf("expected ErrDenylistDuplicate, got %v", err)
	}
}

func TestRemoveDenylistInvalidatesCache(t *testing.T) {
	h := setupRisk(t)

	entry, err := h.svc.AddDenylist(context.Background(), domain.AddDenylistRequest{
		Type:  "ip",
		Value: "198.51.100.7",
		Actor: "admin",
	})
	if err != nil {
		t.Fatalf("add denylist: %v", err)
	}

	// Prime the denylist cache.
	req := h.cleanRequest(100)
	req.Input.IP = "198.51.100.7"
	blocked, err := h.svc.Assess(context.Background(), req)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if blocked.Status != domain.StatusBlocked {
		t.Fatalf("expected BLOCKED, got %s", blocked.Status)
	}

	if err := h.svc.RemoveDenylist(context.Background(), entry.ID, "admin"); err != nil {
		t.Fatalf("remove denylist: %v", err)
	}
	if err := h.svc.RemoveDenylist(context.Background(), entry.ID, "admin"); !errors.Is(err, domain.ErrDenylistNotFound) {
		t.Fatalf("expected ErrDenylistNotFound, got %v", err)
	}

	after := h.cleanRequest(100)
	after.Input.IP = "198.51.100.7"
	clean, err := h.svc.Assess(context.Background(), after)
	if err != nil {
		t.Fatalf("assess after removal: %v", err)
	}
	if clean.Status != domain.StatusClean {
		t.Fatalf("cache not invalidated, got %s", clean.Status)
	}
}
