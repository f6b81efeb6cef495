package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/cache"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/clock"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/config"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/metrics"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/risk/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/pkg/db"
)

const settingsRecordID = 1

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Cache    cache.RiskResolverCache
	Defaults *config.RiskDefaultsHolder
	Audit    auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	cache    cache.RiskResolverCache
	defaults *config.RiskDefaultsHolder
	audit    auditdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("risk.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		cache:    p.Cache,
		defaults: p.Defaults,
		audit:    p.Audit,
		metrics:  p.Metrics,
	}
}

func (s *Service) Assess(ctx context.Context, req domain.AssessRequest) (*domain.Assessment, error) {
	if existing, err := s.repo.FindAssessmentByOrder(ctx, s.db, req.OrderID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !settings.Enabled {
		return s.persistAssessment(ctx, req, 0, nil, domain.StatusClean, nil, false, now)
	}

	signals, err := s.gatherSignals(ctx, req, now)
	if err != nil {
		return nil, err
	}

	score, reasons := domain.Score(req.Input, signals, settings)
	status := domain.Classify(score, signals.Denylisted, domain.PhoneInvalid(req.Input.Phone), settings)

	var actual *domain.Status
	if settings.TestMode {
		// Test mode records the live verdict but must never gate
		// delivery, so the effective status is rewritten to CLEAN.
		real := status
		actual = &real
		status = domain.StatusClean
	}

	return s.persistAssessment(ctx, req, score, reasons, status, actual, settings.TestMode, now)
}

func (s *Service) persistAssessment(ctx context.Context, req domain.AssessRequest, score int, reasons []domain.Reason, status domain.Status, actual *domain.Status, testMode bool, now time.Time) (*domain.Assessment, error) {
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return nil, err
	}

	assessment := &domain.Assessment{
		ID:           s.genID.Generate().Int64(),
		OrderID:      req.OrderID,
		Score:        score,
		Reasons:      datatypes.JSON(reasonsJSON),
		Status:       status,
		ActualStatus: actual,
		TestMode:     testMode,
		IP:           req.Input.IP,
		UserAgent:    req.Input.UserAgent,
		CreatedAt:    now,
	}

	if err := s.repo.InsertAssessment(ctx, s.db, assessment); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return s.repo.FindAssessmentByOrder(ctx, s.db, req.OrderID)
		}
		return nil, err
	}

	if s.metrics != nil {
		metrics.Add(ctx, s.metrics.OrdersScored, 1, attribute.String("risk_status", string(status)))
	}
	return assessment, nil
}

func (s *Service) gatherSignals(ctx context.Context, req domain.AssessRequest, now time.Time) (domain.Signals, error) {
	signals := domain.Signals{
		EmailVerified:   req.EmailVerified,
		DisposableEmail: domain.IsDisposableEmail(req.Input.Email),
		AccountAge:      -1,
		CheckoutSeconds: -1,
	}

	if req.AccountCreatedAt != nil {
		signals.AccountAge = now.Sub(req.AccountCreatedAt.UTC())
	}
	if req.LoginAt != nil {
		signals.CheckoutSeconds = now.Sub(req.LoginAt.UTC()).Seconds()
	}

	priorOrders, err := s.repo.CountPriorOrders(ctx, s.db, req.UserID, req.OrderID)
	if err != nil {
		return signals, err
	}
	signals.FirstOrder = priorOrders == 0

	if ip := strings.TrimSpace(req.Input.IP); ip != "" {
		accounts, err := s.repo.CountAccountsOnIP(ctx, s.db, ip)
		if err != nil {
			return signals, err
		}
		signals.AccountsOnIP = int(accounts)

		recent, err := s.repo.CountOrdersFromIPSince(ctx, s.db, ip, now.Add(-time.Hour), req.OrderID)
		if err != nil {
			return signals, err
		}
		// Current order included.
		signals.OrdersFromIPLastHour = int(recent) + 1
	}

	if phone := domain.NormalizePhone(req.Input.Phone); phone != "" {
		shared, err := s.repo.CountAccountsWithPhone(ctx, s.db, phone, req.UserID)
		if err != nil {
			return signals, err
		}
		signals.PhoneSharedAccounts = int(shared)
	}

	denylisted, err := s.isDenylisted(ctx, req)
	if err != nil {
		return signals, err
	}
	signals.Denylisted = denylisted

	return signals, nil
}

func (s *Service) isDenylisted(ctx context.Context, req domain.AssessRequest) (bool, error) {
	entries, ok := s.cache.GetDenylist()
	if !ok {
		var err error
		entries, err = s.repo.ListDenylist(ctx, s.db)
		if err != nil {
			return false, err
		}
		s.cache.SetDenylist(entries)
	}

	email := strings.ToLower(strings.TrimSpace(req.Input.Email))
	emailDomain := domain.EmailDomain(req.Input.Email)
	phone := domain.NormalizePhone(req.Input.Phone)
	ip := strings.TrimSpace(req.Input.IP)
	playerID := strings.TrimSpace(req.PlayerID)

	for _, entry := range entries {
		value := strings.ToLower(strings.TrimSpace(entry.Value))
		switch entry.Type {
		case domain.DenyEmail:
			if email != "" && email == value {
				return true, nil
			}
		case domain.DenyEmailDomain:
			if emailDomain != "" && emailDomain == value {
				return true, nil
			}
		case domain.DenyPhone:
			if phone != "" && phone == domain.NormalizePhone(entry.Value) {
				return true, nil
			}
		case domain.DenyIP:
			if ip != "" && strings.EqualFold(ip, strings.TrimSpace(entry.Value)) {
				return true, nil
			}
		case domain.DenyPlayerID:
			if playerID != "" && strings.EqualFold(playerID, strings.TrimSpace(entry.Value)) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Service) GetAssessment(ctx context.Context, orderID int64) (*domain.Assessment, error) {
	assessment, err := s.repo.FindAssessmentByOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if assessment == nil {
		return nil, domain.ErrAssessmentNotFound
	}
	return assessment, nil
}

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	if settings, ok := s.cache.GetSettings(); ok {
		return settings, nil
	}

	record, err := s.repo.FindSettings(ctx, s.db)
	if err != nil {
		return domain.Settings{}, err
	}

	settings := settingsFromDefaults(s.defaults.Current())
	if record != nil {
		if err := json.Unmarshal(record.Data, &settings); err != nil {
			s.log.Warn("corrupt risk settings row, using defaults", zap.Error(err))
			settings = settingsFromDefaults(s.defaults.Current())
		}
	}

	s.cache.SetSettings(settings)
	return settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, settings domain.Settings, actor string) (domain.Settings, error) {
	if settings.Thresholds.CleanMax < 0 ||
		settings.Thresholds.SuspiciousMax > 100 ||
		settings.Thresholds.CleanMax >= settings.Thresholds.SuspiciousMax {
		return domain.Settings{}, domain.ErrInvalidThresholds
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return domain.Settings{}, err
	}

	record := &domain.SettingsRecord{
		ID:        settingsRecordID,
		Data:      datatypes.JSON(data),
		UpdatedBy: actor,
		UpdatedAt: s.clock.Now(),
	}
	if err := s.repo.SaveSettings(ctx, s.db, record); err != nil {
		return domain.Settings{}, err
	}

	s.cache.InvalidateSettings()
	s.cache.SetSettings(settings)

	_ = s.audit.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actor,
		auditdomain.ActionRiskSettingsUpdate, "risk_settings", nil, map[string]any{
			"enabled":        settings.Enabled,
			"test_mode":      settings.TestMode,
			"clean_max":      settings.Thresholds.CleanMax,
			"suspicious_max": settings.Thresholds.SuspiciousMax,
		})

	return settings, nil
}

func (s *Service) ListDenylist(ctx context.Context) ([]domain.DenylistEntry, error) {
	return s.repo.ListDenylist(ctx, s.db)
}

func (s *Service) AddDenylist(ctx context.Context, req domain.AddDenylistRequest) (*domain.DenylistEntry, error) {
	entryType := domain.DenylistType(strings.TrimSpace(req.Type))
	if !entryType.Valid() {
		return nil, domain.ErrInvalidDenylistType
	}
	value := strings.TrimSpace(req.Value)
	if value == "" {
		return nil, domain.ErrInvalidDenylistValue
	}
	if entryType == domain.DenyEmail || entryType == domain.DenyEmailDomain {
		value = strings.ToLower(value)
	}
	if entryType == domain.DenyPhone {
		value = domain.NormalizePhone(value)
	}

	entry := &domain.DenylistEntry{
		ID:        s.genID.Generate().Int64(),
		Type:      entryType,
		Value:     value,
		Reason:    strings.TrimSpace(req.Reason),
		CreatedBy: req.Actor,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertDenylist(ctx, s.db, entry); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDenylistDuplicate
		}
		return nil, err
	}

	s.cache.InvalidateDenylist()

	targetID := snowflake.ID(entry.ID).String()
	_ = s.audit.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &req.Actor,
		auditdomain.ActionRiskDenylistAdd, "risk_denylist", &targetID, map[string]any{
			"type":  string(entryType),
			"value": value,
		})

	return entry, nil
}

func (s *Service) RemoveDenylist(ctx context.Context, id int64, actor string) error {
	deleted, err := s.repo.DeleteDenylist(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrDenylistNotFound
	}

	s.cache.InvalidateDenylist()

	targetID := snowflake.ID(id).String()
	_ = s.audit.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actor,
		auditdomain.ActionRiskDenylistRemove, "risk_denylist", &targetID, nil)
	return nil
}

func settingsFromDefaults(d config.RiskDefaults) domain.Settings {
	return domain.Settings{
		Enabled:               d.Enabled,
		TestMode:              d.TestMode,
		SuspiciousAutoApprove: d.SuspiciousAutoApprove,
		Thresholds: domain.Thresholds{
			CleanMax:      d.Thresholds.CleanMax,
			SuspiciousMax: d.Thresholds.SuspiciousMax,
		},
		Weights: domain.Weights{
			PhoneEmpty:             d.Weights.PhoneEmpty,
			PhoneNotMobile:         d.Weights.PhoneNotMobile,
			PhoneInvalidLength:     d.Weights.PhoneInvalidLength,
			PhoneMultipleAccounts:  d.Weights.PhoneMultipleAccounts,
			DisposableEmail:        d.Weights.DisposableEmail,
			EmailNotVerified:       d.Weights.EmailNotVerified,
			AccountAgeUnder10Min:   d.Weights.AccountAgeUnder10Min,
			AccountAgeUnder1Hour:   d.Weights.AccountAgeUnder1Hour,
			FirstOrder:             d.Weights.FirstOrder,
			FastCheckout:           d.Weights.FastCheckout,
			EmptyUserAgent:         d.Weights.EmptyUserAgent,
			MultipleAccountsSameIP: d.Weights.MultipleAccountsSameIP,
			MultipleOrdersSameIP:   d.Weights.MultipleOrdersSameIP,
			AmountOver300:          d.Weights.AmountOver300,
			AmountOver750:          d.Weights.AmountOver750,
			AmountOver1500:         d.Weights.AmountOver1500,
			FirstOrderHighAmount:   d.Weights.FirstOrderHighAmount,
			DenylistHit:            d.Weights.DenylistHit,
		},
		HardBlocks: domain.HardBlocks{
			DenylistHit:  d.HardBlocks.DenylistHit,
			InvalidPhone: d.HardBlocks.InvalidPhone,
		},
	}
}
