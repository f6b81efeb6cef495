package cache

import (
	"time"

	riskdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/risk/domain"
)

const (
	defaultSettingsTTL = 30 * time.Second
	defaultDenylistTTL = 30 * time.Second
)

const (
	settingsKey = "settings"
	denylistKey = "denylist"
)

// RiskResolverCache stores hot-path lookups for the risk scorer so
// checkout traffic does not hit the settings tables on every order.
type RiskResolverCache interface {
	GetSettings() (riskdomain.Settings, bool)
	SetSettings(settings riskdomain.Settings)
	InvalidateSettings()
	GetDenylist() ([]riskdomain.DenylistEntry, bool)
	SetDenylist(entries []riskdomain.DenylistEntry)
	InvalidateDenylist()
}

type riskResolverCache struct {
	settings    Cache[string, riskdomain.Settings]
	denylist    Cache[string, []riskdomain.DenylistEntry]
	settingsTTL time.Duration
	denylistTTL time.Duration
}

// NewRiskResolverCache returns an in-memory cache tuned for checkout scoring.
func NewRiskResolverCache() RiskResolverCache {
	return &riskResolverCache{
		settings:    NewTTLCache[string, riskdomain.Settings](),
		denylist:    NewTTLCache[string, []riskdomain.DenylistEntry](),
		settingsTTL: defaultSettingsTTL,
		denylistTTL: defaultDenylistTTL,
	}
}

func (c *riskResolverCache) GetSettings() (riskdomain.Settings, bool) {
	return c.settings.Get(settingsKey)
}

func (c *riskResolverCache) SetSettings(settings riskdomain.Settings) {
	c.settings.Set(settingsKey, settings, c.settingsTTL)
}

func (c *riskResolverCache) InvalidateSettings() {
	c.settings.Delete(settingsKey)
}

func (c *riskResolverCache) GetDenylist() ([]riskdomain.DenylistEntry, bool) {
	return c.denylist.Get(denylistKey)
}

func (c *riskResolverCache) SetDenylist(entries []riskdomain.DenylistEntry) {
	c.denylist.Set(denylistKey, entries, c.denylistTTL)
}

func (c *riskResolverCache) InvalidateDenylist() {
	c.denylist.Delete(denylistKey)
}
