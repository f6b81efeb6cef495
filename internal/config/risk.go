package config

import (
	"errors"
	"log"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RiskDefaults drives scoring when the operator has not saved settings yet.
// Values mirror the production defaults of the storefront risk system.
type RiskDefaults struct {
	Enabled               bool           `mapstructure:"enabled"`
	TestMode              bool           `mapstructure:"test_mode"`
	SuspiciousAutoApprove bool           `mapstructure:"suspicious_auto_approve"`
	Thresholds            RiskThresholds `mapstructure:"thresholds"`
	Weights               RiskWeights    `mapstructure:"weights"`
	HardBlocks            RiskHardBlocks `mapstructure:"hard_blocks"`
}

type RiskThresholds struct {
	CleanMax      int `mapstructure:"clean_max"`
	SuspiciousMax int `mapstructure:"suspicious_max"`
}

type RiskWeights struct {
	PhoneEmpty            int `mapstructure:"phone_empty"`
	PhoneNotMobile        int `mapstructure:"phone_not_mobile"`
	PhoneInvalidLength    int `mapstructure:"phone_invalid_length"`
	PhoneMultipleAccounts int `mapstructure:"phone_multiple_accounts"`

	DisposableEmail  int `mapstructure:"disposable_email"`
	EmailNotVerified int `mapstructure:"email_not_verified"`

	AccountAgeUnder10Min int `mapstructure:"account_age_under_10min"`
	AccountAgeUnder1Hour int `mapstructure:"account_age_under_1hour"`
	FirstOrder           int `mapstructure:"first_order"`
	FastCheckout         int `mapstructure:"fast_checkout"`

	EmptyUserAgent         int `mapstructure:"empty_user_agent"`
	MultipleAccountsSameIP int `mapstructure:"multiple_accounts_same_ip"`
	MultipleOrdersSameIP   int `mapstructure:"multiple_orders_same_ip"`

	AmountOver300        int `mapstructure:"amount_over_300"`
	AmountOver750        int `mapstructure:"amount_over_750"`
	AmountOver1500       int `mapstructure:"amount_over_1500"`
	FirstOrderHighAmount int `mapstructure:"first_order_high_amount"`

	DenylistHit int `mapstructure:"denylist_hit"`
}

type RiskHardBlocks struct {
	DenylistHit  bool `mapstructure:"denylist_hit"`
	InvalidPhone bool `mapstructure:"invalid_phone"`
}

func DefaultRiskDefaults() RiskDefaults {
	return RiskDefaults{
		Enabled:               true,
		TestMode:              false,
		SuspiciousAutoApprove: false,
		Thresholds: RiskThresholds{
			CleanMax:      29,
			SuspiciousMax: 59,
		},
		Weights: RiskWeights{
			PhoneEmpty:            40,
			PhoneNotMobile:        30,
			PhoneInvalidLength:    20,
			PhoneMultipleAccounts: 50,

			DisposableEmail:  40,
			EmailNotVerified: 20,

			AccountAgeUnder10Min: 30,
			AccountAgeUnder1Hour: 20,
			FirstOrder:           10,
			FastCheckout:         20,

			EmptyUserAgent:         20,
			MultipleAccountsSameIP: 30,
			MultipleOrdersSameIP:   40,

			AmountOver300:        10,
			AmountOver750:        20,
			AmountOver1500:       35,
			FirstOrderHighAmount: 25,

			DenylistHit: 100,
		},
		HardBlocks: RiskHardBlocks{
			DenylistHit: true,
		},
	}
}

// RiskDefaultsHolder keeps the risk defaults hot-reloadable from an optional
// risk.yml mounted next to the binary or under /etc/epin.
type RiskDefaultsHolder struct {
	current atomic.Value // holds RiskDefaults
}

func NewRiskDefaultsHolder() (*RiskDefaultsHolder, error) {
	v := viper.New()

	v.SetConfigName("risk")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/epin/config")
	v.AddConfigPath("/etc/epin")
	v.AddConfigPath(".")

	holder := &RiskDefaultsHolder{}
	holder.current.Store(DefaultRiskDefaults())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		return holder, nil
	}

	if err := holder.reload(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Printf("risk defaults reload failed: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

func (h *RiskDefaultsHolder) Current() RiskDefaults {
	return h.current.Load().(RiskDefaults)
}

func (h *RiskDefaultsHolder) reload(v *viper.Viper) error {
	defaults := DefaultRiskDefaults()
	if err := v.Unmarshal(&defaults); err != nil {
		return err
	}
	if err := validateRiskDefaults(defaults); err != nil {
		return err
	}
	h.current.Store(defaults)
	return nil
}

func validateRiskDefaults(d RiskDefaults) error {
	if d.Thresholds.CleanMax < 0 || d.Thresholds.CleanMax > 100 {
		return errors.New("risk defaults: clean_max out of range")
	}
	if d.Thresholds.SuspiciousMax <= d.Thresholds.CleanMax || d.Thresholds.SuspiciousMax > 100 {
		return errors.New("risk defaults: suspicious_max must be within (clean_max, 100]")
	}
	return nil
}
