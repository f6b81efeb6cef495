package domain

import (
	"strings"
	"time"
)

// OrderInput is the slice of an order the scorer looks at.
type OrderInput struct {
	Amount    int64
	Email     string
	Phone     string
	IP        string
	UserAgent string
}

// Signals are gathered by the service before scoring. Negative
// durations and seconds mean the signal is unknown.
type Signals struct {
	EmailVerified        bool
	DisposableEmail      bool
	AccountAge           time.Duration
	FirstOrder           bool
	CheckoutSeconds      float64
	AccountsOnIP         int
	OrdersFromIPLastHour int
	PhoneSharedAccounts  int
	Denylisted           bool
}

const (
	fastCheckoutSeconds = 30
	minUserAgentLength  = 20
	scoreMax            = 100
)

// Score evaluates every heuristic against the order. It is
// deterministic over its inputs and reads neither the clock nor the
// database. Reasons keep evaluation order.
func Score(in OrderInput, sig Signals, st Settings) (int, []Reason) {
	if !st.Enabled {
		return 0, nil
	}

	total := 0
	var reasons []Reason
	add := func(code, label string, points int) {
		if points <= 0 {
			return
		}
		total += points
		reasons = append(reasons, Reason{Code: code, Label: label, Points: points})
	}

	phone := NormalizePhone(in.Phone)
	if phone == "" {
		add("phone_empty", "Phone number missing", st.Weights.PhoneEmpty)
	} else {
		if !strings.HasPrefix(phone, "5") {
			add("phone_not_mobile", "Phone is not a TR mobile number", st.Weights.PhoneNotMobile)
		}
		if len(phone) != 10 {
			add("phone_invalid_length", "Phone number has wrong length", st.Weights.PhoneInvalidLength)
		}
	}
	if sig.PhoneSharedAccounts > 0 {
		add("phone_multiple_accounts", "Phone used by other accounts", st.Weights.PhoneMultipleAccounts)
	}

	if sig.DisposableEmail {
		add("disposable_email", "Disposable email domain", st.Weights.DisposableEmail)
	}
	if !sig.EmailVerified {
		add("email_not_verified", "Email not verified", st.Weights.EmailNotVerified)
	}

	if sig.AccountAge >= 0 {
		switch {
		case sig.AccountAge < 10*time.Minute:
			add("account_age_under_10min", "Account younger than 10 minutes", st.Weights.AccountAgeUnder10Min)
		case sig.AccountAge < time.Hour:
			add("account_age_under_1hour", "Account younger than 1 hour", st.Weights.AccountAgeUnder1Hour)
		}
	}

	if sig.FirstOrder {
		add("first_order", "First order on this account", st.Weights.FirstOrder)
	}
	if sig.CheckoutSeconds >= 0 && sig.CheckoutSeconds < fastCheckoutSeconds {
		add("fast_checkout", "Checkout right after login", st.Weights.FastCheckout)
	}
	if len(strings.TrimSpace(in.UserAgent)) < minUserAgentLength {
		add("empty_user_agent", "Missing or short user agent", st.Weights.EmptyUserAgent)
	}

	if sig.AccountsOnIP >= 3 {
		add("multiple_accounts_same_ip", "Multiple accounts on the same IP", st.Weights.MultipleAccountsSameIP)
	}
	if sig.OrdersFromIPLastHour >= 4 {
		add("multiple_orders_same_ip", "Burst of orders from the same IP", st.Weights.MultipleOrdersSameIP)
	}

	switch {
	case in.Amount >= 1500:
		add("amount_over_1500", "Amount at or over 1500 TRY", st.Weights.AmountOver1500)
	case in.Amount >= 750:
		add("amount_over_750", "Amount at or over 750 TRY", st.Weights.AmountOver750)
	case in.Amount >= 300:
		add("amount_over_300", "Amount at or over 300 TRY", st.Weights.AmountOver300)
	}

	if sig.FirstOrder && in.Amount >= 750 {
		add("first_order_high_amount", "High amount on a first order", st.Weights.FirstOrderHighAmount)
	}

	if sig.Denylisted {
		add("denylist_hit", "Identity on the denylist", st.Weights.DenylistHit)
	}

	if total > scoreMax {
		total = scoreMax
	}
	if total < 0 {
		total = 0
	}
	return total, reasons
}

// Classify maps a score to a status. Hard blocks dominate the score
// entirely, including score zero.
func Classify(score int, denylisted, invalidPhone bool, st Settings) Status {
	if denylisted && st.HardBlocks.DenylistHit {
		return StatusBlocked
	}
	if invalidPhone && st.HardBlocks.InvalidPhone {
		return StatusBlocked
	}
	switch {
	case score <= st.Thresholds.CleanMax:
		return StatusClean
	case score <= st.Thresholds.SuspiciousMax:
		return StatusSuspicious
	default:
		return StatusFlagged
	}
}

// ShouldHold reports whether a verdict keeps delivery from running.
func ShouldHold(status Status, st Settings) bool {
	switch status {
	case StatusFlagged, StatusBlocked:
		return true
	case StatusSuspicious:
		return !st.SuspiciousAutoApprove
	}
	return false
}

// NormalizePhone strips formatting and the TR country prefix, leaving
// the bare national number.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if len(normalized) == 12 && strings.HasPrefix(normalized, "90") {
		normalized = normalized[2:]
	}
	if len(normalized) == 11 && strings.HasPrefix(normalized, "0") {
		normalized = normalized[1:]
	}
	return normalized
}

// PhoneInvalid reports whether the phone fails the TR mobile format.
func PhoneInvalid(phone string) bool {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return true
	}
	return !strings.HasPrefix(normalized, "5") || len(normalized) != 10
}
