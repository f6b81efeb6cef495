package domain

import (
	"testing"
	"time"
)

func testSettings() Settings {
	return Settings{
		Enabled: true,
		Thresholds: Thresholds{
			CleanMax:      29,
			SuspiciousMax: 59,
		},
		Weights: Weights{
			PhoneEmpty:             40,
			PhoneNotMobile:         30,
			PhoneInvalidLength:     20,
			PhoneMultipleAccounts:  50,
			DisposableEmail:        40,
			EmailNotVerified:       20,
			AccountAgeUnder10Min:   30,
			AccountAgeUnder1Hour:   20,
			FirstOrder:             10,
			FastCheckout:           20,
			EmptyUserAgent:         20,
			MultipleAccountsSameIP: 30,
			MultipleOrdersSameIP:   40,
			AmountOver300:          10,
			AmountOver750:          20,
			AmountOver1500:         35,
			FirstOrderHighAmount:   25,
			DenylistHit:            100,
		},
		HardBlocks: HardBlocks{DenylistHit: true},
	}
}

// cleanSignals describe an established, verified account so the only
// points scored come from whatever the test changes.
func cleanSignals() (OrderInput, Signals) {
	in := OrderInput{
		Amount:    100,
		Email:     "buyer@example.com",
		Phone:     "+90 532 123 45 67",
		IP:        "203.0.113.10",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	}
	sig := Signals{
		EmailVerified:   true,
		AccountAge:      48 * time.Hour,
		CheckoutSeconds: 300,
	}
	return in, sig
}

func TestScoreCleanBaseline(t *testing.T) {
	in, sig := cleanSignals()
	score, reasons := Score(in, sig, testSettings())
	if score != 0 {
		t.Fatalf("expected score 0, got %d (%v)", score, reasons)
	}
	if len(reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", reasons)
	}
}

func TestScoreDisabledShortCircuits(t *testing.T) {
	st := testSettings()
	st.Enabled = false

	score, reasons := Score(OrderInput{}, Signals{Denylisted: true}, st)
	if score != 0 || reasons != nil {
		t.Fatalf("disabled scoring must return 0, got %d %v", score, reasons)
	}
}

func TestScoreSingleHeuristics(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*OrderInput, *Signals)
		want   int
		code   string
	}{
		{
			name:   "missing phone",
			mutate: func(in *OrderInput, _ *Signals) { in.Phone = "" },
			want:   40,
			code:   "phone_empty",
		},
		{
			name:   "landline phone",
			mutate: func(in *OrderInput, _ *Signals) { in.Phone = "0212 123 45 67" },
			want:   30,
			code:   "phone_not_mobile",
		},
		{
			name:   "short phone",
			mutate: func(in *OrderInput, _ *Signals) { in.Phone = "5321234" },
			want:   20,
			code:   "phone_invalid_length",
		},
		{
			name:   "shared phone",
			mutate: func(_ *OrderInput, sig *Signals) { sig.PhoneSharedAccounts = 2 },
			want:   50,
			code:   "phone_multiple_accounts",
		},
		{
			name:   "disposable email",
			mutate: func(_ *OrderInput, sig *Signals) { sig.DisposableEmail = true },
			want:   40,
			code:   "disposable_email",
		},
		{
			name:   "unverified email",
			mutate: func(_ *OrderInput, sig *Signals) { sig.EmailVerified = false },
			want:   20,
			code:   "email_not_verified",
		},
		{
			name:   "account under 10 minutes",
			mutate: func(_ *OrderInput, sig *Signals) { sig.AccountAge = 5 * time.Minute },
			want:   30,
			code:   "account_age_under_10min",
		},
		{
			name:   "account under an hour",
			mutate: func(_ *OrderInput, sig *Signals) { sig.AccountAge = 30 * time.Minute },
			want:   20,
			code:   "account_age_under_1hour",
		},
		{
			name:   "first order",
			mutate: func(_ *OrderInput, sig *Signals) { sig.FirstOrder = true },
			want:   10,
			code:   "first_order",
		},
		{
			name:   "fast checkout",
			mutate: func(_ *OrderInput, sig *Signals) { sig.CheckoutSeconds = 12 },
			want:   20,
			code:   "fast_checkout",
		},
		{
			name:   "short user agent",
			mutate: func(in *OrderInput, _ *Signals) { in.UserAgent = "curl/8.0" },
			want:   20,
			code:   "empty_user_agent",
		},
		{
			name:   "many accounts on IP",
			mutate: func(_ *OrderInput, sig *Signals) { sig.AccountsOnIP = 3 },
			want:   30,
			code:   "multiple_accounts_same_ip",
		},
		{
			name:   "order burst from IP",
			mutate: func(_ *OrderInput, sig *Signals) { sig.OrdersFromIPLastHour = 4 },
			want:   40,
			code:   "multiple_orders_same_ip",
		},
		{
			name:   "amount tier 300",
			mutate: func(in *OrderInput, _ *Signals) { in.Amount = 300 },
			want:   10,
			code:   "amount_over_300",
		},
		{
			name:   "amount tier 750",
			mutate: func(in *OrderInput, _ *Signals) { in.Amount = 750 },
			want:   20,
			code:   "amount_over_750",
		},
		{
			name:   "amount tier 1500",
			mutate: func(in *OrderInput, _ *Signals) { in.Amount = 1500 },
			want:   35,
			code:   "amount_over_1500",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in, sig := cleanSignals()
			tc.mutate(&in, &sig)

			score, reasons := Score(in, sig, testSettings())
			if score != tc.want {
				t.Fatalf("expected %d, got %d (%v)", tc.want, score, reasons)
			}
			if len(reasons) != 1 || reasons[0].Code != tc.code {
				t.Fatalf("expected single reason %s, got %v", tc.code, reasons)
			}
			if reasons[0].Points != tc.want {
				t.Fatalf("reason points %d do not match score %d", reasons[0].Points, score)
			}
		})
	}
}

func TestScoreAmountTiersAreExclusive(t *testing.T) {
	in, sig := cleanSignals()
	in.Amount = 2000

	score, reasons := Score(in, sig, testSettings())
	if score != 35 {
		t.Fatalf("expected only the top tier to fire, got %d (%v)", score, reasons)
	}
}

func TestScoreFirstOrderHighAmountCombo(t *testing.T) {
	in, sig := cleanSignals()
	in.Amount = 800
	sig.FirstOrder = true

	// first_order 10 + amount_over_750 20 + first_order_high_amount 25
	score, _ := Score(in, sig, testSettings())
	if score != 55 {
		t.Fatalf("expected 55, got %d", score)
	}
}

func TestScoreClampsAtHundred(t *testing.T) {
	in := OrderInput{Amount: 5000}
	sig := Signals{
		DisposableEmail:      true,
		AccountAge:           time.Minute,
		FirstOrder:           true,
		CheckoutSeconds:      5,
		AccountsOnIP:         5,
		OrdersFromIPLastHour: 9,
		PhoneSharedAccounts:  3,
		Denylisted:           true,
	}

	score, _ := Score(in, sig, testSettings())
	if score != 100 {
		t.Fatalf("expected clamp at 100, got %d", score)
	}
}

func TestScoreUnknownSignalsScoreNothing(t *testing.T) {
	in, sig := cleanSignals()
	sig.AccountAge = -1
	sig.CheckoutSeconds = -1

	score, reasons := Score(in, sig, testSettings())
	if score != 0 {
		t.Fatalf("unknown age and checkout must not score, got %d (%v)", score, reasons)
	}
}

func TestClassifyThresholds(t *testing.T) {
	st := testSettings()

	tests := []struct {
		score int
		want  Status
	}{
		{0, StatusClean},
		{29, StatusClean},
		{30, StatusSuspicious},
		{59, StatusSuspicious},
		{60, StatusFlagged},
		{100, StatusFlagged},
	}
	for _, tc := range tests {
		if got := Classify(tc.score, false, false, st); got != tc.want {
			t.Fatalf("score %d: expected %s, got %s", tc.score, tc.want, got)
		}
	}
}

func TestClassifyDenylistDominates(t *testing.T) {
	st := testSettings()

	if got := Classify(0, true, false, st); got != StatusBlocked {
		t.Fatalf("denylisted identity must block regardless of score, got %s", got)
	}

	st.HardBlocks.DenylistHit = false
	if got := Classify(0, true, false, st); got != StatusClean {
		t.Fatalf("with the hard block off, score decides: got %s", got)
	}
}

func TestClassifyInvalidPhoneHardBlock(t *testing.T) {
	st := testSettings()
	if got := Classify(0, false, true, st); got != StatusClean {
		t.Fatalf("invalid phone block is off by default, got %s", got)
	}

	st.HardBlocks.InvalidPhone = true
	if got := Classify(0, false, true, st); got != StatusBlocked {
		t.Fatalf("expected BLOCKED with invalid phone hard block on, got %s", got)
	}
}

func TestShouldHold(t *testing.T) {
	st := testSettings()

	if ShouldHold(StatusClean, st) {
		t.Fatal("clean must not hold")
	}
	if !ShouldHold(StatusFlagged, st) || !ShouldHold(StatusBlocked, st) {
		t.Fatal("flagged and blocked must hold")
	}
	if !ShouldHold(StatusSuspicious, st) {
		t.Fatal("suspicious holds unless auto-approve is on")
	}

	st.SuspiciousAutoApprove = true
	if ShouldHold(StatusSuspicious, st) {
		t.Fatal("suspicious must pass with auto-approve on")
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+90 532 123 45 67", "5321234567"},
		{"905321234567", "5321234567"},
		{"05321234567", "5321234567"},
		{"5321234567", "5321234567"},
		{"0212 123 45 67", "2121234567"},
		{"(532) 123-45-67", "5321234567"},
		{"", ""},
		{"abc", ""},
		// A 10-digit number starting with 90 is not a country prefix.
		{"9012345678", "9012345678"},
	}
	for _, tc := range tests {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Fatalf("NormalizePhone(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestPhoneInvalid(t *testing.T) {
	if PhoneInvalid("+90 532 123 45 67") {
		t.Fatal("valid TR mobile flagged invalid")
	}
	if !PhoneInvalid("") || !PhoneInvalid("0212 123 45 67") || !PhoneInvalid("532123") {
		t.Fatal("expected invalid phone")
	}
}
