package domain

import "strings"

// Known throwaway email providers seen in storefront fraud.
var disposableDomains = map[string]struct{}{
	"10minutemail.com":   {},
	"10minutemail.net":   {},
	"dispostable.com":    {},
	"fakeinbox.com":      {},
	"getnada.com":        {},
	"guerrillamail.com":  {},
	"guerrillamail.net":  {},
	"mailinator.com":     {},
	"maildrop.cc":        {},
	"mintemail.com":      {},
	"moakt.com":          {},
	"mohmal.com":         {},
	"sharklasers.com":    {},
	"spamgourmet.com":    {},
	"temp-mail.org":      {},
	"tempail.com":        {},
	"tempmail.com":       {},
	"tempmailo.com":      {},
	"throwawaymail.com":  {},
	"trashmail.com":      {},
	"yopmail.com":        {},
	"yopmail.fr":         {},
	"mailnesia.com":      {},
	"emailondeck.com":    {},
	"mytemp.email":       {},
	"burnermail.io":      {},
	"inboxkitten.com":    {},
	"crazymailing.com":   {},
	"tempinbox.com":      {},
	"anonymbox.com":      {},
	"discard.email":      {},
	"mail-temporaire.fr": {},
}

// IsDisposableEmail reports whether the email uses a throwaway domain.
func IsDisposableEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	_, ok := disposableDomains[domain]
	return ok
}

// EmailDomain extracts the lowercased domain part of an address.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}
