package domain

import "github.com/shopspring/decimal"

// FirstRunCredits is granted when a user record carries no credit attribute
// yet, i.e. on the user's first generation.
var FirstRunCredits = decimal.NewFromInt(3)

// User mirrors the two attributes this service owns on the identity
// provider's user record. Everything else about the account stays with the
// provider.
type User struct {
	ID                string
	Email             string
	Credits           decimal.Decimal
	HasCredits        bool // credit attribute present on the record
	ProcessedPayments []string
}

// Balance returns the effective credit balance, applying the first-run grant
// when the attribute has never been written.
func (u *User) Balance() decimal.Decimal {
	if !u.HasCredits {
		return FirstRunCredits
	}
	return u.Credits
}

// PaymentProcessed reports whether the transaction id was already reconciled.
func (u *User) PaymentProcessed(txID string) bool {
	for _, id := range u.ProcessedPayments {
		if id == txID {
			return true
		}
	}
	return false
}
