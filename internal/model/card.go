package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditCard is a credit card discovered after login. Movements is populated
// once by the harvester, grouped by ISO currency code.
type CreditCard struct {
	ID         string
	Brand      string // card network as reported by the portal ("VISA", "MASTER")
	Number     string // masked: first four digits + XXXXXXXX + last four
	Holder     string
	Expiration time.Time
	Hash       string

	Movements map[string][]CardMovement
}

// CardMovement is a normalized credit-card movement. Amount is always a
// non-negative magnitude; Type carries the direction.
type CardMovement struct {
	Date        time.Time
	Description string
	Type        TransactionType
	Amount      decimal.Decimal
	Currency    string // ISO code
	Coupon      string
	Meta        CardMeta
}

// CardMeta holds classification flags derived from the merchant name.
type CardMeta struct {
	TaxReturn     bool
	BankCosts     bool
	LifeInsurance bool
}
