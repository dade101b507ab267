package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the normalized direction of a movement.
type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

// Transaction is a normalized account movement. Amount is always a
// non-negative magnitude; Type carries the direction.
type Transaction struct {
	Date                  time.Time
	Description           string
	AdditionalDescription string
	Type                  TransactionType
	Amount                decimal.Decimal
	Balance               decimal.Decimal // account balance after the movement
	Meta                  TxMeta
}

// TxMeta holds classification flags derived from the description.
type TxMeta struct {
	DebitCardPurchase bool
	ATM               bool
	BankCosts         bool
	BankTransfer      bool
	BankTransferFrom  string // digits of the source account
	BankTransferTo    string // digits of the destination account
	TaxReturn         bool

	Beneficiary        string
	BeneficiaryPending bool // set by the normalizer, cleared by the detail pass
}
