package model

import "github.com/shopspring/decimal"

// AccountType classifies the account groupings the portal reports at login.
type AccountType string

const (
	AccountTypeSavings       AccountType = "savings_account"
	AccountTypeTransactional AccountType = "transactional_account"
	AccountTypeCollections   AccountType = "collections_account"
	AccountTypeJuniorSavings AccountType = "junior_savings_account"
)

// Currency pairs the portal's internal currency code with its ISO name and
// the display symbol shown in the web UI.
type Currency struct {
	Code    string // portal code ("URGP", "US.D"), still needed in request payloads
	ISO     string // "UYU", "USD"
	Display string // "$", "U$S"
}

// Account is a bank account discovered at login. Transactions is populated
// once by the harvester; every other field is fixed at discovery.
type Account struct {
	ID       string
	Type     AccountType
	TypeID   string // opaque portal id, appears as a path segment in movement URLs
	Currency Currency
	Holder   string
	Hash     string
	Balance  decimal.Decimal

	Transactions []Transaction
}
