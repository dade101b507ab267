// Package normalize maps the portal's raw movement payloads onto the
// canonical Transaction and CardMovement records. Classification runs as an
// ordered table of description rules so each rule stays independently
// testable.
package normalize

import (
	"strings"

	"github.com/guilleripa/itau-cli/internal/itau"
	"github.com/guilleripa/itau-cli/internal/model"
)

// txRule classifies one description pattern on an account movement. Rules
// run in table order and each sees the transaction as earlier rules left it.
type txRule struct {
	match func(desc string) bool
	apply func(tx *model.Transaction)
}

var txRules = []txRule{
	{
		// Obscured outgoing transfer. The real beneficiary only exists on
		// the receipt, so the transaction is flagged for the detail pass.
		match: contains("DEB. CAMBIOSS"),
		apply: func(tx *model.Transaction) { tx.Meta.BeneficiaryPending = true },
	},
	{
		match: prefix("COMPRA "),
		apply: func(tx *model.Transaction) { tx.Meta.DebitCardPurchase = true },
	},
	{
		// ATM withdrawals carry a machine-specific suffix that only adds
		// noise; the description collapses to the network name.
		match: prefix("RETIRO "),
		apply: func(tx *model.Transaction) {
			tx.Meta.ATM = true
			tx.Description = "RETIRO BANRED"
		},
	},
	{
		match: prefix("DEBITO BANKING CARD"),
		apply: func(tx *model.Transaction) { tx.Meta.BankCosts = true },
	},
	{
		match: prefix("TRASPASO DE"),
		apply: func(tx *model.Transaction) {
			tx.Meta.BankTransfer = true
			tx.Meta.BankTransferFrom = digits(tx.Description)
		},
	},
	{
		match: prefix("TRASPASO A"),
		apply: func(tx *model.Transaction) {
			tx.Meta.BankTransfer = true
			tx.Meta.BankTransferTo = digits(tx.Description)
		},
	},
	{
		match: prefix("REDIVA 1921"),
		apply: func(tx *model.Transaction) { tx.Meta.TaxReturn = true },
	},
}

// Transaction normalizes one raw account movement. A tipo other than "D" or
// "C" is an UnknownTypeError and the record must be dropped by the caller.
func Transaction(raw itau.AccountMovement) (model.Transaction, error) {
	var typ model.TransactionType
	switch raw.Type {
	case "D":
		typ = model.TypeDebit
	case "C":
		typ = model.TypeCredit
	default:
		return model.Transaction{}, &UnknownTypeError{Type: raw.Type}
	}

	tx := model.Transaction{
		Date:                  raw.Date.Time(),
		Description:           collapseSpace(raw.Description),
		AdditionalDescription: collapseSpace(raw.AdditionalDescription),
		Type:                  typ,
		Amount:                raw.Amount.Abs(),
		Balance:               raw.Balance,
	}

	for _, rule := range txRules {
		if rule.match(tx.Description) {
			rule.apply(&tx)
		}
	}
	return tx, nil
}

// cardRule classifies one merchant-name pattern on a card movement.
type cardRule struct {
	match func(desc string) bool
	apply func(mov *model.CardMovement)
}

var cardRules = []cardRule{
	{
		match: anyPrefix("REDUC. IVA LEY", "DEVOLUCION DE IVA LEY"),
		apply: func(mov *model.CardMovement) { mov.Meta.TaxReturn = true },
	},
	{
		match: prefix("COSTO DE TARJETA"),
		apply: func(mov *model.CardMovement) { mov.Meta.BankCosts = true },
	},
	{
		match: prefix("SEGURO DE VIDA SOBRE SALDO"),
		apply: func(mov *model.CardMovement) { mov.Meta.LifeInsurance = true },
	},
}

// paymentReceipt is the raw type of a card-bill payment. Those rows already
// exist as movements on the paying account, so they never enter the ledger.
const paymentReceipt = "recibo de pago"

// Card normalizes one raw card movement. Payment receipts come back as
// (nil, nil); an unrecognized currency is an UnknownCurrencyError and the
// record must be dropped by the caller.
func Card(raw itau.CardMovement) (*model.CardMovement, error) {
	var currency string
	switch strings.ToLower(raw.Currency) {
	case "dolares", "dólares":
		currency = "USD"
	case "pesos":
		currency = "UYU"
	default:
		return nil, &UnknownCurrencyError{Currency: raw.Currency}
	}

	if strings.TrimSpace(strings.ToLower(raw.Type)) == paymentReceipt {
		return nil, nil
	}

	mov := model.CardMovement{
		Date:        raw.Date.Time(),
		Description: collapseSpace(raw.Merchant),
		Currency:    currency,
		Coupon:      string(raw.Coupon),
	}
	if raw.Amount.IsNegative() {
		mov.Type = model.TypeCredit
		mov.Amount = raw.Amount.Neg()
	} else {
		mov.Type = model.TypeDebit
		mov.Amount = raw.Amount
	}

	for _, rule := range cardRules {
		if rule.match(mov.Description) {
			rule.apply(&mov)
		}
	}
	return &mov, nil
}

func prefix(p string) func(string) bool {
	return func(desc string) bool { return strings.HasPrefix(desc, p) }
}

func anyPrefix(ps ...string) func(string) bool {
	return func(desc string) bool {
		for _, p := range ps {
			if strings.HasPrefix(desc, p) {
				return true
			}
		}
		return false
	}
}

func contains(s string) func(string) bool {
	return func(desc string) bool { return strings.Contains(desc, s) }
}

// collapseSpace reduces any run of whitespace to a single space and trims
// the ends.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// digits keeps only the ASCII digits of s.
func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
