// Package export serializes harvested histories into tab-delimited CSV
// files, one per account and one per card-currency pair. The column layout
// is a fixed contract for downstream consumers: debit and credit live in
// separate columns and classification flags are always present, empty when
// unset.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/guilleripa/itau-cli/internal/model"
)

// Delimiter separates the columns of every exported file.
const Delimiter = '\t'

// AccountHeader is the header row of an account export file.
const AccountHeader = "account,currency,date,description,additional_description,type,debit,credit,balance,debit_card_purchase,atm,bank_transfer,tax_return,beneficiary"

// CardHeader is the header row of a card export file.
const CardHeader = "coupon,currency,date,description,type,debit,credit,tax_return,bank_costs,life_insurance"

const dateFormat = "2006-01-02"

const (
	accNumFields   = 14
	accColAccount  = 0
	accColCurrency = 1
	accColDate     = 2
	accColDesc     = 3
	accColAddDesc  = 4
	accColType     = 5
	accColDebit    = 6
	accColCredit   = 7
	accColBalance  = 8
	accColPurchase = 9
	accColATM      = 10
	accColTransfer = 11
	accColTaxRet   = 12
	accColBenef    = 13
)

const (
	cardNumFields   = 10
	cardColCoupon   = 0
	cardColCurrency = 1
	cardColDate     = 2
	cardColDesc     = 3
	cardColType     = 4
	cardColDebit    = 5
	cardColCredit   = 6
	cardColTaxRet   = 7
	cardColCosts    = 8
	cardColLifeIns  = 9
)

// WriteAccount writes an account's transactions (header included) to w.
func WriteAccount(w io.Writer, acct model.Account) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter
	defer cw.Flush()

	if err := cw.Write(strings.Split(AccountHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, tx := range acct.Transactions {
		if err := cw.Write(MarshalTransaction(acct, tx)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// WriteCardMovements writes one currency's movements (header included) to w.
func WriteCardMovements(w io.Writer, movs []model.CardMovement) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter
	defer cw.Flush()

	if err := cw.Write(strings.Split(CardHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, mov := range movs {
		if err := cw.Write(MarshalCardMovement(mov)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row ([]string).
func MarshalTransaction(acct model.Account, tx model.Transaction) []string {
	row := make([]string, accNumFields)
	row[accColAccount] = acct.ID
	row[accColCurrency] = acct.Currency.ISO
	row[accColDate] = tx.Date.Format(dateFormat)
	row[accColDesc] = tx.Description
	row[accColAddDesc] = tx.AdditionalDescription
	row[accColType] = string(tx.Type)

	amount := tx.Amount.StringFixed(2)
	if tx.Type == model.TypeDebit {
		row[accColDebit] = amount
	} else {
		row[accColCredit] = amount
	}

	row[accColBalance] = tx.Balance.StringFixed(2)
	row[accColPurchase] = flag(tx.Meta.DebitCardPurchase)
	row[accColATM] = flag(tx.Meta.ATM)
	row[accColTransfer] = flag(tx.Meta.BankTransfer)
	row[accColTaxRet] = flag(tx.Meta.TaxReturn)
	row[accColBenef] = tx.Meta.Beneficiary
	return row
}

// MarshalCardMovement converts a CardMovement to a CSV row ([]string).
func MarshalCardMovement(mov model.CardMovement) []string {
	row := make([]string, cardNumFields)
	row[cardColCoupon] = mov.Coupon
	row[cardColCurrency] = mov.Currency
	row[cardColDate] = mov.Date.Format(dateFormat)
	row[cardColDesc] = mov.Description
	row[cardColType] = string(mov.Type)

	amount := mov.Amount.StringFixed(2)
	if mov.Type == model.TypeDebit {
		row[cardColDebit] = amount
	} else {
		row[cardColCredit] = amount
	}

	row[cardColTaxRet] = flag(mov.Meta.TaxReturn)
	row[cardColCosts] = flag(mov.Meta.BankCosts)
	row[cardColLifeIns] = flag(mov.Meta.LifeInsurance)
	return row
}

func flag(b bool) string {
	if b {
		return "true"
	}
	return ""
}
