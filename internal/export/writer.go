package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/guilleripa/itau-cli/internal/model"
)

const fileExt = ".csv"

// AccountFileName names an account export file: {account_id}-{ISO}.csv.
func AccountFileName(acct model.Account) string {
	return fmt.Sprintf("%s-%s%s", acct.ID, acct.Currency.ISO, fileExt)
}

// CardFileName names a card export file: {brand}-{ISO}-{masked}.csv.
func CardFileName(card model.CreditCard, currency string) string {
	return fmt.Sprintf("%s-%s-%s%s", card.Brand, currency, card.Number, fileExt)
}

// Write exports every account and card history into dir, creating it if
// needed. One file per account, one per card-currency pair.
func Write(dir string, accounts []model.Account, cards []model.CreditCard) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	for _, acct := range accounts {
		if err := writeFile(filepath.Join(dir, AccountFileName(acct)), func(f *os.File) error {
			return WriteAccount(f, acct)
		}); err != nil {
			return err
		}
	}

	for _, card := range cards {
		// Stable file order regardless of map iteration.
		currencies := make([]string, 0, len(card.Movements))
		for currency := range card.Movements {
			currencies = append(currencies, currency)
		}
		sort.Strings(currencies)

		for _, currency := range currencies {
			movs := card.Movements[currency]
			if err := writeFile(filepath.Join(dir, CardFileName(card, currency)), func(f *os.File) error {
				return WriteCardMovements(f, movs)
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
