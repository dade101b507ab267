package normalize

import "fmt"

// UnknownTypeError reports an account movement whose tipo is neither "D"
// nor "C".
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("normalize: unknown transaction type %q", e.Type)
}

// UnknownCurrencyError reports a card movement in a currency the portal is
// not known to issue cards in.
type UnknownCurrencyError struct {
	Currency string
}

func (e *UnknownCurrencyError) Error() string {
	return fmt.Sprintf("normalize: unknown currency %q", e.Currency)
}
