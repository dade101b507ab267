// Package itau talks to the ItauLink online-banking portal: login, account
// and card discovery, month-by-month movement history, and receipt lookups.
package itau

import (
	"errors"
	"fmt"
)

// ErrAuthentication is returned when login does not produce an account
// listing. It is the only error that should abort a harvest; everything
// after login degrades per account or per month.
var ErrAuthentication = errors.New("itau: authentication failed")

// StatusError reports an unexpected HTTP status from the portal.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("itau: unexpected status %d from %s", e.StatusCode, e.URL)
}
