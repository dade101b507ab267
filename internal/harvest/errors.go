package harvest

import (
	"fmt"

	"github.com/guilleripa/itau-cli/internal/months"
)

// Audit statuses recorded per entity-month.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// FetchError is one failed month-fetch. It is folded into the harvest as a
// gap and never propagated past the orchestrator.
type FetchError struct {
	Entity string
	Month  months.Month
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("harvest: fetching %s for %s: %v", e.Month, e.Entity, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
