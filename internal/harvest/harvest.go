// Package harvest fans one authenticated session out over every planned
// month of an account or card and folds the per-month outcomes into a
// single date-ordered history. A failed month becomes a logged gap, never
// an aborted harvest.
package harvest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/guilleripa/itau-cli/internal/itau"
	"github.com/guilleripa/itau-cli/internal/model"
	"github.com/guilleripa/itau-cli/internal/months"
	"github.com/guilleripa/itau-cli/internal/normalize"
)

// Source is the slice of the portal session a harvest needs. *itau.Session
// satisfies it.
type Source interface {
	AccountMovements(ctx context.Context, acct model.Account, month months.Month, today time.Time) ([]itau.AccountMovement, error)
	CardMovements(ctx context.Context, card model.CreditCard, month months.Month, today time.Time) ([]itau.CardMovement, error)
	TransactionDetail(ctx context.Context, acct model.Account, tx model.Transaction) (string, error)
}

// Auditor receives one outcome per entity-month. See the runlog package.
type Auditor interface {
	Record(entity, month, status string, records int, detail string)
}

// Config configures a Harvester.
type Config struct {
	Source Source

	// Today is the calendar authority for the whole run: it bounds the
	// month plan, picks current-vs-historical endpoints, and stamps
	// request payloads. Captured once so a month rollover mid-run cannot
	// split the harvest.
	Today time.Time

	Logger zerolog.Logger

	// Audit optionally records per-month outcomes. Nil disables auditing.
	Audit Auditor
}

// Harvester pulls movement history for accounts and cards.
type Harvester struct {
	source Source
	today  time.Time
	log    zerolog.Logger
	audit  Auditor
}

// New creates a Harvester.
func New(cfg Config) *Harvester {
	return &Harvester{source: cfg.Source, today: cfg.Today, log: cfg.Logger, audit: cfg.Audit}
}

// Run harvests every account and card, populating their histories in place.
func (h *Harvester) Run(ctx context.Context, accounts []model.Account, cards []model.CreditCard, accountsFrom, cardsFrom time.Time) {
	for i := range accounts {
		accounts[i].Transactions = h.AccountTransactions(ctx, accounts[i], accountsFrom)
	}
	for i := range cards {
		cards[i].Movements = h.CardMovements(ctx, cards[i], cardsFrom)
	}
}

// AccountTransactions fetches and normalizes the account's history from the
// month containing from up to today, sorted by date ascending. Phase one
// fetches all months concurrently; phase two resolves beneficiaries
// sequentially over the flagged subset.
func (h *Harvester) AccountTransactions(ctx context.Context, acct model.Account, from time.Time) []model.Transaction {
	plan := months.Plan(from, h.today)
	results := fetchMonths(ctx, plan, func(ctx context.Context, m months.Month) ([]itau.AccountMovement, error) {
		return h.source.AccountMovements(ctx, acct, m, h.today)
	})

	var txs []model.Transaction
	for _, res := range results {
		if res.err != nil {
			fe := &FetchError{Entity: acct.ID, Month: res.month, Err: res.err}
			h.log.Warn().Str("account", acct.ID).Stringer("month", res.month).Err(fe).Msg("month fetch failed")
			h.record(acct.ID, res.month, StatusFailed, 0, res.err.Error())
			continue
		}
		kept := 0
		for _, raw := range res.rows {
			tx, err := normalize.Transaction(raw)
			if err != nil {
				h.log.Warn().Str("account", acct.ID).Stringer("month", res.month).Err(err).Msg("dropping movement")
				continue
			}
			txs = append(txs, tx)
			kept++
		}
		h.record(acct.ID, res.month, StatusOK, kept, "")
	}

	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })
	h.resolveBeneficiaries(ctx, acct, txs)
	return txs
}

// CardMovements fetches and normalizes the card's history from the month
// containing from up to today, grouped by ISO currency and sorted by date
// ascending within each group.
func (h *Harvester) CardMovements(ctx context.Context, card model.CreditCard, from time.Time) map[string][]model.CardMovement {
	plan := months.Plan(from, h.today)
	results := fetchMonths(ctx, plan, func(ctx context.Context, m months.Month) ([]itau.CardMovement, error) {
		return h.source.CardMovements(ctx, card, m, h.today)
	})

	var movs []model.CardMovement
	for _, res := range results {
		if res.err != nil {
			fe := &FetchError{Entity: card.Number, Month: res.month, Err: res.err}
			h.log.Warn().Str("card", card.Number).Stringer("month", res.month).Err(fe).Msg("month fetch failed")
			h.record(card.Number, res.month, StatusFailed, 0, res.err.Error())
			continue
		}
		kept := 0
		for _, raw := range res.rows {
			mov, err := normalize.Card(raw)
			if err != nil {
				h.log.Warn().Str("card", card.Number).Stringer("month", res.month).Err(err).Msg("dropping movement")
				continue
			}
			if mov == nil {
				// Payment receipt, already on the account side.
				continue
			}
			movs = append(movs, *mov)
			kept++
		}
		h.record(card.Number, res.month, StatusOK, kept, "")
	}

	sort.SliceStable(movs, func(i, j int) bool { return movs[i].Date.Before(movs[j].Date) })

	byCurrency := make(map[string][]model.CardMovement)
	for _, mov := range movs {
		byCurrency[mov.Currency] = append(byCurrency[mov.Currency], mov)
	}
	return byCurrency
}

// resolveBeneficiaries is the sequential second phase of an account harvest.
// Receipt lookups stay out of the concurrent phase so they cannot multiply
// the request burst against the portal.
func (h *Harvester) resolveBeneficiaries(ctx context.Context, acct model.Account, txs []model.Transaction) {
	for i := range txs {
		if !txs[i].Meta.BeneficiaryPending {
			continue
		}
		txs[i].Meta.BeneficiaryPending = false
		beneficiary, err := h.source.TransactionDetail(ctx, acct, txs[i])
		if err != nil {
			// The transaction still ships, just without a beneficiary.
			h.log.Warn().Str("account", acct.ID).Time("date", txs[i].Date).Err(err).Msg("beneficiary lookup failed")
			continue
		}
		txs[i].Meta.Beneficiary = beneficiary
	}
}

func (h *Harvester) record(entity string, month months.Month, status string, records int, detail string) {
	if h.audit == nil {
		return
	}
	h.audit.Record(entity, month.String(), status, records, detail)
}

// monthResult is the outcome of one month-fetch before folding.
type monthResult[R any] struct {
	month months.Month
	rows  []R
	err   error
}

// fetchMonths issues one fetch per planned month, all concurrent, and
// returns the outcomes in plan order.
func fetchMonths[R any](ctx context.Context, plan []months.Month, fetch func(context.Context, months.Month) ([]R, error)) []monthResult[R] {
	results := make([]monthResult[R], len(plan))
	var wg sync.WaitGroup
	for i, m := range plan {
		i, m := i, m
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := fetch(ctx, m)
			results[i] = monthResult[R]{month: m, rows: rows, err: err}
		}()
	}
	wg.Wait()
	return results
}
