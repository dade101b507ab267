package harvest

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guilleripa/itau-cli/internal/itau"
	"github.com/guilleripa/itau-cli/internal/logger"
	"github.com/guilleripa/itau-cli/internal/model"
	"github.com/guilleripa/itau-cli/internal/months"
)

var (
	harvestToday = time.Date(2021, time.July, 15, 0, 0, 0, 0, time.UTC)
	harvestEpoch = time.Date(2021, time.May, 1, 0, 0, 0, 0, time.UTC)

	usdAccount = model.Account{
		ID:       "987654",
		Type:     model.AccountTypeTransactional,
		TypeID:   "2",
		Currency: model.Currency{Code: "US.D", ISO: "USD", Display: "U$S"},
		Hash:     "hash-usd",
	}
	visaCard = model.CreditCard{Brand: "VISA", Number: "1234XXXXXXXX5678", Hash: "hash-card"}
)

// fakeSource serves canned per-month payloads and records detail lookups.
type fakeSource struct {
	mu          sync.Mutex
	acctMonths  map[months.Month][]itau.AccountMovement
	acctErrs    map[months.Month]error
	cardMonths  map[months.Month][]itau.CardMovement
	cardErrs    map[months.Month]error
	beneficiary string
	detailErr   error
	detailCalls []string
}

func (f *fakeSource) AccountMovements(_ context.Context, _ model.Account, m months.Month, today time.Time) ([]itau.AccountMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.acctErrs[m]; err != nil {
		return nil, err
	}
	return f.acctMonths[m], nil
}

func (f *fakeSource) CardMovements(_ context.Context, _ model.CreditCard, m months.Month, today time.Time) ([]itau.CardMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.cardErrs[m]; err != nil {
		return nil, err
	}
	return f.cardMonths[m], nil
}

func (f *fakeSource) TransactionDetail(_ context.Context, _ model.Account, tx model.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls = append(f.detailCalls, tx.Description)
	if f.detailErr != nil {
		return "", f.detailErr
	}
	return f.beneficiary, nil
}

// recordingAuditor collects Record calls for assertions.
type recordingAuditor struct {
	mu      sync.Mutex
	records []string
	status  map[string]string
}

func (a *recordingAuditor) Record(entity, month, status string, records int, detail string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == nil {
		a.status = make(map[string]string)
	}
	a.records = append(a.records, entity+" "+month)
	a.status[month] = status
}

func movement(tipo, desc string, day int, month time.Month, amount string) itau.AccountMovement {
	return itau.AccountMovement{
		Type:        tipo,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Balance:     decimal.RequireFromString("1000"),
		Date:        itau.Date{Year: 2021, Month: int(month), Day: day},
	}
}

func TestAccountTransactionsSurvivesFailedMonth(t *testing.T) {
	src := &fakeSource{
		acctMonths: map[months.Month][]itau.AccountMovement{
			{Year: 2021, Month: time.July}: {movement("D", "COMPRA DISCO", 6, time.July, "350")},
			{Year: 2021, Month: time.May}:  {movement("C", "PAGO SUELDO", 20, time.May, "500")},
		},
		acctErrs: map[months.Month]error{
			{Year: 2021, Month: time.June}: errors.New("connection reset"),
		},
	}
	var logBuf bytes.Buffer
	audit := &recordingAuditor{}
	h := New(Config{Source: src, Today: harvestToday, Logger: logger.NewWithWriter(&logBuf), Audit: audit})

	txs := h.AccountTransactions(context.Background(), usdAccount, harvestEpoch)

	// The two healthy months survive, date ascending.
	require.Len(t, txs, 2)
	assert.Equal(t, "PAGO SUELDO", txs[0].Description)
	assert.Equal(t, "COMPRA DISCO", txs[1].Description)
	assert.True(t, txs[0].Date.Before(txs[1].Date))

	// The failed month is logged and audited, not propagated.
	assert.Contains(t, logBuf.String(), "2021-06")
	assert.Contains(t, logBuf.String(), "connection reset")
	assert.Equal(t, StatusFailed, audit.status["2021-06"])
	assert.Equal(t, StatusOK, audit.status["2021-07"])
	assert.Equal(t, StatusOK, audit.status["2021-05"])
	assert.Len(t, audit.records, 3)
}

func TestAccountTransactionsDropsUnknownType(t *testing.T) {
	src := &fakeSource{
		acctMonths: map[months.Month][]itau.AccountMovement{
			{Year: 2021, Month: time.July}: {
				movement("X", "MOVIMIENTO RARO", 2, time.July, "10"),
				movement("D", "COMPRA DISCO", 6, time.July, "350"),
			},
		},
	}
	var logBuf bytes.Buffer
	h := New(Config{Source: src, Today: harvestToday, Logger: logger.NewWithWriter(&logBuf)})

	txs := h.AccountTransactions(context.Background(), usdAccount, harvestToday)

	require.Len(t, txs, 1)
	assert.Equal(t, "COMPRA DISCO", txs[0].Description)
	assert.Contains(t, logBuf.String(), "unknown transaction type")
}

func TestAccountTransactionsResolvesBeneficiaries(t *testing.T) {
	src := &fakeSource{
		acctMonths: map[months.Month][]itau.AccountMovement{
			{Year: 2021, Month: time.July}: {
				movement("D", "DEB. CAMBIOSS 00123", 6, time.July, "350"),
				movement("D", "COMPRA DISCO", 7, time.July, "100"),
			},
		},
		beneficiary: "ACME TRADING SRL",
	}
	h := New(Config{Source: src, Today: harvestToday, Logger: logger.NewWithWriter(&bytes.Buffer{})})

	txs := h.AccountTransactions(context.Background(), usdAccount, harvestToday)
	require.Len(t, txs, 2)

	assert.Equal(t, "ACME TRADING SRL", txs[0].Meta.Beneficiary)
	assert.False(t, txs[0].Meta.BeneficiaryPending)
	assert.Empty(t, txs[1].Meta.Beneficiary)

	// Only the flagged transaction hits the detail endpoint.
	require.Len(t, src.detailCalls, 1)
	assert.Equal(t, "DEB. CAMBIOSS 00123", src.detailCalls[0])
}

func TestAccountTransactionsBeneficiaryLookupFailure(t *testing.T) {
	src := &fakeSource{
		acctMonths: map[months.Month][]itau.AccountMovement{
			{Year: 2021, Month: time.July}: {movement("D", "DEB. CAMBIOSS 00123", 6, time.July, "350")},
		},
		detailErr: errors.New("timeout"),
	}
	var logBuf bytes.Buffer
	h := New(Config{Source: src, Today: harvestToday, Logger: logger.NewWithWriter(&logBuf)})

	txs := h.AccountTransactions(context.Background(), usdAccount, harvestToday)

	// The transaction still ships with an empty beneficiary.
	require.Len(t, txs, 1)
	assert.Empty(t, txs[0].Meta.Beneficiary)
	assert.False(t, txs[0].Meta.BeneficiaryPending)
	assert.Contains(t, logBuf.String(), "beneficiary lookup failed")
}

func cardMovement(moneda, merchant string, day int, month time.Month, amount string) itau.CardMovement {
	return itau.CardMovement{
		Currency: moneda,
		Type:     "COMPRA CONTADO",
		Merchant: merchant,
		Amount:   decimal.RequireFromString(amount),
		Date:     itau.Date{Year: 2021, Month: int(month), Day: day},
		Coupon:   "1",
	}
}

func TestCardMovementsGroupsByCurrency(t *testing.T) {
	receipt := cardMovement("pesos", "PAGO RECIBIDO", 1, time.July, "-50")
	receipt.Type = "recibo de pago"

	src := &fakeSource{
		cardMonths: map[months.Month][]itau.CardMovement{
			{Year: 2021, Month: time.July}: {
				cardMovement("pesos", "DISCO", 3, time.July, "899.90"),
				cardMovement("dolares", "AMAZON", 5, time.July, "19.99"),
				receipt,
			},
			{Year: 2021, Month: time.June}: {
				cardMovement("pesos", "DEVOLUCION DE IVA LEY 17934", 10, time.June, "-30"),
			},
		},
	}
	h := New(Config{Source: src, Today: harvestToday, Logger: logger.NewWithWriter(&bytes.Buffer{})})

	byCurrency := h.CardMovements(context.Background(), visaCard, harvestEpoch)

	require.Len(t, byCurrency, 2)
	uyu := byCurrency["UYU"]
	require.Len(t, uyu, 2)
	assert.Equal(t, "DEVOLUCION DE IVA LEY 17934", uyu[0].Description)
	assert.Equal(t, model.TypeCredit, uyu[0].Type)
	assert.True(t, uyu[0].Meta.TaxReturn)
	assert.Equal(t, "DISCO", uyu[1].Description)

	usd := byCurrency["USD"]
	require.Len(t, usd, 1)
	assert.Equal(t, "AMAZON", usd[0].Description)
}

func TestCardMovementsSurvivesFailedMonth(t *testing.T) {
	src := &fakeSource{
		cardMonths: map[months.Month][]itau.CardMovement{
			{Year: 2021, Month: time.July}: {cardMovement("pesos", "DISCO", 3, time.July, "100")},
		},
		cardErrs: map[months.Month]error{
			{Year: 2021, Month: time.June}: errors.New("bad gateway"),
		},
	}
	var logBuf bytes.Buffer
	audit := &recordingAuditor{}
	h := New(Config{Source: src, Today: harvestToday, Logger: logger.NewWithWriter(&logBuf), Audit: audit})

	byCurrency := h.CardMovements(context.Background(), visaCard, harvestEpoch)

	require.Len(t, byCurrency["UYU"], 1)
	assert.Contains(t, logBuf.String(), "bad gateway")
	assert.Equal(t, StatusFailed, audit.status["2021-06"])
}

func TestCardMovementsDropsUnknownCurrency(t *testing.T) {
	src := &fakeSource{
		cardMonths: map[months.Month][]itau.CardMovement{
			{Year: 2021, Month: time.July}: {cardMovement("euros", "HOTEL", 3, time.July, "100")},
		},
	}
	var logBuf bytes.Buffer
	h := New(Config{Source: src, Today: harvestToday, Logger: logger.NewWithWriter(&logBuf)})

	byCurrency := h.CardMovements(context.Background(), visaCard, harvestToday)

	assert.Empty(t, byCurrency)
	assert.Contains(t, logBuf.String(), "unknown currency")
}

func TestRunPopulatesHistories(t *testing.T) {
	src := &fakeSource{
		acctMonths: map[months.Month][]itau.AccountMovement{
			{Year: 2021, Month: time.July}: {movement("D", "COMPRA DISCO", 6, time.July, "350")},
		},
		cardMonths: map[months.Month][]itau.CardMovement{
			{Year: 2021, Month: time.July}: {cardMovement("pesos", "DISCO", 3, time.July, "100")},
		},
	}
	h := New(Config{Source: src, Today: harvestToday, Logger: logger.NewWithWriter(&bytes.Buffer{})})

	accounts := []model.Account{usdAccount}
	cards := []model.CreditCard{visaCard}
	h.Run(context.Background(), accounts, cards, harvestToday, harvestToday)

	require.Len(t, accounts[0].Transactions, 1)
	require.Len(t, cards[0].Movements["UYU"], 1)
}

func TestFetchErrorMessage(t *testing.T) {
	err := &FetchError{Entity: "987654", Month: months.Month{Year: 2021, Month: time.June}, Err: errors.New("boom")}
	assert.Equal(t, "harvest: fetching 2021-06 for 987654: boom", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "boom")
}
