package itau

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/guilleripa/itau-cli/internal/model"
	"github.com/guilleripa/itau-cli/internal/months"
)

const (
	cardsPath  = "/trx/tarjetas/credito"
	acceptJSON = "application/json, text/javascript, */*; q=0.01"

	// currentMonthCode addresses the running month on card endpoints.
	currentMonthCode = "00000000"
)

// Session is an authenticated portal session. The cookie jar inside the
// HTTP client carries the login state; the account and card lists are fixed
// at login and exposed through copying accessors.
type Session struct {
	httpClient *http.Client
	baseURL    string

	accounts []model.Account
	cards    []model.CreditCard
}

// Accounts returns the accounts discovered at login.
func (s *Session) Accounts() []model.Account {
	out := make([]model.Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Cards returns the credit cards discovered at login.
func (s *Session) Cards() []model.CreditCard {
	out := make([]model.CreditCard, len(s.cards))
	copy(out, s.cards)
	return out
}

func (s *Session) discoverCards(ctx context.Context) error {
	data, err := s.postJSON(ctx, s.baseURL+cardsPath, "")
	if err != nil {
		return err
	}

	var cl cardListing
	if err := json.Unmarshal(data, &cl); err != nil {
		return fmt.Errorf("parsing card listing: %w", err)
	}
	for _, pair := range cl.Cards.TarjetaImagen {
		if len(pair) == 0 {
			continue
		}
		var w wireCard
		if err := json.Unmarshal(pair[0], &w); err != nil {
			return fmt.Errorf("parsing card entry: %w", err)
		}
		s.cards = append(s.cards, model.CreditCard{
			ID:         string(w.ID),
			Brand:      w.Brand,
			Number:     maskCardNumber(string(w.Number)),
			Holder:     w.Holder,
			Expiration: w.Expiration.Time(),
			Hash:       w.Hash,
		})
	}
	return nil
}

// maskCardNumber keeps the first and last four digits. Values too short to
// mask pass through unchanged.
func maskCardNumber(number string) string {
	if len(number) <= 8 {
		return number
	}
	return number[:4] + "XXXXXXXX" + number[len(number)-4:]
}

// AccountMovements fetches one month of raw movements for an account. The
// running month lives on a different endpoint than past months; today is
// the calendar date captured at the start of the run.
func (s *Session) AccountMovements(ctx context.Context, acct model.Account, month months.Month, today time.Time) ([]AccountMovement, error) {
	current := month == months.Of(today)

	var u string
	if current {
		u = fmt.Sprintf("%s/trx/cuentas/%s/%s/mesActual", s.baseURL, acct.TypeID, acct.Hash)
	} else {
		u = fmt.Sprintf("%s/trx/cuentas/%s/%s/%02d/%02d/consultaHistorica",
			s.baseURL, acct.TypeID, acct.Hash, int(month.Month), month.Year%100)
	}

	// The frontend sends this exact colon-delimited payload on both
	// endpoints, always stamped with today's month and year.
	payload := fmt.Sprintf("0:%s:%s:%02d-%02d:",
		acct.Currency.Code, acct.Hash, int(today.Month()), today.Year()%100)

	data, err := s.postJSON(ctx, u, payload)
	if err != nil {
		return nil, err
	}

	var d accountMonthData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding movements: %w", err)
	}
	// The response shape decides, not the endpoint: the portal occasionally
	// answers a current-month request with the historic layout.
	switch {
	case d.Historic != nil:
		return d.Historic.Movements.Movements, nil
	case d.Current != nil:
		return d.Current.Movements, nil
	default:
		return nil, errors.New("no movement section in response")
	}
}

// CardMovements fetches one month of raw movements for a credit card. Past
// months are addressed by an eight-digit code pinned to the first of the
// month; the running month by a code of all zeros.
func (s *Session) CardMovements(ctx context.Context, card model.CreditCard, month months.Month, today time.Time) ([]CardMovement, error) {
	code := currentMonthCode
	if month != months.Of(today) {
		code = fmt.Sprintf("%04d%02d01", month.Year, int(month.Month))
	}
	u := fmt.Sprintf("%s/trx/tarjetas/credito/%s/movimientos_actuales/%s", s.baseURL, card.Hash, code)

	data, err := s.postJSON(ctx, u, "")
	if err != nil {
		return nil, err
	}

	var d cardMonthData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding card movements: %w", err)
	}
	if d.Movs == nil {
		return nil, errors.New("datosMovs missing from response")
	}
	return d.Movs.Movements, nil
}

// TransactionDetail looks up the receipt behind a movement and returns the
// beneficiary line with its leading reference code stripped.
func (s *Session) TransactionDetail(ctx context.Context, acct model.Account, tx model.Transaction) (string, error) {
	u := fmt.Sprintf("%s/trx/cuentas/%s/%s/%s/%02d/%s/%04d/cargarComprobante",
		s.baseURL, acct.TypeID, url.PathEscape(tx.Description), acct.Hash,
		tx.Date.Day(), strings.ToUpper(tx.Date.Format("Jan")), tx.Date.Year())

	data, err := s.postJSON(ctx, u, "{}")
	if err != nil {
		return "", err
	}

	var d detailData
	if err := json.Unmarshal(data, &d); err != nil {
		return "", fmt.Errorf("decoding detail: %w", err)
	}
	if d.Form == nil {
		return "", errors.New("detail form missing from response")
	}
	return stripBeneficiaryPrefix(d.Form.Beneficiary), nil
}

// stripBeneficiaryPrefix drops the reference code the portal prepends to
// the beneficiary name. A value without whitespace comes back unchanged.
func stripBeneficiaryPrefix(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return strings.TrimLeftFunc(s[i:], unicode.IsSpace)
	}
	return s
}

// postJSON issues a POST the way the portal's own frontend does and returns
// the payload found under the itaulink_msg.data envelope.
func (s *Session) postJSON(ctx context.Context, u, body string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", acceptJSON)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: u}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(env.Msg.Data) == 0 {
		return nil, errors.New("itaulink_msg.data missing from response")
	}
	return env.Msg.Data, nil
}
