package itau

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/guilleripa/itau-cli/internal/model"
)

// DefaultBaseURL is the production ItauLink portal.
const DefaultBaseURL = "https://www.itaulink.com.uy"

const loginPath = "/trx/doLogin"

// listingPattern finds the account listing JSON the portal embeds in the
// post-login home page. The payload may span lines, so the body is
// flattened before matching.
var listingPattern = regexp.MustCompile(`var mensajeUsuario = JSON\.parse\('(.*?)'`)

// currencies maps the portal's internal currency codes.
var currencies = map[string]model.Currency{
	"URGP": {Code: "URGP", ISO: "UYU", Display: "$"},
	"US.D": {Code: "US.D", ISO: "USD", Display: "U$S"},
}

// ClientConfig configures the portal client.
type ClientConfig struct {
	// BaseURL overrides the production portal URL (for testing).
	BaseURL string

	// HTTPClient is an optional custom HTTP client. The portal tracks
	// login state in cookies, so a jar is attached when it has none.
	HTTPClient *http.Client

	// Timeout is the request timeout when no HTTPClient is given.
	Timeout time.Duration

	// Logger receives discovery output and degradation warnings.
	Logger zerolog.Logger
}

// Client logs in to the portal and hands out authenticated sessions.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        zerolog.Logger
}

// NewClient creates a portal client.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	return &Client{httpClient: httpClient, baseURL: baseURL, log: cfg.Logger}, nil
}

// Login authenticates against the portal and discovers accounts and credit
// cards. Login failure is fatal; card discovery failure only leaves the
// card list empty.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	form := url.Values{
		"segmento":       {"panelPersona"},
		"empresa_aux":    {username},
		"pwd_empresa":    {password},
		"usuario_aux":    {""},
		"tipo_documento": {"1"},
		"nro_documento":  {username},
		"pass":           {password},
		"password":       {password},
		"pwd_usuario":    {""},
		"empresa":        {""},
		"usuario":        {""},
		"id":             {"login"},
		"tipo_usuario":   {"R"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// The portal expects a browser-looking login; these match what its own
	// public frontend sends.
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-ES,es;q=0.8,en;q=0.6,pt;q=0.4")
	req.Header.Set("Origin", "https://www.itau.com.uy")
	req.Header.Set("Referer", "https://www.itau.com.uy/inst/")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	// The portal answers with a redirect chain that ends on the home page;
	// the jar collects the session cookies along the way.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading login response: %w", err)
	}

	listing, err := extractAccountListing(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	accounts, err := parseAccounts(listing, c.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	s := &Session{
		httpClient: c.httpClient,
		baseURL:    c.baseURL,
		accounts:   accounts,
	}

	if err := s.discoverCards(ctx); err != nil {
		c.log.Warn().Err(err).Msg("credit card discovery failed")
	}

	for _, a := range s.accounts {
		c.log.Info().
			Str("account", a.ID).
			Str("type", string(a.Type)).
			Str("currency", a.Currency.ISO).
			Str("balance", a.Balance.StringFixed(2)).
			Msg("discovered account")
	}
	for _, card := range s.cards {
		c.log.Info().
			Str("card", card.Number).
			Str("brand", card.Brand).
			Msg("discovered credit card")
	}

	return s, nil
}

// extractAccountListing pulls the embedded listing JSON out of the home
// page HTML.
func extractAccountListing(body []byte) ([]byte, error) {
	flat := bytes.ReplaceAll(body, []byte("\n"), nil)
	m := listingPattern.FindSubmatch(flat)
	if m == nil {
		return nil, errors.New("no account listing in login response")
	}
	return m[1], nil
}

func parseAccounts(listing []byte, log zerolog.Logger) ([]model.Account, error) {
	var al accountListing
	if err := json.Unmarshal(listing, &al); err != nil {
		return nil, fmt.Errorf("parsing account listing: %w", err)
	}

	groups := []struct {
		typ   model.AccountType
		wires []wireAccount
	}{
		{model.AccountTypeSavings, al.Cuentas.Savings},
		{model.AccountTypeTransactional, al.Cuentas.Transactional},
		{model.AccountTypeCollections, al.Cuentas.Collections},
		{model.AccountTypeJuniorSavings, al.Cuentas.JuniorSavings},
	}

	var accounts []model.Account
	for _, g := range groups {
		for _, w := range g.wires {
			cur, ok := currencies[w.Currency]
			if !ok {
				log.Warn().
					Str("account", string(w.ID)).
					Str("currency", w.Currency).
					Msg("unknown currency, skipping account")
				continue
			}
			accounts = append(accounts, model.Account{
				ID:       string(w.ID),
				Type:     g.typ,
				TypeID:   string(w.TypeID),
				Currency: cur,
				Holder:   w.Holder,
				Hash:     w.Hash,
				Balance:  w.Balance,
			})
		}
	}
	return accounts, nil
}
