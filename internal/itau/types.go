package itau

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// envelope is the wrapper the portal puts around every JSON response.
type envelope struct {
	Msg envelopeMsg `json:"itaulink_msg"`
}

type envelopeMsg struct {
	Data json.RawMessage `json:"data"`
}

// FlexString decodes JSON values the portal serves inconsistently as either
// strings or bare numbers, such as account ids and coupon ids.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	*s = FlexString(b)
	return nil
}

// Date is the portal's exploded calendar date.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"monthOfYear"`
	Day   int `json:"dayOfMonth"`
}

// Time converts to a UTC time at midnight.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// AccountMovement is one raw row from an account month endpoint.
type AccountMovement struct {
	Type                  string          `json:"tipo"`
	Description           string          `json:"descripcion"`
	AdditionalDescription string          `json:"descripcionAdicional"`
	Amount                decimal.Decimal `json:"importe"`
	Balance               decimal.Decimal `json:"saldo"`
	Date                  Date            `json:"fecha"`
}

// CardMovement is one raw row from a card month endpoint.
type CardMovement struct {
	Currency string          `json:"moneda"`
	Type     string          `json:"tipo"`
	Merchant string          `json:"nombreComercio"`
	Date     Date            `json:"fecha"`
	Amount   decimal.Decimal `json:"importe"`
	Coupon   FlexString      `json:"idCupon"`
}

// accountListing is the JSON embedded in the post-login home page.
type accountListing struct {
	Cuentas accountGroups `json:"cuentas"`
}

// accountGroups carries one slice per account family. Discovery iterates
// them in this fixed order so output stays stable.
type accountGroups struct {
	Savings       []wireAccount `json:"caja_de_ahorro"`
	Transactional []wireAccount `json:"cuenta_corriente"`
	Collections   []wireAccount `json:"cuenta_recaudadora"`
	JuniorSavings []wireAccount `json:"cuenta_de_ahorro_junior"`
}

type wireAccount struct {
	Currency string          `json:"moneda"`
	ID       FlexString      `json:"idCuenta"`
	Holder   string          `json:"nombreTitular"`
	Hash     string          `json:"hash"`
	Balance  decimal.Decimal `json:"saldo"`
	TypeID   FlexString      `json:"tipoCuenta"`
}

// cardListing wraps the card discovery payload. Each tarjetaImagen entry is
// a two-element array of card JSON followed by an image blob.
type cardListing struct {
	Cards struct {
		TarjetaImagen [][]json.RawMessage `json:"tarjetaImagen"`
	} `json:"objetosTarjetaCredito"`
}

type wireCard struct {
	Brand      string     `json:"sello"`
	Number     FlexString `json:"nroTarjetaTitular"`
	Expiration Date       `json:"fechaVencimiento"`
	Holder     string     `json:"nombreTitular"`
	ID         FlexString `json:"id"`
	Hash       string     `json:"hash"`
}

// accountMonthData distinguishes the two shapes a month of account
// movements arrives in: past months under mapaHistoricos, the running
// month under movimientosMesActual.
type accountMonthData struct {
	Historic *struct {
		Movements struct {
			Movements []AccountMovement `json:"movimientos"`
		} `json:"movimientosHistoricos"`
	} `json:"mapaHistoricos"`
	Current *struct {
		Movements []AccountMovement `json:"movimientos"`
	} `json:"movimientosMesActual"`
}

type cardMonthData struct {
	Movs *struct {
		Movements []CardMovement `json:"movimientos"`
	} `json:"datosMovs"`
}

type detailData struct {
	Form *struct {
		Beneficiary string `json:"beneficiario"`
	} `json:"form"`
}
