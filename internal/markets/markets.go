// Package markets contiene el catálogo fijo de mercados: IVA, zona horaria y
// campaña de Impact por defecto.
package markets

import (
	"fmt"
	"sort"
	"strings"
	"time"
	_ "time/tzdata" // imágenes distroless sin zoneinfo

	"github.com/shopspring/decimal"
)

// vatPercent es el IVA estándar por mercado, en porcentaje entero.
var vatPercent = map[string]int64{
	"DK": 25,
	"NO": 25,
	"UK": 20,
	"BE": 21,
	"NL": 21,
	"SE": 25,
	"DE": 19,
	"FR": 20,
	"IT": 22,
	"ES": 21,
	"PL": 23,
}

var timeZones = map[string]string{
	"DE": "Europe/Berlin",
	"FR": "Europe/Paris",
	"UK": "Europe/London",
	"DK": "Europe/Copenhagen",
	"NO": "Europe/Oslo",
	"BE": "Europe/Brussels",
	"NL": "Europe/Amsterdam",
	"SE": "Europe/Stockholm",
	"IT": "Europe/Rome",
	"ES": "Europe/Madrid",
	"PL": "Europe/Warsaw",
}

// DefaultCampaigns mapea campaña de Impact → mercado.
var DefaultCampaigns = map[int64]string{
	30761: "DK",
	30894: "NO",
	30860: "UK",
	30764: "BE",
	30765: "NL",
	30859: "SE",
	32026: "DE",
	30762: "FR",
	30768: "IT",
	30769: "ES",
	30861: "PL",
}

// UnknownVATMarketError: el mercado no tiene IVA en la tabla.
type UnknownVATMarketError struct {
	Market string
}

func (e *UnknownVATMarketError) Error() string {
	return fmt.Sprintf("no VAT rate configured for market %q", e.Market)
}

func normalize(market string) string {
	return strings.ToUpper(strings.TrimSpace(market))
}

// VATRate devuelve el IVA del mercado en porcentaje.
func VATRate(market string) (int64, error) {
	rate, ok := vatPercent[normalize(market)]
	if !ok {
		return 0, &UnknownVATMarketError{Market: market}
	}
	return rate, nil
}

// HasVAT indica si el mercado tiene IVA en la tabla.
func HasVAT(market string) bool {
	_, ok := vatPercent[normalize(market)]
	return ok
}

var hundred = decimal.NewFromInt(100)

// ExcludeVAT quita el IVA a un importe bruto: gross / (1 + rate/100),
// redondeado a 2 decimales con half-up.
func ExcludeVAT(gross int64, market string) (decimal.Decimal, error) {
	rate, err := VATRate(market)
	if err != nil {
		return decimal.Zero, err
	}
	divisor := hundred.Add(decimal.NewFromInt(rate))
	net := decimal.NewFromInt(gross).Mul(hundred).Div(divisor)
	return net.Round(2), nil
}

// Location devuelve la zona horaria del mercado. Mercados sin zona usan UTC.
func Location(market string) (*time.Location, error) {
	name, ok := timeZones[normalize(market)]
	if !ok {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %s for %s: %w", name, market, err)
	}
	return loc, nil
}

const (
	DateLayout      = "2006-01-02"
	impactUTCLayout = "2006-01-02T15:04:05Z"
)

// DayBoundsUTC convierte [start 00:00:00, end 23:59:59] del día local del
// mercado a timestamps UTC en el formato que espera Impact.
func DayBoundsUTC(market, startDate, endDate string) (string, string, error) {
	loc, err := Location(market)
	if err != nil {
		return "", "", err
	}
	start, err := time.ParseInLocation(DateLayout, startDate, loc)
	if err != nil {
		return "", "", fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.ParseInLocation(DateLayout, endDate, loc)
	if err != nil {
		return "", "", fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, loc)
	return start.UTC().Format(impactUTCLayout), end.UTC().Format(impactUTCLayout), nil
}

// CampaignFor devuelve la campaña del mercado dentro de la tabla dada.
func CampaignFor(campaigns map[int64]string, market string) (int64, bool) {
	m := normalize(market)
	for id, mk := range campaigns {
		if normalize(mk) == m {
			return id, true
		}
	}
	return 0, false
}

// MarketsOf devuelve los mercados de la tabla de campañas, ordenados.
func MarketsOf(campaigns map[int64]string) []string {
	out := make([]string, 0, len(campaigns))
	for _, m := range campaigns {
		out = append(out, normalize(m))
	}
	sort.Strings(out)
	return out
}
