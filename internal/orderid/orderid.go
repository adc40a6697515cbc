// Package orderid convierte entre (mercado, order id de Impact) y el
// identificador sintético que usa la API de PATA para buscar órdenes.
package orderid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Prefix es la parte constante de todo identificador de orden.
const Prefix = "8637e025-ae91-48de"

// marketCountryNumbers mapea mercado -> número de país (prefijo telefónico).
var marketCountryNumbers = map[string]int64{
	"BE": 32,
	"IT": 39,
	"CH": 41,
	"ES": 34,
	"DE": 49,
	"FR": 33,
	"FI": 358,
	"UK": 44,
	"DK": 45,
	"SE": 46,
	"NL": 31,
	"PL": 48,
	"NO": 47,
	"US": 1,
}

var countryNumberMarkets = func() map[int64]string {
	m := make(map[int64]string, len(marketCountryNumbers))
	for market, n := range marketCountryNumbers {
		m[n] = market
	}
	return m
}()

var idPattern = regexp.MustCompile(
	`^` + regexp.QuoteMeta(Prefix) + `-(?P<country>[0-9a-fA-F]{4})-(?P<order>[0-9a-fA-F]{12})$`,
)

// ID es el par (mercado, orderId) detrás de un identificador sintético.
type ID struct {
	Market  string
	OrderID int64
}

// String devuelve el identificador sintético. Hace panic si el mercado es desconocido.
func (id ID) String() string {
	s, err := Encode(id.Market, id.OrderID)
	if err != nil {
		panic(err)
	}
	return s
}

// CountryNumber devuelve el número de país de un mercado.
func CountryNumber(market string) (int64, error) {
	key := normalizeMarket(market)
	n, ok := marketCountryNumbers[key]
	if !ok {
		return 0, &UnknownMarketError{Market: key}
	}
	return n, nil
}

// Encode formatea {prefix}-{country:04X}-{orderId:012X}.
// Un orderId de más de 48 bits alarga el último segmento y Decode lo rechaza.
func Encode(market string, orderID int64) (string, error) {
	n, err := CountryNumber(market)
	if err != nil {
		return "", err
	}
	if orderID < 0 {
		return "", fmt.Errorf("%w: %d", ErrNegativeOrderID, orderID)
	}
	return fmt.Sprintf("%s-%04X-%012X", Prefix, n, orderID), nil
}

// Decode valida el formato exacto y recupera mercado y orderId.
func Decode(s string) (ID, error) {
	match := idPattern.FindStringSubmatch(s)
	if match == nil {
		return ID{}, &InvalidIdentifierFormatError{Value: s}
	}

	country, err := strconv.ParseInt(match[idPattern.SubexpIndex("country")], 16, 64)
	if err != nil {
		return ID{}, &InvalidIdentifierFormatError{Value: s}
	}
	order, err := strconv.ParseInt(match[idPattern.SubexpIndex("order")], 16, 64)
	if err != nil {
		return ID{}, &InvalidIdentifierFormatError{Value: s}
	}

	market, ok := countryNumberMarkets[country]
	if !ok {
		return ID{}, &UnknownCountryCodeError{CountryNumber: country}
	}
	return ID{Market: market, OrderID: order}, nil
}

func normalizeMarket(market string) string {
	return strings.ToUpper(strings.TrimSpace(market))
}
