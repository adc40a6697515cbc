package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// RequestValidator valida el request antes de lanzar una ejecución
type RequestValidator struct {
	marketRegex *regexp.Regexp
	known       map[string]bool
}

// NewRequestValidator crea un validador que sólo acepta los mercados dados
func NewRequestValidator(knownMarkets []string) *RequestValidator {
	known := make(map[string]bool, len(knownMarkets))
	for _, m := range knownMarkets {
		known[strings.ToUpper(strings.TrimSpace(m))] = true
	}
	return &RequestValidator{
		// Accepts: "DK", "uk" (2 letters, any case)
		marketRegex: regexp.MustCompile(`^[A-Za-z]{2}$`),
		known:       known,
	}
}

// ValidateMarkets valida cada código de mercado. Lista vacía = todos los mercados.
func (v *RequestValidator) ValidateMarkets(markets []string) error {
	for _, m := range markets {
		m = strings.TrimSpace(m)
		if !v.marketRegex.MatchString(m) {
			return fmt.Errorf("market %q must be a 2-letter code", m)
		}
		if !v.known[strings.ToUpper(m)] {
			return fmt.Errorf("market %q is not configured", strings.ToUpper(m))
		}
	}
	return nil
}

// ValidateDateRange valida ambas fechas y su orden
func (v *RequestValidator) ValidateDateRange(start, end string) error {
	if start == "" || end == "" {
		return errors.New("start_date and end_date are required")
	}
	if !IsValidDate(start) {
		return errors.New("start_date must be in format YYYY-MM-DD")
	}
	if !IsValidDate(end) {
		return errors.New("end_date must be in format YYYY-MM-DD")
	}
	s, _ := time.Parse(dateLayout, start)
	e, _ := time.Parse(dateLayout, end)
	if e.Before(s) {
		return errors.New("end_date cannot be before start_date")
	}
	return nil
}

// ReconcileRequest es lo que el validador necesita del request
type ReconcileRequest interface {
	GetMarkets() []string
	GetDateRange() (string, string)
}

// ValidateRequest valida el request completo
func (v *RequestValidator) ValidateRequest(req ReconcileRequest) error {
	if err := v.ValidateDateRange(req.GetDateRange()); err != nil {
		return err
	}
	if err := v.ValidateMarkets(req.GetMarkets()); err != nil {
		return err
	}
	return nil
}
