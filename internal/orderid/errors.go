package orderid

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownMarket           = errors.New("unknown market")
	ErrInvalidIdentifierFormat = errors.New("invalid order identifier format")
	ErrUnknownCountryCode      = errors.New("unknown country code")
	ErrNegativeOrderID         = errors.New("order id must be non-negative")
)

type UnknownMarketError struct {
	Market string
}

func (e *UnknownMarketError) Error() string {
	return fmt.Sprintf("unknown market: %q", e.Market)
}

func (e *UnknownMarketError) Is(target error) bool { return target == ErrUnknownMarket }

type InvalidIdentifierFormatError struct {
	Value string
}

func (e *InvalidIdentifierFormatError) Error() string {
	return fmt.Sprintf("invalid order identifier format: %q", e.Value)
}

func (e *InvalidIdentifierFormatError) Is(target error) bool {
	return target == ErrInvalidIdentifierFormat
}

type UnknownCountryCodeError struct {
	CountryNumber int64
}

func (e *UnknownCountryCodeError) Error() string {
	return fmt.Sprintf("no market found for country code %d", e.CountryNumber)
}

func (e *UnknownCountryCodeError) Is(target error) bool { return target == ErrUnknownCountryCode }
