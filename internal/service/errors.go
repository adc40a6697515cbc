package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// MissingCredentialsError: no hay cuenta de Impact para el mercado.
type MissingCredentialsError struct {
	Market string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("missing Impact credentials for market %s", e.Market)
}

// FetchCause clasifica por qué falló el listado de acciones.
type FetchCause string

const (
	CauseUnauthorized FetchCause = "unauthorized"
	CauseTimeout      FetchCause = "timeout"
	CauseNotFound     FetchCause = "not_found"
	CauseOther        FetchCause = "other"
)

// MarketFetchError: no se pudieron listar las acciones del mercado.
type MarketFetchError struct {
	Market string
	Cause  FetchCause
	Err    error
}

func (e *MarketFetchError) Error() string {
	return fmt.Sprintf("fetching actions for market %s (%s): %v", e.Market, e.Cause, e.Err)
}

func (e *MarketFetchError) Unwrap() error { return e.Err }

// httpStatusCoder lo implementan los errores de los clientes HTTP.
type httpStatusCoder interface {
	HTTPStatus() int
}

// ClassifyFetchError deriva la causa del código HTTP si existe; si no, del
// tipo de error y, como último recurso, del texto.
func ClassifyFetchError(err error) FetchCause {
	if err == nil {
		return CauseOther
	}

	var sc httpStatusCoder
	if errors.As(err, &sc) {
		switch sc.HTTPStatus() {
		case http.StatusUnauthorized:
			return CauseUnauthorized
		case http.StatusNotFound:
			return CauseNotFound
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return CauseTimeout
		}
		return CauseOther
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return CauseTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized"):
		return CauseUnauthorized
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") || strings.Contains(msg, "deadline"):
		return CauseTimeout
	case strings.Contains(msg, "404"):
		return CauseNotFound
	}
	return CauseOther
}
