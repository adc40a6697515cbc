package errors

import (
	"fmt"
	"net/http"
)

// AppError representa un error de aplicación con código HTTP y contexto
type AppError struct {
	Code       int                    `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Internal   error                  `json:"-"` // No se expone al cliente
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	StatusCode int                    `json:"-"` // HTTP status code
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Internal }

// NewAppError crea un nuevo error de aplicación
func NewAppError(statusCode int, code int, message string, internal error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Internal:   internal,
		StatusCode: statusCode,
		Metadata:   make(map[string]interface{}),
	}
}

// WithDetails agrega detalles adicionales al error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithMetadata agrega metadata al error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Errores de la API del servicio
var (
	ErrBadRequest = func(details string, err error) *AppError {
		return NewAppError(http.StatusBadRequest, 40000, "Invalid request", err).
			WithDetails(details)
	}

	ErrNotFound = func(details string, err error) *AppError {
		return NewAppError(http.StatusNotFound, 40400, "Resource not found", err).
			WithDetails(details)
	}

	ErrConflict = func(details string, err error) *AppError {
		return NewAppError(http.StatusConflict, 40900, "Reconciliation already running", err).
			WithDetails(details)
	}

	ErrInternalServer = func(details string, err error) *AppError {
		return NewAppError(http.StatusInternalServerError, 50000, "Internal server error", err).
			WithDetails(details)
	}
)

// Errores por mercado. No se devuelven por HTTP: el mensaje va al reporte
// de la ejecución.
var (
	ErrMissingCredentials = func(market string, err error) *AppError {
		return NewAppError(http.StatusUnauthorized, 40101, fmt.Sprintf("No Impact credentials configured for market %s.", market), err).
			WithMetadata("market", market)
	}

	ErrUnauthorized = func(market string, err error) *AppError {
		return NewAppError(http.StatusUnauthorized, 40100, fmt.Sprintf("Authorization failed for market %s. Please check credentials.", market), err).
			WithMetadata("market", market)
	}

	ErrGatewayTimeout = func(market string, err error) *AppError {
		return NewAppError(http.StatusGatewayTimeout, 50400, fmt.Sprintf("Request timed out for market %s.", market), err).
			WithMetadata("market", market)
	}

	ErrUpstreamNotFound = func(market string, err error) *AppError {
		return NewAppError(http.StatusNotFound, 40401, fmt.Sprintf("Resource not found for market %s.", market), err).
			WithMetadata("market", market)
	}

	ErrExternalAPI = func(market string, err error) *AppError {
		return NewAppError(http.StatusBadGateway, 50200, fmt.Sprintf("API error for market %s", market), err).
			WithMetadata("market", market)
	}
)

// ForFetchCause elige el mensaje para el usuario según la causa del fallo al
// listar acciones (unauthorized, timeout, not_found, other).
func ForFetchCause(market, cause string, err error) *AppError {
	var appErr *AppError
	switch cause {
	case "unauthorized":
		appErr = ErrUnauthorized(market, err)
	case "timeout":
		appErr = ErrGatewayTimeout(market, err)
	case "not_found":
		appErr = ErrUpstreamNotFound(market, err)
	default:
		appErr = ErrExternalAPI(market, err)
	}
	return appErr.WithMetadata("cause", cause)
}

// GetStatusCode obtiene el código HTTP de un error
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
