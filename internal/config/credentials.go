package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/ports"
)

// SecretEnvVar contiene el mismo JSON que CREDENTIALS_FILE cuando no hay fichero.
const SecretEnvVar = "IMPACT_SECRET_JSON"

// JSONCredentialSource lee las cuentas de Impact de un objeto JSON plano con
// claves account_SID_<MERCADO> y token_<MERCADO>.
type JSONCredentialSource struct {
	values map[string]string
}

// LoadCredentials lee CREDENTIALS_FILE si está configurado; si no, la
// variable IMPACT_SECRET_JSON. Sin ninguno de los dos, todas las búsquedas fallan.
func LoadCredentials(file string) (*JSONCredentialSource, error) {
	var raw []byte
	switch {
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		raw = b
	case os.Getenv(SecretEnvVar) != "":
		raw = []byte(os.Getenv(SecretEnvVar))
	default:
		return &JSONCredentialSource{values: map[string]string{}}, nil
	}
	return ParseCredentials(raw)
}

// ParseCredentials parsea el JSON de credenciales. Valores no string se ignoran.
func ParseCredentials(raw []byte) (*JSONCredentialSource, error) {
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	values := make(map[string]string, len(generic))
	for k, v := range generic {
		if s, ok := v.(string); ok {
			values[k] = s
		}
	}
	return &JSONCredentialSource{values: values}, nil
}

// Lookup implementa ports.CredentialSource.
func (s *JSONCredentialSource) Lookup(market string) (ports.Credentials, bool) {
	m := strings.ToUpper(strings.TrimSpace(market))
	sid := strings.TrimSpace(s.values["account_SID_"+m])
	token := strings.TrimSpace(s.values["token_"+m])
	if sid == "" || token == "" {
		return ports.Credentials{}, false
	}
	return ports.Credentials{AccountSID: sid, AuthToken: token}, true
}
