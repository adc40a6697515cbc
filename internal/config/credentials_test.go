package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/ports"
)

const secretJSON = `{"account_SID_DK":"IRdk","token_DK":"tdk","account_SID_UK":"IRuk","token_UK":"","account_SID_DE":42}`

func TestParseCredentials_Lookup(t *testing.T) {
	src, err := ParseCredentials([]byte(secretJSON))
	require.NoError(t, err)

	creds, ok := src.Lookup(" dk ")
	require.True(t, ok)
	assert.Equal(t, ports.Credentials{AccountSID: "IRdk", AuthToken: "tdk"}, creds)

	_, ok = src.Lookup("UK")
	assert.False(t, ok, "empty token counts as missing")

	_, ok = src.Lookup("DE")
	assert.False(t, ok, "non string sid is ignored")

	_, ok = src.Lookup("FR")
	assert.False(t, ok)
}

func TestLoadCredentials_FileWinsOverEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(SecretEnvVar, `{"account_SID_FR":"IRfr","token_FR":"tfr"}`)
	path := writeFile(t, "creds.json", secretJSON)

	src, err := LoadCredentials(path)
	require.NoError(t, err)
	_, ok := src.Lookup("FR")
	assert.False(t, ok)
	_, ok = src.Lookup("DK")
	assert.True(t, ok)
}

func TestLoadCredentials_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(SecretEnvVar, `{"account_SID_FR":"IRfr","token_FR":"tfr"}`)

	src, err := LoadCredentials("")
	require.NoError(t, err)
	creds, ok := src.Lookup("FR")
	require.True(t, ok)
	assert.Equal(t, "IRfr", creds.AccountSID)
}

func TestLoadCredentials_NoneConfigured(t *testing.T) {
	clearEnv(t)
	src, err := LoadCredentials("")
	require.NoError(t, err)
	_, ok := src.Lookup("DK")
	assert.False(t, ok)
}

func TestLoadCredentials_Errors(t *testing.T) {
	clearEnv(t)
	_, err := LoadCredentials("/does/not/exist.json")
	assert.Error(t, err)

	_, err = ParseCredentials([]byte(`[1,2]`))
	assert.Error(t, err)
}
