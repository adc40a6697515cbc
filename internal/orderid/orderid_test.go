package orderid

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		market   string
		orderID  int64
		expected string
	}{
		{"denmark", "DK", 2617866, "8637e025-ae91-48de-002D-00000027F20A"},
		{"united kingdom", "UK", 153896, "8637e025-ae91-48de-002C-000000025928"},
		{"finland has three digit country number", "FI", 1, "8637e025-ae91-48de-0166-000000000001"},
		{"zero order id", "US", 0, "8637e025-ae91-48de-0001-000000000000"},
		{"lowercase market is normalized", " fr ", 372221, "8637e025-ae91-48de-0021-00000005ADFD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.market, tt.orderID)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEncode_UnknownMarket(t *testing.T) {
	_, err := Encode("XX", 10)
	require.Error(t, err)

	var target *UnknownMarketError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "XX", target.Market)
	assert.ErrorIs(t, err, ErrUnknownMarket)
}

func TestEncode_NegativeOrderID(t *testing.T) {
	_, err := Encode("DK", -1)
	assert.ErrorIs(t, err, ErrNegativeOrderID)
}

func TestEncode_AboveFortyEightBitsIsNotPadded(t *testing.T) {
	got, err := Encode("DK", 1<<48)
	require.NoError(t, err)
	assert.Equal(t, "8637e025-ae91-48de-002D-1000000000000", got)

	_, err = Decode(got)
	assert.ErrorIs(t, err, ErrInvalidIdentifierFormat)
}

func TestRoundTrip_AllMarkets(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	edges := []int64{0, 1, 255, 1<<32 - 1, 1<<48 - 1}

	for market := range marketCountryNumbers {
		ids := append([]int64{}, edges...)
		for i := 0; i < 50; i++ {
			ids = append(ids, rng.Int63n(1<<48))
		}
		for _, orderID := range ids {
			s, err := Encode(market, orderID)
			require.NoError(t, err)

			got, err := Decode(s)
			require.NoError(t, err, s)
			assert.Equal(t, ID{Market: market, OrderID: orderID}, got)
		}
	}
}

func TestDecode_AcceptsLowercaseHex(t *testing.T) {
	got, err := Decode("8637e025-ae91-48de-002d-00000027f20a")
	require.NoError(t, err)
	assert.Equal(t, ID{Market: "DK", OrderID: 2617866}, got)
}

func TestDecode_InvalidFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"wrong prefix", "8637e025-ae91-48df-002D-00000027F20A"},
		{"short country segment", "8637e025-ae91-48de-02D-00000027F20A"},
		{"long country segment", "8637e025-ae91-48de-0002D-00000027F20A"},
		{"short order segment", "8637e025-ae91-48de-002D-0000027F20A"},
		{"long order segment", "8637e025-ae91-48de-002D-000000027F20A0"},
		{"non hex country", "8637e025-ae91-48de-00GD-00000027F20A"},
		{"non hex order", "8637e025-ae91-48de-002D-00000027F20Z"},
		{"missing dashes", "8637e025ae9148de002D00000027F20A"},
		{"trailing whitespace", "8637e025-ae91-48de-002D-00000027F20A "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			var target *InvalidIdentifierFormatError
			require.True(t, errors.As(err, &target), "got %v", err)
			assert.ErrorIs(t, err, ErrInvalidIdentifierFormat)
		})
	}
}

func TestDecode_UnknownCountryCode(t *testing.T) {
	_, err := Decode("8637e025-ae91-48de-FFFF-000000000001")
	var target *UnknownCountryCodeError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, int64(0xFFFF), target.CountryNumber)
	assert.ErrorIs(t, err, ErrUnknownCountryCode)
}

func TestID_String(t *testing.T) {
	id := ID{Market: "DE", OrderID: 10}
	assert.Equal(t, "8637e025-ae91-48de-0031-00000000000A", id.String())
}

func TestMarketTable_HasFourteenEntries(t *testing.T) {
	assert.Len(t, marketCountryNumbers, 14)
	assert.Len(t, countryNumberMarkets, 14)
}
