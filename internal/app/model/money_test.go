package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Money
		wantErr bool
	}{
		{"Whole units", "600", 60000, false},
		{"One decimal", "12.5", 1250, false},
		{"Two decimals", "0.01", 1, false},
		{"Negative", "-5.00", -500, false},
		{"Largest amount", "92233720368547758.07", Money(9223372036854775807), false},
		{"Smallest amount", "-92233720368547758.08", Money(-9223372036854775808), false},
		{"Three decimals", "1.005", 0, true},
		{"Not a number", "ten", 0, true},
		{"Wraps past int64", "184467440737095517.16", 0, true},
		{"Just above range", "92233720368547758.08", 0, true},
		{"Just below range", "-92233720368547758.09", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMoney)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoney_UnmarshalJSON(t *testing.T) {
	var body struct {
		Amount Money `json:"amount"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"amount":"600.00"}`), &body))
	assert.Equal(t, Money(60000), body.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount":42}`), &body))
	assert.Equal(t, Money(4200), body.Amount)

	err := json.Unmarshal([]byte(`{"amount":"92233720368547758.08"}`), &body)
	assert.ErrorIs(t, err, ErrInvalidMoney)

	out, err := json.Marshal(MustParseMoney("1234.5"))
	require.NoError(t, err)
	assert.Equal(t, `"1234.50"`, string(out))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, "25", Progress(MustParseMoney("250.00"), MustParseMoney("1000.00")).String())
	assert.True(t, Progress(MustParseMoney("10.00"), 0).IsZero())
}
