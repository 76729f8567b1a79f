package values

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		currency string
		wantErr  bool
	}{
		{
			name:     "valid USD amount",
			amount:   decimal.RequireFromString("123.45"),
			currency: USD,
		},
		{
			name:     "lowercase currency is normalized",
			amount:   decimal.NewFromInt(50),
			currency: "usd",
		},
		{
			name:     "empty currency",
			amount:   decimal.NewFromInt(100),
			currency: "",
			wantErr:  true,
		},
		{
			name:     "unsupported currency",
			amount:   decimal.NewFromInt(100),
			currency: "XYZ",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			money, err := NewMoney(tt.amount, tt.currency)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.amount.StringFixed(2), money.String())
			data, err := json.Marshal(money)
			require.NoError(t, err)
			assert.Contains(t, string(data), `"currency":"USD"`)
		})
	}
}

func TestNewMoneyFromString(t *testing.T) {
	_, err := NewMoneyFromString("abc", USD)
	assert.Error(t, err)

	_, err = NewMoneyFromString("1.00", "")
	assert.Error(t, err)
}

func TestMoney_StringAlwaysTwoPlaces(t *testing.T) {
	tests := []struct {
		amount   string
		expected string
	}{
		{"123.4", "123.40"},
		{"50", "50.00"},
		{"349.999", "350.00"},
		{"87.125", "87.13"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			m, err := NewMoneyFromString(tt.amount, USD)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.String())
		})
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a, err := NewMoneyFromString("100.25", USD)
	require.NoError(t, err)
	b, err := NewMoneyFromString("49.75", USD)
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "150.00", sum.String())
	assert.Equal(t, int64(15000), sum.ToCents())

	eur, err := NewMoneyFromString("1", EUR)
	require.NoError(t, err)
	_, err = a.Add(eur)
	assert.Error(t, err)

	assert.Equal(t, "0.00", Zero(USD).String())
	assert.Equal(t, int64(0), Zero(USD).ToCents())
}

func TestMoney_ToCentsRoundsHalfUp(t *testing.T) {
	m, err := NewMoneyFromString("10.555", USD)
	require.NoError(t, err)
	assert.Equal(t, int64(1056), m.ToCents())
}

func TestMoney_MarshalJSON(t *testing.T) {
	m, err := NewMoneyFromString("75.5", USD)
	require.NoError(t, err)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"75.50","currency":"USD"}`, string(data))
}

func TestMoney_UnmarshalJSON(t *testing.T) {
	var m Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"123.40","currency":"usd"}`), &m))
	assert.Equal(t, "123.40", m.String())
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"123.40","currency":"USD"}`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"abc","currency":"USD"}`), &m))
	assert.Error(t, json.Unmarshal([]byte(`{"amount":"1.00","currency":"XYZ"}`), &m))
}
