package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw     string
		want    Money
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"5", 500, false},
		{"0.5", 50, false},
		{"-3.05", -305, false},
		{"10.000", 1000, false},
		{" 7.10 ", 710, false},
		{"1.234", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "0.00", Zero.String())
	assert.Equal(t, "9.00", FromCents(900).String())
	assert.Equal(t, "0.07", FromCents(7).String())
	assert.Equal(t, "-1.50", FromCents(-150).String())
}

func TestPercentRoundsHalfAwayFromZero(t *testing.T) {
	ten := MustParse("10.00")
	assert.Equal(t, MustParse("3.33"), ten.Percent(decimal.RequireFromString("33.33")))
	assert.Equal(t, MustParse("3.33"), ten.Percent(decimal.RequireFromString("33.34")))
	// 0.05 × 50% = 0.025 → 0.03
	assert.Equal(t, MustParse("0.03"), MustParse("0.05").Percent(decimal.NewFromInt(50)))
	assert.Equal(t, MustParse("-0.03"), MustParse("-0.05").Percent(decimal.NewFromInt(50)))
}

func TestMulRate(t *testing.T) {
	assert.Equal(t, MustParse("4.60"), MustParse("23.00").MulRate(decimal.RequireFromString("0.20")))
	assert.Equal(t, MustParse("0.55"), MustParse("10.00").MulRate(decimal.RequireFromString("0.055")))
}

func TestArithmetic(t *testing.T) {
	assert.Equal(t, MustParse("15.00"), MustParse("5.00").Times(3))
	assert.Equal(t, MustParse("14.00"), MustParse("15.00").Sub(MustParse("1.00")))
	assert.Equal(t, Zero, MustParse("1.00").Sub(MustParse("2.00")).FloorZero())
	assert.Equal(t, MustParse("6.00"), Sum(MustParse("1.00"), MustParse("2.00"), MustParse("3.00")))
}

func TestJSON(t *testing.T) {
	type payload struct {
		Amount Money `json:"amount"`
	}

	out, err := json.Marshal(payload{Amount: MustParse("12.50")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":12.50}`, string(out))

	var fromNumber, fromString payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount":8}`), &fromNumber))
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"8.00"}`), &fromString))
	assert.Equal(t, MustParse("8.00"), fromNumber.Amount)
	assert.Equal(t, fromNumber, fromString)

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"1.001"}`), &fromNumber))
}

func TestScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan([]byte("15.00")))
	assert.Equal(t, MustParse("15.00"), m)
	require.NoError(t, m.Scan("3.3"))
	assert.Equal(t, MustParse("3.30"), m)
	require.NoError(t, m.Scan(int64(2)))
	assert.Equal(t, MustParse("2.00"), m)
	require.NoError(t, m.Scan(nil))
	assert.Equal(t, Zero, m)
	assert.Error(t, m.Scan(true))

	v, err := MustParse("7.25").Value()
	require.NoError(t, err)
	assert.Equal(t, "7.25", v)
}
