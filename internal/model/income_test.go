package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyIncome(t *testing.T) {
	tests := []struct {
		name string
		gdp  float64
		want IncomeCategory
	}{
		{"zero", 0, IncomeLow},
		{"low", 779.45, IncomeLow},
		{"just below 1000", 999.999, IncomeLow},
		{"exactly 1000", 1000, IncomeLowerMiddle},
		{"lower middle", 2000, IncomeLowerMiddle},
		{"just below 5000", 4999.99, IncomeLowerMiddle},
		{"exactly 5000", 5000, IncomeUpperMiddle},
		{"upper middle", 9000, IncomeUpperMiddle},
		{"exactly 15000", 15000, IncomeHigh},
		{"high", 113523.13, IncomeHigh},
		{"infinity", math.Inf(1), IncomeHigh},
		{"negative", -1, IncomeUnknown},
		{"NaN", math.NaN(), IncomeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyIncome(tt.gdp))
		})
	}
}

func TestIncomeCategory_String(t *testing.T) {
	assert.Equal(t, "Low Income", IncomeLow.String())
	assert.Equal(t, "Lower Middle", IncomeLowerMiddle.String())
	assert.Equal(t, "Upper Middle", IncomeUpperMiddle.String())
	assert.Equal(t, "High Income", IncomeHigh.String())
	assert.Equal(t, "Unknown", IncomeUnknown.String())
	assert.Equal(t, "Unknown", IncomeCategory(42).String())
}

func TestIncomeCategories_Ordered(t *testing.T) {
	require.Len(t, IncomeCategories, 4)
	for i := 1; i < len(IncomeCategories); i++ {
		assert.Less(t, IncomeCategories[i-1], IncomeCategories[i])
	}
	for _, c := range IncomeCategories {
		assert.True(t, c.Valid())
	}
	assert.False(t, IncomeUnknown.Valid())
}

func TestParseIncomeCategory(t *testing.T) {
	for _, c := range IncomeCategories {
		got, err := ParseIncomeCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseIncomeCategory("Middle")
	assert.Error(t, err)
	_, err = ParseIncomeCategory("Unknown")
	assert.Error(t, err)
}

func TestIncomeCategory_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Cat IncomeCategory `json:"cat"`
	}{IncomeUpperMiddle})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cat":"Upper Middle"}`, string(data))

	var out struct {
		Cat IncomeCategory `json:"cat"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"cat":"High Income"}`), &out))
	assert.Equal(t, IncomeHigh, out.Cat)

	assert.Error(t, json.Unmarshal([]byte(`{"cat":"Rich"}`), &out))

	_, err = json.Marshal(IncomeUnknown)
	assert.Error(t, err)
}
