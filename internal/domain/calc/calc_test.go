package calc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNetWeightInUnits(t *testing.T) {
	tests := []struct {
		name   string
		bultos string
		kg     string
		unit   string
		want   string
	}{
		{"quintal", "10", "46", UnitQuintal46Kg, "10"},
		{"cents per pound", "10", "46", UnitCentsPerPound, "10.1413"},
		{"unknown unit", "10", "46", "TON", "0"},
		{"zero bultos", "0", "46", UnitQuintal46Kg, "0"},
		{"negative kg", "10", "-1", UnitQuintal46Kg, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NetWeightInUnits(d(tt.bultos), d(tt.kg), tt.unit)
			assert.True(t, d(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestQuintals_IgnoresPriceUnit(t *testing.T) {
	assert.True(t, d("10").Equal(Quintals(d("10"), d("46"))))
	assert.True(t, d("5").Equal(Quintals(d("5"), d("46"))))
	assert.True(t, Quintals(d("0"), d("46")).IsZero())
}

func TestChargeValue(t *testing.T) {
	got := ChargeValue(d("10"), d("46"), d("150.50"), UnitQuintal46Kg)
	assert.True(t, d("1505").Equal(got))

	assert.True(t, ChargeValue(d("10"), d("46"), d("0"), UnitQuintal46Kg).IsZero())
	assert.True(t, ChargeValue(d("0"), d("46"), d("150"), UnitQuintal46Kg).IsZero())
}

func TestFinalPrice(t *testing.T) {
	assert.True(t, d("185.25").Equal(FinalPrice(d("180"), d("5.25"))))
	assert.True(t, d("175").Equal(FinalPrice(d("180"), d("-5"))))
}

func TestYieldSplit(t *testing.T) {
	s := YieldSplit(d("30"), d("80"), d("10"))
	assert.True(t, d("24").Equal(s.Primeras))
	assert.True(t, d("3").Equal(s.Catadura))

	s = YieldSplit(d("-1"), d("80"), d("10"))
	assert.True(t, s.Primeras.IsZero())
	assert.True(t, s.Catadura.IsZero())
}

func TestTareFromSacks(t *testing.T) {
	assert.True(t, d("0.5").Equal(TareFromSacks(20, 10)))
	assert.True(t, TareFromSacks(-3, 0).IsZero())
}

func TestClampPercents(t *testing.T) {
	tests := []struct {
		first, reject         string
		wantFirst, wantReject string
	}{
		{"80", "10", "80", "10"},
		{"80", "30", "80", "20"},
		{"120", "10", "100", "0"},
		{"-5", "50", "0", "50"},
		{"60", "-1", "60", "0"},
	}
	for _, tt := range tests {
		f, r := ClampPercents(d(tt.first), d(tt.reject))
		assert.True(t, d(tt.wantFirst).Equal(f), "first %s/%s", tt.first, tt.reject)
		assert.True(t, d(tt.wantReject).Equal(r), "reject %s/%s", tt.first, tt.reject)
	}
}

func TestTolerances(t *testing.T) {
	assert.True(t, IsZero(d("0.005")))
	assert.True(t, IsZero(d("-0.004")))
	assert.False(t, IsZero(d("0.0051")))
	assert.True(t, Equal(d("100"), d("99.996")))
	assert.True(t, d("1.24").Equal(Round2(d("1.2449"))))
	assert.True(t, d("1").Equal(Min(d("1"), d("2"))))
}
