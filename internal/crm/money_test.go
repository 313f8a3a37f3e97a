package crm_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want crm.Money
	}{
		{"12", 1200},
		{"12.5", 1250},
		{"12.50", 1250},
		{"999.99", 99999},
		{"0.01", 1},
		{".5", 50},
		{" 7 ", 700},
		{"-3.25", -325},
		{"+4", 400},
	}
	for _, tc := range cases {
		got, err := crm.ParseMoney(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseMoneyRejects(t *testing.T) {
	for _, in := range []string{"", ".", "abc", "1.234", "1,50", "1.2x", "--1", "99999999999999999999", "92233720368547756.00", "100000000000.01"} {
		_, err := crm.ParseMoney(in)
		assert.ErrorIs(t, err, crm.ErrInvalidAmount, in)
	}
}

func TestParseMoneyAcceptsCap(t *testing.T) {
	m, err := crm.ParseMoney("100000000000.00")
	require.NoError(t, err)
	assert.Equal(t, crm.MaxMoney, m)
}

func TestMoneyAdd(t *testing.T) {
	sum, err := crm.Money(150).Add(250)
	require.NoError(t, err)
	assert.Equal(t, crm.Money(400), sum)

	_, err = crm.Money(math.MaxInt64 - 1).Add(2)
	assert.ErrorIs(t, err, crm.ErrInvalidAmount)
	_, err = crm.Money(math.MinInt64 + 1).Add(-2)
	assert.ErrorIs(t, err, crm.ErrInvalidAmount)
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "999.99", crm.Money(99999).String())
	assert.Equal(t, "0.05", crm.Money(5).String())
	assert.Equal(t, "1200.00", crm.Money(120000).String())
	assert.Equal(t, "-1.50", crm.Money(-150).String())
}

func TestMoneyFromFloat(t *testing.T) {
	m, err := crm.MoneyFromFloat(25.5)
	require.NoError(t, err)
	assert.Equal(t, crm.Money(2550), m)

	// 0.1+0.2 style drift rounds to the nearest cent
	m, err = crm.MoneyFromFloat(0.1 + 0.2)
	require.NoError(t, err)
	assert.Equal(t, crm.Money(30), m)

	_, err = crm.MoneyFromFloat(math.NaN())
	assert.ErrorIs(t, err, crm.ErrInvalidAmount)
	_, err = crm.MoneyFromFloat(math.Inf(1))
	assert.ErrorIs(t, err, crm.ErrInvalidAmount)

	for _, f := range []float64{9.2233720368547758e16, -9.2233720368547758e16, 100000000000.01} {
		_, err = crm.MoneyFromFloat(f)
		assert.ErrorIs(t, err, crm.ErrInvalidAmount, f)
	}
	m, err = crm.MoneyFromFloat(100000000000)
	require.NoError(t, err)
	assert.Equal(t, crm.MaxMoney, m)
}
