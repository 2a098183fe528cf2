package format

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0"},
		{"5", "$5"},
		{"-5", "-$5"},
		{"1234.5", "$1,235"},
		{"-1234.4", "-$1,234"},
		{"2.7", "$3"},
		{"1000000", "$1,000,000"},
		{"-0.4", "$0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Currency(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestCurrencyCents(t *testing.T) {
	assert.Equal(t, "$1,234.50", CurrencyCents(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "-$12.50", CurrencyCents(decimal.RequireFromString("-12.5")))
	assert.Equal(t, "$2.70", CurrencyCents(decimal.RequireFromString("2.7")))
	assert.Equal(t, "$0.01", CurrencyCents(decimal.RequireFromString("0.005")))
}

func TestSigned(t *testing.T) {
	assert.Equal(t, "+$30", Signed(decimal.NewFromInt(30)))
	assert.Equal(t, "-$30", Signed(decimal.NewFromInt(-30)))
	assert.Equal(t, "$0", Signed(decimal.Zero))
}

func TestDateAndPercent(t *testing.T) {
	assert.Equal(t, "Jan 27, 2024", Date(time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Feb 9, 2024", Date(time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "67%", Percent(2.0/3.0))
}

func TestCurrencyProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("digits survive grouping", prop.ForAll(
		func(n int64) bool {
			s := Currency(decimal.NewFromInt(n))
			digits := strings.NewReplacer("$", "", ",", "", "-", "").Replace(s)
			return digits == decimal.NewFromInt(n).Abs().String() &&
				strings.HasPrefix(s, "-") == (n < 0)
		},
		gen.Int64Range(-1e12, 1e12),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
