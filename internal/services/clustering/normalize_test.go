package clustering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeField(t *testing.T) {
	cases := map[string]string{
		"price":          "price",
		"Rate":           "price",
		"fixed_rate":     "price",
		"qty":            "quantity",
		"notional":       "quantity",
		"trade_date":     "date",
		"effective_date": "date",
		"venue":          "venue",
		"":               "unknown",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeField(in), "field %q", in)
	}
}

func TestProductFamily(t *testing.T) {
	assert.Equal(t, "ES_FUTURES", ProductFamily("ESZ5"))
	assert.Equal(t, "NQ_FUTURES", ProductFamily("NQH6"))
	assert.Equal(t, "IRS", ProductFamily("IRS_USD_10Y"))
	assert.Equal(t, "FX_FORWARD", ProductFamily("EURUSD_FX_FWD"))
	assert.Equal(t, "ZNZ5", ProductFamily("znz5"))
	assert.Equal(t, "unknown", ProductFamily(""))
}

func TestProductType(t *testing.T) {
	assert.Equal(t, "equity_futures", ProductType("ESZ5"))
	assert.Equal(t, "equity_futures", ProductType("RTYH6"))
	assert.Equal(t, "bond_futures", ProductType("ZNZ5"))
	assert.Equal(t, "interest_rate_swap", ProductType("IRS_USD_10Y"))
	assert.Equal(t, "fx_forward", ProductType("EURUSD_FX_FWD"))
	assert.Equal(t, "other", ProductType("CLF6"))
}

func TestAccountFamily(t *testing.T) {
	assert.Equal(t, "bank", AccountFamily("BANK_ALPHA"))
	assert.Equal(t, "broker", AccountFamily("broker_7"))
	assert.Equal(t, "client", AccountFamily("CLIENT_42"))
	assert.Equal(t, "fund", AccountFamily("FD_GLOBAL"))
	assert.Equal(t, "other", AccountFamily("PROP_DESK"))
	assert.Equal(t, "unknown", AccountFamily(""))
}

func TestCanonicalTermCollapsesNearMisses(t *testing.T) {
	assert.Equal(t, "difference", canonicalTerm("diference"))
	assert.Equal(t, "tolerance", canonicalTerm("tolerence"))
	assert.Equal(t, "price", canonicalTerm("price"))
	// Too far from every vocabulary word: kept as is.
	assert.Equal(t, "allocation", canonicalTerm("allocation"))
}
