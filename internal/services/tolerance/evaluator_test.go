package tolerance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeRecon/internal/domain/models"
	"TradeRecon/pkg/logger"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func esProduct() *models.Product {
	return &models.Product{Symbol: "ESZ5", TickSize: dec("0.25"), TickValue: dec("12.50")}
}

func TestEvaluateIdenticalValuesNoDetail(t *testing.T) {
	e := NewEvaluator(logger.Nop())
	v, detail := e.Evaluate("price", dec("100.25"), dec("100.25"),
		models.ToleranceConfig{Mode: models.ToleranceAbsolute, Limit: dec("0")}, nil)
	assert.Equal(t, Match, v)
	assert.Nil(t, detail)
}

func TestEvaluateAbsolute(t *testing.T) {
	e := NewEvaluator(logger.Nop())
	cfg := models.ToleranceConfig{Mode: models.ToleranceAbsolute, Limit: dec("0.5")}

	t.Run("within", func(t *testing.T) {
		v, detail := e.Evaluate("price", dec("100.0"), dec("100.2"), cfg, nil)
		assert.Equal(t, Match, v)
		require.NotNil(t, detail)
		assert.True(t, detail.Within)
		assert.False(t, detail.Degraded)
		assert.True(t, detail.DiffAbsolute.Equal(dec("0.2")))
	})

	t.Run("boundary counts as within", func(t *testing.T) {
		v, detail := e.Evaluate("price", dec("100.0"), dec("100.5"), cfg, nil)
		assert.Equal(t, Match, v)
		assert.True(t, detail.Within)
	})

	t.Run("exceeds", func(t *testing.T) {
		v, detail := e.Evaluate("price", dec("100.0"), dec("101.0"), cfg, nil)
		assert.Equal(t, Break, v)
		require.NotNil(t, detail)
		assert.False(t, detail.Within)
		assert.Contains(t, detail.Description, "exceeds tolerance")
	})
}

func TestEvaluatePercent(t *testing.T) {
	e := NewEvaluator(logger.Nop())
	cfg := models.ToleranceConfig{Mode: models.TolerancePercent, Limit: dec("1")}

	t.Run("within", func(t *testing.T) {
		v, detail := e.Evaluate("price", dec("100"), dec("100.9"), cfg, nil)
		assert.Equal(t, Match, v)
		assert.True(t, detail.Within)
	})

	t.Run("exceeds", func(t *testing.T) {
		v, detail := e.Evaluate("price", dec("100"), dec("102"), cfg, nil)
		assert.Equal(t, Break, v)
		assert.False(t, detail.Within)
	})

	t.Run("denominator is the larger magnitude", func(t *testing.T) {
		// diff 2 over max(|98|,|100|)=100 -> exactly 2%.
		v, _ := e.Evaluate("price", dec("98"), dec("100"),
			models.ToleranceConfig{Mode: models.TolerancePercent, Limit: dec("2")}, nil)
		assert.Equal(t, Match, v)
	})
}

func TestEvaluatePercentBothZero(t *testing.T) {
	e := NewEvaluator(logger.Nop())
	v, detail := e.Evaluate("price", dec("0"), dec("0.00"),
		models.ToleranceConfig{Mode: models.TolerancePercent, Limit: dec("0")}, nil)
	assert.Equal(t, Match, v)
	// 0 vs 0.00 differ in exponent, not value.
	assert.Nil(t, detail)
}

func TestEvaluateTicks(t *testing.T) {
	e := NewEvaluator(logger.Nop())
	cfg := models.ToleranceConfig{Mode: models.ToleranceTicks, MaxTicks: dec("1")}

	t.Run("one tick within, either sign", func(t *testing.T) {
		for _, external := range []string{"100.25", "99.75"} {
			v, detail := e.Evaluate("price", dec("100.00"), dec(external), cfg, esProduct())
			assert.Equal(t, Match, v, "external %s", external)
			require.NotNil(t, detail)
			assert.True(t, detail.Within)
			assert.True(t, detail.HasTicks)
			assert.True(t, detail.DiffTicks.Equal(dec("1")))
		}
	})

	t.Run("over one tick breaks, either sign", func(t *testing.T) {
		for _, external := range []string{"100.26", "99.74"} {
			v, detail := e.Evaluate("price", dec("100.00"), dec(external), cfg, esProduct())
			assert.Equal(t, Break, v, "external %s", external)
			assert.False(t, detail.Within)
			assert.True(t, detail.DiffTicks.Equal(dec("1.04")))
		}
	})

	t.Run("max ticks defaults to one", func(t *testing.T) {
		v, _ := e.Evaluate("price", dec("100.00"), dec("100.50"),
			models.ToleranceConfig{Mode: models.ToleranceTicks}, esProduct())
		assert.Equal(t, Break, v)
	})
}

func TestEvaluateTickModeDegradesWithoutProduct(t *testing.T) {
	e := NewEvaluator(logger.Nop())
	cfg := models.ToleranceConfig{Mode: models.ToleranceTicks, Limit: dec("0.5"), MaxTicks: dec("2")}

	v, detail := e.Evaluate("price", dec("100.0"), dec("100.3"), cfg, nil)
	assert.Equal(t, Match, v)
	require.NotNil(t, detail)
	assert.True(t, detail.Degraded)
	assert.Equal(t, models.ToleranceAbsolute, detail.ModeUsed)
	assert.False(t, detail.HasTicks)
}

func TestEvaluateUnknownModeDegrades(t *testing.T) {
	e := NewEvaluator(logger.Nop())
	cfg := models.ToleranceConfig{Mode: models.ToleranceMode("sigma"), Limit: dec("0.5")}

	v, detail := e.Evaluate("price", dec("100.0"), dec("101.0"), cfg, nil)
	assert.Equal(t, Break, v)
	require.NotNil(t, detail)
	assert.True(t, detail.Degraded)
	assert.Equal(t, models.ToleranceAbsolute, detail.ModeUsed)
}

func TestEvaluateQuantityAlwaysAbsolute(t *testing.T) {
	e := NewEvaluator(logger.Nop())

	t.Run("zero limit means exact", func(t *testing.T) {
		v, detail := e.EvaluateQuantity("quantity", dec("10"), dec("11"), models.ToleranceConfig{Mode: models.TolerancePercent})
		assert.Equal(t, Break, v)
		assert.Equal(t, models.ToleranceAbsolute, detail.ModeUsed)
	})

	t.Run("configured limit honored", func(t *testing.T) {
		v, _ := e.EvaluateQuantity("quantity", dec("10"), dec("10.5"),
			models.ToleranceConfig{Mode: models.ToleranceAbsolute, Limit: dec("1")})
		assert.Equal(t, Match, v)
	})
}
