package models

import "github.com/shopspring/decimal"

// ToleranceMode selects how two numeric values are compared. The set is
// closed: the evaluator switches exhaustively and new modes are a
// compile-time extension.
type ToleranceMode string

const (
	ToleranceAbsolute ToleranceMode = "absolute"
	TolerancePercent  ToleranceMode = "percent"
	ToleranceTicks    ToleranceMode = "ticks"
)

// Valid reports whether the mode is one of the closed set.
func (m ToleranceMode) Valid() bool {
	switch m {
	case ToleranceAbsolute, TolerancePercent, ToleranceTicks:
		return true
	}
	return false
}

// ToleranceConfig is the comparison policy for one field. A zero Limit in
// absolute mode means exact match required.
type ToleranceConfig struct {
	Mode     ToleranceMode
	Limit    decimal.Decimal
	MaxTicks decimal.Decimal // tick mode only; defaults to 1 tick when zero
}

// TickLimit resolves the tick-count limit, defaulting to one tick.
func (c ToleranceConfig) TickLimit() decimal.Decimal {
	if c.MaxTicks.IsZero() {
		return decimal.NewFromInt(1)
	}
	return c.MaxTicks
}

// ToleranceBreak records one field-level difference between two trades.
// It is emitted whenever the compared values differ, whether or not the
// difference exceeds the configured limit; Within distinguishes the two.
type ToleranceBreak struct {
	Field         string
	InternalValue decimal.Decimal
	ExternalValue decimal.Decimal
	DiffAbsolute  decimal.Decimal
	DiffTicks     decimal.Decimal // zero unless tick mode applied
	HasTicks      bool
	Limit         decimal.Decimal
	ModeUsed      ToleranceMode
	Degraded      bool // true when tick/unknown mode fell back to absolute
	Within        bool // true when the difference is inside the limit
	Description   string
}
