package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a normalized trade record as delivered by an ingestion
// collaborator. Immutable once handed to the engine; passed by value.
type Trade struct {
	TradeID      string `validate:"required"`
	UTI          string // unique transaction identifier, may be empty
	UPI          string // unique product identifier, may be empty
	Symbol       string `validate:"required"`
	Account      string `validate:"required"`
	Counterparty string
	Side         string // "BUY" or "SELL"
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	ExecutedAt   time.Time // zero when the source does not report it
	Source       string    // originating source name, e.g. "internal", "ccp"
}

// PreferredKey returns the strongest identifier present on the trade:
// UTI, then UPI, then the primary trade id.
func (t Trade) PreferredKey() string {
	if t.UTI != "" {
		return t.UTI
	}
	if t.UPI != "" {
		return t.UPI
	}
	return t.TradeID
}

// CompositeKey is the fallback match key used when preferred identifiers
// disagree between sources (external systems often mint their own ids).
func (t Trade) CompositeKey() string {
	return t.Symbol + "|" + t.Account + "|" + t.Price.String() + "|" + t.Quantity.String()
}

// Notional is the value at risk proxy used for severity bucketing.
func (t Trade) Notional() decimal.Decimal {
	return t.Quantity.Abs().Mul(t.Price.Abs())
}

// Product is instrument master data. Only the tick specification matters to
// the engine: it converts a price difference into instrument-native ticks.
type Product struct {
	Symbol       string
	Exchange     string
	Name         string
	TickSize     decimal.Decimal
	TickValue    decimal.Decimal // dollar value per tick
	ContractSize int
	Currency     string
}
