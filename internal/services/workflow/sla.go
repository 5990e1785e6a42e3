package workflow

import (
	"time"

	"github.com/shopspring/decimal"

	"TradeRecon/internal/domain/models"
)

var (
	notionalCritical = decimal.NewFromInt(10_000_000)
	notionalHigh     = decimal.NewFromInt(1_000_000)
	notionalMedium   = decimal.NewFromInt(100_000)
)

// slaWindows are the resolution windows per SLA severity.
var slaWindows = map[models.Severity]time.Duration{
	models.SeverityCritical: 2 * time.Hour,
	models.SeverityHigh:     8 * time.Hour,
	models.SeverityMedium:   24 * time.Hour,
	models.SeverityLow:      72 * time.Hour,
}

// SLASeverity grades exposure by notional. This is intentionally separate
// from the exception's own severity: a tiny price break on a huge swap
// still deserves a tight deadline.
func SLASeverity(notional decimal.Decimal) models.Severity {
	switch {
	case notional.GreaterThan(notionalCritical):
		return models.SeverityCritical
	case notional.GreaterThan(notionalHigh):
		return models.SeverityHigh
	case notional.GreaterThan(notionalMedium):
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func slaWindow(sev models.Severity) time.Duration {
	if w, ok := slaWindows[sev]; ok {
		return w
	}
	return slaWindows[models.SeverityLow]
}
