package clustering

import (
	"strings"

	"TradeRecon/internal/domain/models"
	"TradeRecon/internal/domain/service"
)

// KeywordCauseExtractor derives a probable-cause code from an exception's
// structured breaks first and its description text second. It is the
// default extractor; a learned or rule-driven one can replace it behind
// the service.CauseExtractor interface.
type KeywordCauseExtractor struct{}

var _ service.CauseExtractor = (*KeywordCauseExtractor)(nil)

func NewKeywordCauseExtractor() *KeywordCauseExtractor {
	return &KeywordCauseExtractor{}
}

func (x *KeywordCauseExtractor) Extract(ex models.Exception) string {
	switch ex.Type {
	case models.ExceptionMissingExternal, models.ExceptionNWayMissing:
		return service.CauseMissingTrade
	case models.ExceptionMissingInternal:
		return service.CauseUnexpectedTrade
	}

	// Structured breaks are more reliable than free text. Price wins over
	// quantity when both fields broke.
	var price, qty, date bool
	for _, b := range allBreaks(ex) {
		if b.Within {
			continue
		}
		switch NormalizeField(b.Field) {
		case "price":
			price = true
		case "quantity":
			qty = true
		case "date":
			date = true
		}
	}
	switch {
	case price:
		return service.CausePriceMismatch
	case qty:
		return service.CauseQuantityMismatch
	case date:
		return service.CauseDateMismatch
	}

	text := strings.ToLower(ex.Description + " " + ex.CausalHint)
	switch {
	case strings.Contains(text, "price") || strings.Contains(text, "rate"):
		return service.CausePriceMismatch
	case strings.Contains(text, "quantity") || strings.Contains(text, "notional"):
		return service.CauseQuantityMismatch
	case strings.Contains(text, "date"):
		return service.CauseDateMismatch
	case strings.Contains(text, "missing"):
		return service.CauseMissingTrade
	case strings.Contains(text, "unexpected"):
		return service.CauseUnexpectedTrade
	case strings.Contains(text, "timeout") || strings.Contains(text, "timed out"):
		return service.CauseSystemTimeout
	case strings.Contains(text, "format") || strings.Contains(text, "parse"):
		return service.CauseDataFormat
	}
	return service.CauseOther
}

// allBreaks flattens direct breaks and per-source deltas into one list.
func allBreaks(ex models.Exception) []models.ToleranceBreak {
	if len(ex.Deltas) == 0 {
		return ex.Breaks
	}
	breaks := append([]models.ToleranceBreak{}, ex.Breaks...)
	for _, d := range ex.Deltas {
		breaks = append(breaks, d.Breaks...)
	}
	return breaks
}
