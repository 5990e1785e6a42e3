package service

import "TradeRecon/internal/domain/models"

// CauseExtractor derives a heuristic cause code from an exception. It is an
// interface so the keyword heuristic can be swapped for a configurable or
// learned extractor without touching the clustering algorithm.
type CauseExtractor interface {
	Extract(ex models.Exception) string
}

// Well-known cause codes produced by the default extractor and referenced
// by routing tables.
const (
	CausePriceMismatch    = "price_mismatch"
	CauseQuantityMismatch = "quantity_mismatch"
	CauseDateMismatch     = "date_mismatch"
	CauseMissingTrade     = "missing_trade"
	CauseUnexpectedTrade  = "unexpected_trade"
	CauseSystemTimeout    = "system_timeout"
	CauseDataFormat       = "data_format"
	CauseOther            = "other"
)
