package clustering

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// fieldAliases folds source-specific field names onto the canonical names
// used in cluster keys.
var fieldAliases = map[string]string{
	"price":          "price",
	"rate":           "price",
	"fixed_rate":     "price",
	"forward_rate":   "price",
	"quantity":       "quantity",
	"qty":            "quantity",
	"notional":       "quantity",
	"amount":         "quantity",
	"date":           "date",
	"trade_date":     "date",
	"effective_date": "date",
	"maturity_date":  "date",
	"value_date":     "date",
}

// NormalizeField maps a break field name onto its canonical form.
func NormalizeField(field string) string {
	if field == "" {
		return "unknown"
	}
	normalized := strings.ToLower(strings.TrimSpace(field))
	if canonical, ok := fieldAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// ProductFamily folds a symbol onto a coarse instrument family used as an
// exact-pass cluster key component.
func ProductFamily(symbol string) string {
	if symbol == "" {
		return "unknown"
	}
	s := strings.ToUpper(strings.TrimSpace(symbol))
	switch {
	case strings.HasPrefix(s, "ES"):
		return "ES_FUTURES"
	case strings.HasPrefix(s, "NQ"):
		return "NQ_FUTURES"
	case strings.Contains(s, "IRS"):
		return "IRS"
	case strings.Contains(s, "FX"):
		return "FX_FORWARD"
	}
	if len(s) > 10 {
		s = s[:10]
	}
	return s
}

// ProductType is the broader asset-class bucket used by fuzzy features and
// by product-type assignment rules.
func ProductType(symbol string) string {
	if symbol == "" {
		return "unknown"
	}
	s := strings.ToUpper(symbol)
	switch {
	case hasAnyPrefix(s, "ES", "NQ", "YM", "RTY"):
		return "equity_futures"
	case hasAnyPrefix(s, "ZN", "ZB", "ZF", "ZT"):
		return "bond_futures"
	case strings.Contains(s, "IRS"):
		return "interest_rate_swap"
	case strings.Contains(s, "FX"):
		return "fx_forward"
	}
	return "other"
}

// AccountFamily folds an account or counterparty name onto its
// institutional type.
func AccountFamily(account string) string {
	if account == "" {
		return "unknown"
	}
	s := strings.ToUpper(strings.TrimSpace(account))
	switch {
	case hasAnyPrefix(s, "BANK", "BK"):
		return "bank"
	case hasAnyPrefix(s, "BROKER", "BR"):
		return "broker"
	case hasAnyPrefix(s, "CLIENT", "CL"):
		return "client"
	case hasAnyPrefix(s, "FUND", "FD"):
		return "fund"
	}
	return "other"
}

// termVocabulary anchors the fuzzy pass: descriptive terms within edit
// distance 2 of a vocabulary word collapse onto it, so near-miss spellings
// from different feeds hash identically.
var termVocabulary = []string{
	"price", "quantity", "difference", "tolerance", "exceeds", "within",
	"missing", "internal", "external", "source", "booked", "reported",
	"authoritative", "disagree", "tick",
}

// canonicalTerm maps a descriptive term onto the vocabulary when close
// enough, otherwise returns it unchanged.
func canonicalTerm(term string) string {
	best := term
	bestDist := 3 // anything >2 keeps the original term
	for _, word := range termVocabulary {
		if term == word {
			return word
		}
		if d := levenshtein.ComputeDistance(term, word); d < bestDist {
			best = word
			bestDist = d
		}
	}
	return best
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
