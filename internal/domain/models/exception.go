package models

import "github.com/shopspring/decimal"

// Severity is the bucketed urgency of an exception or cluster.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Priority orders severities for sorting (higher is more severe).
func (s Severity) Priority() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// ExceptionType classifies a reconciliation disagreement.
type ExceptionType string

const (
	ExceptionFieldMismatch    ExceptionType = "FIELD_MISMATCH"
	ExceptionMissingInternal  ExceptionType = "MISSING_INTERNAL"
	ExceptionMissingExternal  ExceptionType = "MISSING_EXTERNAL"
	ExceptionNWayDisagreement ExceptionType = "NWAY_DISAGREEMENT"
	ExceptionNWayMissing      ExceptionType = "NWAY_MISSING"
)

// MatchKeyKind records which index produced a pairing.
type MatchKeyKind string

const (
	KeyUTI       MatchKeyKind = "uti"
	KeyUPI       MatchKeyKind = "upi"
	KeyTradeID   MatchKeyKind = "trade_id"
	KeyComposite MatchKeyKind = "composite"
)

// MatchResult pairs an internal trade with an external trade (either side
// may be absent) together with the field-level verdicts for the pair.
type MatchResult struct {
	Internal *Trade
	External *Trade
	Matched  bool
	Breaks   []ToleranceBreak
	MatchKey string
	KeyKind  MatchKeyKind
}

// SourceDelta is the per-source disagreement detail of an n-way run.
type SourceDelta struct {
	Source string
	Breaks []ToleranceBreak
}

// Exception is a reconciliation disagreement surfaced to downstream
// clustering and assignment. Created once by the match engine; downstream
// stages only attach ClusterID.
type Exception struct {
	ID            string
	Type          ExceptionType
	Severity      Severity
	TradeID       string
	Symbol        string
	Account       string
	Counterparty  string
	Notional      decimal.Decimal
	Breaks        []ToleranceBreak
	Description   string // human-readable summary of the disagreement
	CausalHint    string // short operator hint, e.g. "check allocation"
	AutoCleared   bool   // all field breaks were within tolerance
	ClusterID     string // attached by the clustering stage
	Authoritative string // n-way only: authoritative source name
	Deltas        []SourceDelta
	Missing       []string // n-way only: sources lacking the trade
}

// ReconSummary is the per-run aggregate handed to reporting collaborators.
type ReconSummary struct {
	TotalInternal   int
	TotalExternal   int
	Matches         int
	Mismatches      int
	MissingInternal int
	MissingExternal int
	MatchRatePct    float64
}
