package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Team is a resolution team that can own exceptions or clusters.
type Team struct {
	ID              string
	Name            string
	Type            string // "operations", "trading", "technology", ...
	Specializations []string
	Capacity        int
	EscalationTeam  string // team id receiving escalations, may be empty
}

// RuleCondition is the matching condition of one assignment rule. Empty
// fields do not constrain; a rule matches when every populated condition
// holds.
type RuleCondition struct {
	Causes         []string
	ProductTypes   []string
	Counterparties []string
	MinNotional    decimal.Decimal
	MaxNotional    decimal.Decimal // zero means unbounded
}

// AssignmentRule routes exceptions to a team. Rules are evaluated in
// ascending Priority order; the first match wins.
type AssignmentRule struct {
	ID        string
	Priority  int
	Condition RuleCondition
	Team      string
}

// AssignmentStatus is the lifecycle state of an assignment.
type AssignmentStatus string

const (
	StatusUnassigned AssignmentStatus = "UNASSIGNED"
	StatusAssigned   AssignmentStatus = "ASSIGNED"
	StatusInProgress AssignmentStatus = "IN_PROGRESS"
	StatusEscalated  AssignmentStatus = "ESCALATED"
	StatusResolved   AssignmentStatus = "RESOLVED"
	StatusClosed     AssignmentStatus = "CLOSED"
)

// Open reports whether the assignment still counts against SLA timers.
func (s AssignmentStatus) Open() bool {
	return s != StatusResolved && s != StatusClosed
}

// ExceptionAssignment is the only mutable entity in the engine. All state
// changes go through the workflow's transition rules. SLADueAt is fixed at
// assignment time and never recomputed; escalation changes the owning team,
// not the deadline.
type ExceptionAssignment struct {
	ID          string
	ItemID      string // exception id or cluster id
	ClusterID   string // empty for singleton exceptions
	Team        string
	AssignedBy  string
	AssignedAt  time.Time
	SLASeverity Severity
	SLADueAt    time.Time
	EscalateAt  time.Time
	SLABreached bool
	Escalated   bool

	Status          AssignmentStatus
	StatusUpdatedAt time.Time
	Reason          string
	Confidence      float64
	ResolvedAt      time.Time
	ResolvedBy      string
	ResolutionNotes string
}
