package workflow

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"TradeRecon/internal/domain/models"
	"TradeRecon/internal/domain/service"
	"TradeRecon/internal/services/clustering"
	"TradeRecon/pkg/logger"
)

var (
	ErrUnknownTeam       = errors.New("unknown team")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Routing confidence by how specific the match was.
const (
	confidenceCauseRoute = 0.9
	confidenceRule       = 0.8
	confidenceDefault    = 0.5
)

const autoRouter = "auto-router"

// transitions is the complete lifecycle graph. CLOSED is terminal.
var transitions = map[models.AssignmentStatus][]models.AssignmentStatus{
	models.StatusUnassigned: {models.StatusAssigned},
	models.StatusAssigned:   {models.StatusInProgress, models.StatusResolved, models.StatusEscalated},
	models.StatusInProgress: {models.StatusResolved, models.StatusEscalated},
	models.StatusEscalated:  {models.StatusInProgress, models.StatusResolved, models.StatusClosed},
	models.StatusResolved:   {models.StatusClosed},
	models.StatusClosed:     {},
}

// Config is the routing table for one workflow engine. All team references
// are checked at construction; a dangling reference is a configuration
// error, never a runtime surprise.
type Config struct {
	Teams       map[string]models.Team
	Rules       []models.AssignmentRule
	CauseRoutes map[string]string // cause code -> team id
	DefaultTeam string
}

// Engine owns exception routing, SLA timers and the assignment lifecycle.
// It holds no assignment state; callers keep the assignments it returns and
// feed them back into Transition and Tick.
type Engine struct {
	teams       map[string]models.Team
	rules       []models.AssignmentRule
	causeRoutes map[string]string
	defaultTeam string
	causes      service.CauseExtractor
	log         *logger.Logger
}

func NewEngine(cfg Config, causes service.CauseExtractor, log *logger.Logger) (*Engine, error) {
	if _, ok := cfg.Teams[cfg.DefaultTeam]; !ok {
		return nil, fmt.Errorf("default team %q: %w", cfg.DefaultTeam, ErrUnknownTeam)
	}
	teamIDs := make([]string, 0, len(cfg.Teams))
	for id := range cfg.Teams {
		teamIDs = append(teamIDs, id)
	}
	sort.Strings(teamIDs)
	for _, id := range teamIDs {
		if target := cfg.Teams[id].EscalationTeam; target != "" {
			if _, ok := cfg.Teams[target]; !ok {
				return nil, fmt.Errorf("team %s escalation target %q: %w", id, target, ErrUnknownTeam)
			}
		}
	}
	for _, r := range cfg.Rules {
		if _, ok := cfg.Teams[r.Team]; !ok {
			return nil, fmt.Errorf("rule %s team %q: %w", r.ID, r.Team, ErrUnknownTeam)
		}
	}
	causeKeys := make([]string, 0, len(cfg.CauseRoutes))
	for cause := range cfg.CauseRoutes {
		causeKeys = append(causeKeys, cause)
	}
	sort.Strings(causeKeys)
	for _, cause := range causeKeys {
		if _, ok := cfg.Teams[cfg.CauseRoutes[cause]]; !ok {
			return nil, fmt.Errorf("cause route %s team %q: %w", cause, cfg.CauseRoutes[cause], ErrUnknownTeam)
		}
	}

	rules := append([]models.AssignmentRule(nil), cfg.Rules...)
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})

	if causes == nil {
		causes = clustering.NewKeywordCauseExtractor()
	}

	return &Engine{
		teams:       cfg.Teams,
		rules:       rules,
		causeRoutes: cfg.CauseRoutes,
		defaultTeam: cfg.DefaultTeam,
		causes:      causes,
		log:         log,
	}, nil
}

// Assign routes clusters first, then the exceptions no cluster claimed.
// Clustered exceptions share their cluster's single assignment. The caller
// supplies the clock; SLA deadlines are fixed relative to it.
func (e *Engine) Assign(exceptions []models.Exception, clusters []models.ExceptionCluster, now time.Time) []*models.ExceptionAssignment {
	exByID := make(map[string]*models.Exception, len(exceptions))
	for i := range exceptions {
		exByID[exceptions[i].ID] = &exceptions[i]
	}

	var out []*models.ExceptionAssignment
	claimed := map[string]bool{}

	for _, cluster := range clusters {
		maxNotional := decimal.Zero
		var representative *models.Exception
		for _, id := range cluster.MemberIDs {
			claimed[id] = true
			ex, ok := exByID[id]
			if !ok {
				continue
			}
			if ex.Notional.GreaterThan(maxNotional) {
				maxNotional = ex.Notional
			}
			if id == cluster.Representative {
				representative = ex
			}
		}

		team, reason, confidence := e.routeCluster(cluster, representative)
		a := e.newAssignment(cluster.ID, team, reason, confidence, SLASeverity(maxNotional), now)
		a.ClusterID = cluster.ID
		out = append(out, a)
	}

	for i := range exceptions {
		ex := &exceptions[i]
		if claimed[ex.ID] {
			continue
		}
		team, reason, confidence := e.routeException(ex)
		out = append(out, e.newAssignment(ex.ID, team, reason, confidence, SLASeverity(ex.Notional), now))
	}

	e.log.Info("assignment pass complete",
		logger.Int("clusters", len(clusters)),
		logger.Int("exceptions", len(exceptions)),
		logger.Int("assignments", len(out)))

	return out
}

// routeCluster prefers the cause routing table, falls back to the rule set
// applied to the representative member, then the default team.
func (e *Engine) routeCluster(cluster models.ExceptionCluster, representative *models.Exception) (team, reason string, confidence float64) {
	if teamID, ok := e.causeRoutes[cluster.ProbableCause]; ok {
		return teamID, "cause route " + cluster.ProbableCause, confidenceCauseRoute
	}
	if representative != nil {
		if rule := e.firstMatchingRule(representative, cluster.ProbableCause); rule != nil {
			return rule.Team, "rule " + rule.ID, confidenceRule
		}
	}
	return e.defaultTeam, "default routing", confidenceDefault
}

func (e *Engine) routeException(ex *models.Exception) (team, reason string, confidence float64) {
	cause := e.causes.Extract(*ex)
	if rule := e.firstMatchingRule(ex, cause); rule != nil {
		return rule.Team, "rule " + rule.ID, confidenceRule
	}
	return e.defaultTeam, "default routing", confidenceDefault
}

func (e *Engine) firstMatchingRule(ex *models.Exception, cause string) *models.AssignmentRule {
	for i := range e.rules {
		if ruleMatches(&e.rules[i], ex, cause) {
			return &e.rules[i]
		}
	}
	return nil
}

// ruleMatches checks every populated condition; empty conditions match
// anything.
func ruleMatches(rule *models.AssignmentRule, ex *models.Exception, cause string) bool {
	cond := rule.Condition
	if len(cond.Causes) > 0 && !containsString(cond.Causes, cause) {
		return false
	}
	if len(cond.ProductTypes) > 0 && !containsString(cond.ProductTypes, clustering.ProductType(ex.Symbol)) {
		return false
	}
	if len(cond.Counterparties) > 0 && !containsString(cond.Counterparties, ex.Counterparty) {
		return false
	}
	if !cond.MinNotional.IsZero() && ex.Notional.LessThan(cond.MinNotional) {
		return false
	}
	if !cond.MaxNotional.IsZero() && ex.Notional.GreaterThan(cond.MaxNotional) {
		return false
	}
	return true
}

func (e *Engine) newAssignment(itemID, team, reason string, confidence float64, sev models.Severity, now time.Time) *models.ExceptionAssignment {
	window := slaWindow(sev)
	return &models.ExceptionAssignment{
		ID:              uuid.NewString(),
		ItemID:          itemID,
		Team:            team,
		AssignedBy:      autoRouter,
		AssignedAt:      now,
		SLASeverity:     sev,
		SLADueAt:        now.Add(window),
		EscalateAt:      now.Add(window / 2),
		Status:          models.StatusAssigned,
		StatusUpdatedAt: now,
		Reason:          reason,
		Confidence:      confidence,
	}
}

// Transition applies one lifecycle step. Resolution after the deadline
// marks the SLA breached; escalation moves ownership to the escalation
// team while keeping the original deadline.
func (e *Engine) Transition(a *models.ExceptionAssignment, to models.AssignmentStatus, now time.Time, actor, notes string) error {
	if !containsStatus(transitions[a.Status], to) {
		return fmt.Errorf("%s -> %s: %w", a.Status, to, ErrInvalidTransition)
	}

	switch to {
	case models.StatusResolved:
		a.ResolvedAt = now
		a.ResolvedBy = actor
		a.ResolutionNotes = notes
		if now.After(a.SLADueAt) {
			a.SLABreached = true
		}
	case models.StatusEscalated:
		e.escalate(a)
	}

	a.Status = to
	a.StatusUpdatedAt = now
	return nil
}

// escalate reassigns to the team's escalation target when one is
// configured; otherwise ownership stays put and only the flag moves. The
// SLA deadline never moves.
func (e *Engine) escalate(a *models.ExceptionAssignment) {
	a.Escalated = true
	target := e.teams[a.Team].EscalationTeam
	if target == "" {
		e.log.Warn("assignment escalated without target team",
			logger.String("assignment", a.ID),
			logger.String("item", a.ItemID),
			logger.String("team", a.Team))
		return
	}
	e.log.Warn("assignment escalated",
		logger.String("assignment", a.ID),
		logger.String("item", a.ItemID),
		logger.String("from_team", a.Team),
		logger.String("to_team", target))
	a.Team = target
}

// Tick runs the periodic SLA scan over open assignments. An assignment past
// its escalation point is escalated once; one past its deadline is marked
// breached once. Running Tick repeatedly with the same clock is a no-op
// after the first call.
func (e *Engine) Tick(assignments []*models.ExceptionAssignment, now time.Time) (escalated, breached int) {
	for _, a := range assignments {
		if !a.Status.Open() {
			continue
		}
		if !a.Escalated && now.After(a.EscalateAt) {
			if err := e.Transition(a, models.StatusEscalated, now, autoRouter, ""); err == nil {
				escalated++
			}
		}
		if !a.SLABreached && now.After(a.SLADueAt) {
			a.SLABreached = true
			breached++
			e.log.Warn("SLA breached",
				logger.String("assignment", a.ID),
				logger.String("item", a.ItemID),
				logger.String("team", a.Team),
				logger.String("severity", string(a.SLASeverity)))
		}
	}
	if escalated > 0 || breached > 0 {
		e.log.Info("SLA scan complete",
			logger.Int("escalated", escalated),
			logger.Int("breached", breached))
	}
	return escalated, breached
}

// Workload counts open assignments per team.
func (e *Engine) Workload(assignments []*models.ExceptionAssignment) map[string]int {
	load := map[string]int{}
	for _, a := range assignments {
		if a.Status.Open() {
			load[a.Team]++
		}
	}
	return load
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func containsStatus(xs []models.AssignmentStatus, x models.AssignmentStatus) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
