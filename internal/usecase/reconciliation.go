package usecase

import (
	"time"

	"TradeRecon/internal/domain/models"
	"TradeRecon/internal/domain/repository"
	"TradeRecon/internal/services/clustering"
	"TradeRecon/internal/services/matching"
	"TradeRecon/internal/services/workflow"
	"TradeRecon/pkg/logger"
)

// Run kinds as reported to metrics.
const (
	kindTwoWay = "two_way"
	kindNWay   = "n_way"
)

// Result is the complete product of one two-way run: matching output,
// clusters over the actionable exceptions and the routed assignments.
type Result struct {
	Summary     models.ReconSummary
	Results     []models.MatchResult
	Exceptions  []models.Exception
	Clusters    []models.ExceptionCluster
	Assignments []*models.ExceptionAssignment
}

// NWayResult is the n-way counterpart.
type NWayResult struct {
	Matches         int
	TotalBySource   map[string]int
	SourcesCompared []string
	Exceptions      []models.Exception
	Clusters        []models.ExceptionCluster
	Assignments     []*models.ExceptionAssignment
}

// Reconciler chains the pipeline stages: match, cluster, assign. It owns
// no state beyond its collaborators; every run is independent.
type Reconciler struct {
	engine   *matching.Engine
	nway     *matching.NWayEngine
	analyzer *clustering.Analyzer
	workflow *workflow.Engine
	metrics  repository.Metrics
	log      *logger.Logger
	clock    func() time.Time
}

// NewReconciler wires the pipeline. A nil clock defaults to time.Now; a
// nil metrics sink discards observations.
func NewReconciler(
	engine *matching.Engine,
	nway *matching.NWayEngine,
	analyzer *clustering.Analyzer,
	wf *workflow.Engine,
	metrics repository.Metrics,
	log *logger.Logger,
	clock func() time.Time,
) *Reconciler {
	if clock == nil {
		clock = time.Now
	}
	if metrics == nil {
		metrics = repository.NopMetrics{}
	}
	return &Reconciler{
		engine:   engine,
		nway:     nway,
		analyzer: analyzer,
		workflow: wf,
		metrics:  metrics,
		log:      log,
		clock:    clock,
	}
}

// Run executes one two-way reconciliation end to end. Auto-cleared
// exceptions stay in the output for audit but are invisible to clustering
// and assignment.
func (r *Reconciler) Run(internal, external []models.Trade) (*Result, error) {
	start := r.clock()

	out, err := r.engine.Reconcile(internal, external)
	if err != nil {
		return nil, err
	}

	actionable := actionableExceptions(out.Exceptions)
	clusters := r.analyzer.Analyze(actionable)
	attachClusterIDs(out.Exceptions, clusters)
	attachClusterIDs(actionable, clusters)

	now := r.clock()
	assignments := r.workflow.Assign(actionable, clusters, now)

	r.observeRun(kindTwoWay, start, now, out.Summary.Matches, actionable, clusters)
	r.metrics.RecordMatchRate(out.Summary.MatchRatePct)

	r.log.Info("reconciliation pipeline complete",
		logger.Int("exceptions", len(out.Exceptions)),
		logger.Int("actionable", len(actionable)),
		logger.Int("clusters", len(clusters)),
		logger.Int("assignments", len(assignments)))

	return &Result{
		Summary:     out.Summary,
		Results:     out.Results,
		Exceptions:  out.Exceptions,
		Clusters:    clusters,
		Assignments: assignments,
	}, nil
}

// RunNWay executes one n-way reconciliation end to end.
func (r *Reconciler) RunNWay(sources map[string][]models.Trade) (*NWayResult, error) {
	start := r.clock()

	out, err := r.nway.Reconcile(sources)
	if err != nil {
		return nil, err
	}

	actionable := actionableExceptions(out.Exceptions)
	clusters := r.analyzer.Analyze(actionable)
	attachClusterIDs(out.Exceptions, clusters)
	attachClusterIDs(actionable, clusters)

	now := r.clock()
	assignments := r.workflow.Assign(actionable, clusters, now)

	r.observeRun(kindNWay, start, now, out.Matches, actionable, clusters)

	return &NWayResult{
		Matches:         out.Matches,
		TotalBySource:   out.TotalBySource,
		SourcesCompared: out.SourcesCompared,
		Exceptions:      out.Exceptions,
		Clusters:        clusters,
		Assignments:     assignments,
	}, nil
}

// Tick runs the SLA scan and mirrors the outcome to metrics.
func (r *Reconciler) Tick(assignments []*models.ExceptionAssignment, now time.Time) (escalated, breached int) {
	escalated, breached = r.workflow.Tick(assignments, now)
	for i := 0; i < escalated; i++ {
		r.metrics.RecordEscalation()
	}
	for i := 0; i < breached; i++ {
		r.metrics.RecordSLABreach()
	}
	return escalated, breached
}

// Transition forwards a lifecycle step to the workflow engine.
func (r *Reconciler) Transition(a *models.ExceptionAssignment, to models.AssignmentStatus, now time.Time, actor, notes string) error {
	return r.workflow.Transition(a, to, now, actor, notes)
}

func (r *Reconciler) observeRun(kind string, start, now time.Time, matches int, actionable []models.Exception, clusters []models.ExceptionCluster) {
	r.metrics.RecordRun(kind, now.Sub(start).Seconds())
	r.metrics.RecordMatches(kind, matches)
	for _, ex := range actionable {
		r.metrics.RecordException(string(ex.Type))
	}
	for _, c := range clusters {
		r.metrics.RecordCluster(string(c.Method))
	}
}

// actionableExceptions filters out auto-cleared entries; they are audit
// records, not work items.
func actionableExceptions(exceptions []models.Exception) []models.Exception {
	var out []models.Exception
	for _, ex := range exceptions {
		if !ex.AutoCleared {
			out = append(out, ex)
		}
	}
	return out
}

func attachClusterIDs(exceptions []models.Exception, clusters []models.ExceptionCluster) {
	if len(clusters) == 0 {
		return
	}
	byMember := map[string]string{}
	for _, c := range clusters {
		for _, id := range c.MemberIDs {
			byMember[id] = c.ID
		}
	}
	for i := range exceptions {
		if cid, ok := byMember[exceptions[i].ID]; ok {
			exceptions[i].ClusterID = cid
		}
	}
}
