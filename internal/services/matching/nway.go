package matching

import (
	"fmt"
	"sort"
	"strings"

	"TradeRecon/internal/domain/models"
	"TradeRecon/internal/domain/repository"
	"TradeRecon/internal/services/tolerance"
	"TradeRecon/pkg/logger"
)

// NWayOutcome summarises a reconciliation across three or more sources.
type NWayOutcome struct {
	Matches         int
	TotalBySource   map[string]int
	Exceptions      []models.Exception
	SourcesCompared []string // authoritative order, as applied
}

// NWayEngine reconciles several named sources under an authoritative
// priority order: a trade fully matches only when present in every source
// and every non-authoritative record agrees with the authoritative one
// within tolerance.
type NWayEngine struct {
	cfg     Config
	order   []string
	eval    *tolerance.Evaluator
	catalog repository.ProductCatalog
	log     *logger.Logger
}

func NewNWayEngine(cfg Config, authoritativeOrder []string, eval *tolerance.Evaluator, catalog repository.ProductCatalog, log *logger.Logger) *NWayEngine {
	return &NWayEngine{cfg: cfg, order: authoritativeOrder, eval: eval, catalog: catalog, log: log}
}

// Reconcile runs one n-way pass over the named source batches. Every
// source name must appear in the authoritative order; anything else is a
// configuration error surfaced before any matching happens.
func (e *NWayEngine) Reconcile(sources map[string][]models.Trade) (*NWayOutcome, error) {
	if len(sources) < 2 {
		return nil, fmt.Errorf("n-way reconciliation needs at least 2 sources, got %d", len(sources))
	}
	ranked := make([]string, 0, len(sources))
	for _, name := range e.order {
		if _, ok := sources[name]; ok {
			ranked = append(ranked, name)
		}
	}
	if len(ranked) != len(sources) {
		var unknown []string
		for name := range sources {
			if !contains(e.order, name) {
				unknown = append(unknown, name)
			}
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("source(s) %s missing from authoritative order %v",
			strings.Join(unknown, ", "), e.order)
	}

	indexes := make(map[string]map[string]*models.Trade, len(ranked))
	out := &NWayOutcome{TotalBySource: map[string]int{}, SourcesCompared: ranked}
	var batches [][]models.Trade
	for _, name := range ranked {
		if err := validateBatch(name, sources[name]); err != nil {
			return nil, err
		}
		indexes[name] = indexByPreferred(sources[name], name, e.log)
		out.TotalBySource[name] = len(sources[name])
		batches = append(batches, sources[name])
	}
	products := loadProducts(e.catalog, e.log, batches...)

	idSet := map[string]bool{}
	for _, name := range ranked {
		for id := range indexes[name] {
			idSet[id] = true
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		var missing []string
		for _, name := range ranked {
			if _, ok := indexes[name][id]; !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			present := firstPresent(ranked, indexes, id)
			out.Exceptions = append(out.Exceptions, models.Exception{
				ID:           "EXC-NM-" + id,
				Type:         models.ExceptionNWayMissing,
				Severity:     models.SeverityHigh,
				TradeID:      present.TradeID,
				Symbol:       present.Symbol,
				Account:      present.Account,
				Counterparty: present.Counterparty,
				Notional:     present.Notional(),
				Missing:      missing,
				Description: fmt.Sprintf("trade %s absent from source(s): %s",
					id, strings.Join(missing, ", ")),
				CausalHint: "check feed completeness for the missing source(s)",
			})
			continue
		}

		auth := ranked[0]
		authTrade := indexes[auth][id]
		product := products[authTrade.Symbol]

		var deltas []models.SourceDelta
		for _, name := range ranked[1:] {
			rec := indexes[name][id]
			var breaks []models.ToleranceBreak
			disagrees := false
			if _, d := e.eval.Evaluate("price", authTrade.Price, rec.Price, e.cfg.toleranceFor(authTrade.Symbol, "price"), product); d != nil {
				breaks = append(breaks, *d)
				disagrees = disagrees || !d.Within
			}
			if _, d := e.eval.EvaluateQuantity("quantity", authTrade.Quantity, rec.Quantity, e.cfg.toleranceFor(authTrade.Symbol, "quantity")); d != nil {
				breaks = append(breaks, *d)
				disagrees = disagrees || !d.Within
			}
			if disagrees {
				deltas = append(deltas, models.SourceDelta{Source: name, Breaks: breaks})
			}
		}

		if len(deltas) == 0 {
			out.Matches++
			continue
		}

		names := make([]string, 0, len(deltas))
		for _, d := range deltas {
			names = append(names, d.Source)
		}
		out.Exceptions = append(out.Exceptions, models.Exception{
			ID:            "EXC-ND-" + id,
			Type:          models.ExceptionNWayDisagreement,
			Severity:      models.SeverityHigh,
			TradeID:       authTrade.TradeID,
			Symbol:        authTrade.Symbol,
			Account:       authTrade.Account,
			Counterparty:  authTrade.Counterparty,
			Notional:      authTrade.Notional(),
			Authoritative: auth,
			Deltas:        deltas,
			Description: fmt.Sprintf("source(s) %s disagree with authoritative source %s on trade %s",
				strings.Join(names, ", "), auth, id),
			CausalHint: "compare the deviating source's booking against the authoritative record",
		})
	}

	e.log.Info("n-way reconciliation complete",
		logger.Int("sources", len(ranked)),
		logger.Int("matches", out.Matches),
		logger.Int("exceptions", len(out.Exceptions)))

	return out, nil
}

func firstPresent(ranked []string, indexes map[string]map[string]*models.Trade, id string) *models.Trade {
	for _, name := range ranked {
		if t, ok := indexes[name][id]; ok {
			return t
		}
	}
	return nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
