package matching

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"TradeRecon/internal/domain/models"
	"TradeRecon/internal/domain/repository"
	"TradeRecon/internal/services/tolerance"
	"TradeRecon/pkg/logger"
)

// Config carries the tolerance tables for one reconciliation run.
type Config struct {
	// Tolerances by compared field name ("price", "quantity").
	Tolerances map[string]models.ToleranceConfig
	// ProductOverrides maps symbol -> field -> tolerance, overriding the
	// run-level table for that instrument.
	ProductOverrides map[string]map[string]models.ToleranceConfig
}

func (c Config) toleranceFor(symbol, field string) models.ToleranceConfig {
	if byField, ok := c.ProductOverrides[symbol]; ok {
		if cfg, ok := byField[field]; ok {
			return cfg
		}
	}
	return c.Tolerances[field]
}

// Outcome is everything a two-way run produces.
type Outcome struct {
	Summary    models.ReconSummary
	Results    []models.MatchResult
	Exceptions []models.Exception
}

// Engine matches an internal trade batch against one external batch. It is
// stateless across calls; the product cache lives for a single run.
type Engine struct {
	cfg     Config
	eval    *tolerance.Evaluator
	catalog repository.ProductCatalog
	log     *logger.Logger
}

func NewEngine(cfg Config, eval *tolerance.Evaluator, catalog repository.ProductCatalog, log *logger.Logger) *Engine {
	return &Engine{cfg: cfg, eval: eval, catalog: catalog, log: log}
}

// Reconcile runs one full two-way pass. Output order is deterministic:
// match keys are visited in sorted order.
func (e *Engine) Reconcile(internal, external []models.Trade) (*Outcome, error) {
	if err := validateBatch("internal", internal); err != nil {
		return nil, err
	}
	if err := validateBatch("external", external); err != nil {
		return nil, err
	}

	products := loadProducts(e.catalog, e.log, internal, external)

	iMap := indexByPreferred(internal, "internal", e.log)
	eMap := indexByPreferred(external, "external", e.log)

	// Composite fallback indexes cover only orphans: trades whose preferred
	// key is absent on the opposite side.
	iOrphans := compositeIndex(iMap, eMap)
	eOrphans := compositeIndex(eMap, iMap)

	out := &Outcome{Summary: models.ReconSummary{
		TotalInternal: len(internal),
		TotalExternal: len(external),
	}}

	keys := make([]string, 0, len(iMap)+len(eMap))
	for k := range iMap {
		keys = append(keys, k)
	}
	for k := range eMap {
		if _, ok := iMap[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	consumed := map[string]bool{}
	for _, key := range keys {
		it, iOK := iMap[key]
		et, eOK := eMap[key]
		switch {
		case iOK && eOK:
			e.pair(out, products, it, et, key, keyKind(it))
		case iOK:
			if consumed["i|"+key] {
				continue
			}
			if fb, ok := eOrphans[it.CompositeKey()]; ok && !consumed["e|"+fb.PreferredKey()] {
				consumed["e|"+fb.PreferredKey()] = true
				e.pair(out, products, it, fb, it.CompositeKey(), models.KeyComposite)
				continue
			}
			out.Summary.MissingExternal++
			out.Results = append(out.Results, models.MatchResult{
				Internal: it, Matched: false, MatchKey: key, KeyKind: keyKind(it),
			})
			out.Exceptions = append(out.Exceptions, missingException(
				models.ExceptionMissingExternal, "EXC-ME-"+key, key, it,
				fmt.Sprintf("trade %s booked internally but missing from the external source", key)))
		case eOK:
			if consumed["e|"+key] {
				continue
			}
			if fb, ok := iOrphans[et.CompositeKey()]; ok && !consumed["i|"+fb.PreferredKey()] {
				consumed["i|"+fb.PreferredKey()] = true
				e.pair(out, products, fb, et, et.CompositeKey(), models.KeyComposite)
				continue
			}
			out.Summary.MissingInternal++
			out.Results = append(out.Results, models.MatchResult{
				External: et, Matched: false, MatchKey: key, KeyKind: keyKind(et),
			})
			out.Exceptions = append(out.Exceptions, missingException(
				models.ExceptionMissingInternal, "EXC-MI-"+key, key, et,
				fmt.Sprintf("trade %s reported externally but not booked internally", key)))
		}
	}

	finalizeSummary(&out.Summary)

	e.log.Info("reconciliation complete",
		logger.Int("total_internal", out.Summary.TotalInternal),
		logger.Int("total_external", out.Summary.TotalExternal),
		logger.Int("matches", out.Summary.Matches),
		logger.Int("mismatches", out.Summary.Mismatches),
		logger.Int("missing_internal", out.Summary.MissingInternal),
		logger.Int("missing_external", out.Summary.MissingExternal))

	return out, nil
}

// pair compares the two sides of a candidate match field by field and
// records either a match or a field-mismatch exception. An exception is
// still recorded when every difference sits inside tolerance, flagged
// AutoCleared, so the audit trail keeps the observed deltas.
func (e *Engine) pair(out *Outcome, products map[string]*models.Product, it, et *models.Trade, key string, kind models.MatchKeyKind) {
	product := products[it.Symbol]

	var breaks []models.ToleranceBreak
	if _, detail := e.eval.Evaluate("price", it.Price, et.Price, e.cfg.toleranceFor(it.Symbol, "price"), product); detail != nil {
		breaks = append(breaks, *detail)
	}
	if _, detail := e.eval.EvaluateQuantity("quantity", it.Quantity, et.Quantity, e.cfg.toleranceFor(it.Symbol, "quantity")); detail != nil {
		breaks = append(breaks, *detail)
	}

	if len(breaks) == 0 {
		out.Summary.Matches++
		out.Results = append(out.Results, models.MatchResult{
			Internal: it, External: et, Matched: true, MatchKey: key, KeyKind: kind,
		})
		return
	}

	autoCleared := true
	for _, b := range breaks {
		if !b.Within {
			autoCleared = false
			break
		}
	}

	if autoCleared {
		out.Summary.Matches++
	} else {
		out.Summary.Mismatches++
	}
	out.Results = append(out.Results, models.MatchResult{
		Internal: it, External: et, Matched: autoCleared,
		Breaks: breaks, MatchKey: key, KeyKind: kind,
	})

	ex := models.Exception{
		ID:           "EXC-FM-" + key,
		Type:         models.ExceptionFieldMismatch,
		Severity:     mismatchSeverity(breaks),
		TradeID:      it.TradeID,
		Symbol:       it.Symbol,
		Account:      it.Account,
		Counterparty: it.Counterparty,
		Notional:     it.Notional(),
		Breaks:       breaks,
		Description:  joinDescriptions(breaks),
		CausalHint:   causalHint(breaks),
		AutoCleared:  autoCleared,
	}
	out.Exceptions = append(out.Exceptions, ex)
}

// loadProducts builds the per-run product cache. A symbol without master
// data is cached as nil so the miss is logged only once per run.
func loadProducts(catalog repository.ProductCatalog, log *logger.Logger, batches ...[]models.Trade) map[string]*models.Product {
	cache := map[string]*models.Product{}
	for _, batch := range batches {
		for _, t := range batch {
			if _, seen := cache[t.Symbol]; seen {
				continue
			}
			if p, ok := catalog.Lookup(t.Symbol); ok {
				cp := p
				cache[t.Symbol] = &cp
			} else {
				cache[t.Symbol] = nil
				log.Warn("no product definition for symbol, tick tolerances will degrade",
					logger.String("symbol", t.Symbol))
			}
		}
	}
	return cache
}

func indexByPreferred(trades []models.Trade, name string, log *logger.Logger) map[string]*models.Trade {
	m := make(map[string]*models.Trade, len(trades))
	for i := range trades {
		t := &trades[i]
		key := t.PreferredKey()
		if _, dup := m[key]; dup {
			log.Warn("duplicate match key in batch, keeping first occurrence",
				logger.String("batch", name), logger.String("key", key))
			continue
		}
		m[key] = t
	}
	return m
}

// compositeIndex indexes trades of own whose preferred key does not appear
// in other, keyed by the composite fallback key.
func compositeIndex(own, other map[string]*models.Trade) map[string]*models.Trade {
	m := map[string]*models.Trade{}
	for key, t := range own {
		if _, paired := other[key]; paired {
			continue
		}
		if _, dup := m[t.CompositeKey()]; !dup {
			m[t.CompositeKey()] = t
		}
	}
	return m
}

func keyKind(t *models.Trade) models.MatchKeyKind {
	switch {
	case t.UTI != "":
		return models.KeyUTI
	case t.UPI != "":
		return models.KeyUPI
	default:
		return models.KeyTradeID
	}
}

func missingException(typ models.ExceptionType, id, key string, t *models.Trade, description string) models.Exception {
	return models.Exception{
		ID:           id,
		Type:         typ,
		Severity:     models.SeverityHigh,
		TradeID:      t.TradeID,
		Symbol:       t.Symbol,
		Account:      t.Account,
		Counterparty: t.Counterparty,
		Notional:     t.Notional(),
		Description:  description,
		CausalHint:   "confirm booking and feed completeness for " + key,
	}
}

// mismatchSeverity grades a field mismatch: economic fields (price,
// quantity) breaking tolerance are HIGH, anything else MEDIUM.
func mismatchSeverity(breaks []models.ToleranceBreak) models.Severity {
	for _, b := range breaks {
		if !b.Within && (b.Field == "price" || b.Field == "quantity") {
			return models.SeverityHigh
		}
	}
	return models.SeverityMedium
}

func causalHint(breaks []models.ToleranceBreak) string {
	var price, qty bool
	for _, b := range breaks {
		switch b.Field {
		case "price":
			price = true
		case "quantity":
			qty = true
		}
	}
	switch {
	case price && qty:
		return "quantity and price differ; check allocation or stale price"
	case qty:
		return "quantity mismatch; check fills, average-price aggregation or booking"
	case price:
		return "price deviation; review tick size, rounding or stale market data"
	default:
		return "general discrepancy"
	}
}

func joinDescriptions(breaks []models.ToleranceBreak) string {
	out := ""
	for i, b := range breaks {
		if i > 0 {
			out += "; "
		}
		out += b.Description
	}
	return out
}

func finalizeSummary(s *models.ReconSummary) {
	total := s.TotalInternal
	if s.TotalExternal > total {
		total = s.TotalExternal
	}
	if total == 0 {
		s.MatchRatePct = 100
		return
	}
	rate := decimal.NewFromInt(int64(s.Matches)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(decimal.NewFromInt(100))
	s.MatchRatePct, _ = rate.Round(2).Float64()
}
