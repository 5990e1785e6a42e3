package usecase

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"TradeRecon/internal/domain/models"
	"TradeRecon/internal/domain/repository"
	"TradeRecon/internal/services/clustering"
	"TradeRecon/internal/services/matching"
	"TradeRecon/internal/services/tolerance"
	"TradeRecon/internal/services/workflow"
	"TradeRecon/pkg/config"
	"TradeRecon/pkg/logger"
)

// BuildReconciler assembles the full pipeline from configuration. The
// config has already passed structural validation; this step converts
// numeric strings and constructs every stage.
func BuildReconciler(cfg *config.Config, metrics repository.Metrics, log *logger.Logger, clock func() time.Time) (*Reconciler, error) {
	matchCfg, err := buildMatchingConfig(cfg)
	if err != nil {
		return nil, err
	}
	products, err := buildProducts(cfg)
	if err != nil {
		return nil, err
	}
	catalog := repository.NewStaticCatalog(products)
	eval := tolerance.NewEvaluator(log)
	engine := matching.NewEngine(matchCfg, eval, catalog, log)
	nway := matching.NewNWayEngine(matchCfg, cfg.NWay.AuthoritativeOrder, eval, catalog, log)

	extractor := clustering.NewKeywordCauseExtractor()
	analyzer := clustering.NewAnalyzer(clustering.Config{
		MinClusterSize: cfg.Clustering.MinClusterSize,
		MaxClusters:    cfg.Clustering.MaxClusters,
		EnableExact:    !cfg.Clustering.DisableExact,
		EnableFuzzy:    !cfg.Clustering.DisableFuzzy,
	}, extractor, log)

	wfCfg, err := buildWorkflowConfig(cfg)
	if err != nil {
		return nil, err
	}
	wf, err := workflow.NewEngine(wfCfg, extractor, log)
	if err != nil {
		return nil, err
	}

	return NewReconciler(engine, nway, analyzer, wf, metrics, log, clock), nil
}

func buildMatchingConfig(cfg *config.Config) (matching.Config, error) {
	out := matching.Config{Tolerances: map[string]models.ToleranceConfig{}}
	for field, rule := range cfg.Recon.Tolerances {
		tc, err := buildTolerance(rule)
		if err != nil {
			return matching.Config{}, fmt.Errorf("recon.tolerances.%s: %w", field, err)
		}
		out.Tolerances[field] = tc
	}
	if len(cfg.Recon.ProductOverrides) > 0 {
		out.ProductOverrides = map[string]map[string]models.ToleranceConfig{}
		for symbol, byField := range cfg.Recon.ProductOverrides {
			out.ProductOverrides[symbol] = map[string]models.ToleranceConfig{}
			for field, rule := range byField {
				tc, err := buildTolerance(rule)
				if err != nil {
					return matching.Config{}, fmt.Errorf("recon.product_overrides.%s.%s: %w", symbol, field, err)
				}
				out.ProductOverrides[symbol][field] = tc
			}
		}
	}
	return out, nil
}

func buildTolerance(rule config.ToleranceRule) (models.ToleranceConfig, error) {
	tc := models.ToleranceConfig{Mode: models.ToleranceMode(rule.Mode)}
	if !tc.Mode.Valid() {
		return models.ToleranceConfig{}, fmt.Errorf("unknown tolerance mode %q", rule.Mode)
	}
	var err error
	if tc.Limit, err = parseDecimal(rule.Limit); err != nil {
		return models.ToleranceConfig{}, err
	}
	if tc.MaxTicks, err = parseDecimal(rule.MaxTicks); err != nil {
		return models.ToleranceConfig{}, err
	}
	return tc, nil
}

func buildProducts(cfg *config.Config) ([]models.Product, error) {
	out := make([]models.Product, 0, len(cfg.Products))
	for _, p := range cfg.Products {
		tickSize, err := parseDecimal(p.TickSize)
		if err != nil {
			return nil, fmt.Errorf("products.%s.tick_size: %w", p.Symbol, err)
		}
		tickValue, err := parseDecimal(p.TickValue)
		if err != nil {
			return nil, fmt.Errorf("products.%s.tick_value: %w", p.Symbol, err)
		}
		out = append(out, models.Product{
			Symbol:       p.Symbol,
			Exchange:     p.Exchange,
			Name:         p.Name,
			TickSize:     tickSize,
			TickValue:    tickValue,
			ContractSize: p.ContractSize,
			Currency:     p.Currency,
		})
	}
	return out, nil
}

func buildWorkflowConfig(cfg *config.Config) (workflow.Config, error) {
	teams := make(map[string]models.Team, len(cfg.Workflow.Teams))
	for _, t := range cfg.Workflow.Teams {
		teams[t.ID] = models.Team{
			ID:              t.ID,
			Name:            t.Name,
			Type:            t.Type,
			Specializations: t.Specializations,
			Capacity:        t.Capacity,
			EscalationTeam:  t.EscalationTeam,
		}
	}

	rules := make([]models.AssignmentRule, 0, len(cfg.Workflow.Rules))
	for _, r := range cfg.Workflow.Rules {
		minNotional, err := parseDecimal(r.MinNotional)
		if err != nil {
			return workflow.Config{}, fmt.Errorf("workflow.rules.%s.min_notional: %w", r.ID, err)
		}
		maxNotional, err := parseDecimal(r.MaxNotional)
		if err != nil {
			return workflow.Config{}, fmt.Errorf("workflow.rules.%s.max_notional: %w", r.ID, err)
		}
		rules = append(rules, models.AssignmentRule{
			ID:       r.ID,
			Priority: r.Priority,
			Team:     r.Team,
			Condition: models.RuleCondition{
				Causes:         r.Causes,
				ProductTypes:   r.ProductTypes,
				Counterparties: r.Counterparties,
				MinNotional:    minNotional,
				MaxNotional:    maxNotional,
			},
		})
	}

	return workflow.Config{
		Teams:       teams,
		Rules:       rules,
		CauseRoutes: cfg.Workflow.CauseRoutes,
		DefaultTeam: cfg.Workflow.DefaultTeam,
	}, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, nil
	}
	return decimal.NewFromString(s)
}
