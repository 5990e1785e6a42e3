package tolerance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"TradeRecon/internal/domain/models"
	"TradeRecon/pkg/logger"
)

// Verdict is the outcome of one field comparison.
type Verdict int

const (
	Match Verdict = iota
	Break
)

var hundred = decimal.NewFromInt(100)

// Evaluator compares two numeric values under a tolerance policy. It is
// pure: the only side effect is a warning log when a policy degrades.
type Evaluator struct {
	log *logger.Logger
}

func NewEvaluator(log *logger.Logger) *Evaluator {
	return &Evaluator{log: log}
}

// Evaluate compares internal vs external for one field. Identical values
// return (Match, nil). Differing values always return a ToleranceBreak
// detail; Verdict and detail.Within say whether the difference is inside
// the configured limit.
//
// Tick mode needs a product with a tick size; without one the comparison
// degrades to absolute mode, logs the fallback and marks the detail
// Degraded. Unknown modes degrade the same way so a misconfigured field
// still produces a conservative verdict instead of an error.
func (e *Evaluator) Evaluate(field string, internal, external decimal.Decimal, cfg models.ToleranceConfig, product *models.Product) (Verdict, *models.ToleranceBreak) {
	diff := internal.Sub(external).Abs()
	if diff.IsZero() {
		return Match, nil
	}

	switch cfg.Mode {
	case models.ToleranceAbsolute:
		return e.absolute(field, internal, external, diff, cfg.Limit, false)
	case models.TolerancePercent:
		return e.percent(field, internal, external, diff, cfg.Limit)
	case models.ToleranceTicks:
		if product == nil || product.TickSize.IsZero() {
			e.log.Warn("no tick size available, tick tolerance degraded to absolute",
				logger.String("field", field))
			return e.absolute(field, internal, external, diff, cfg.Limit, true)
		}
		return e.ticks(field, internal, external, diff, cfg, product)
	default:
		e.log.Warn("unknown tolerance mode, degraded to absolute",
			logger.String("field", field),
			logger.String("mode", string(cfg.Mode)))
		return e.absolute(field, internal, external, diff, cfg.Limit, true)
	}
}

// EvaluateQuantity compares quantities. Quantity policy is always absolute,
// defaulting to zero tolerance (exact match) unless a limit is configured.
func (e *Evaluator) EvaluateQuantity(field string, internal, external decimal.Decimal, cfg models.ToleranceConfig) (Verdict, *models.ToleranceBreak) {
	diff := internal.Sub(external).Abs()
	if diff.IsZero() {
		return Match, nil
	}
	return e.absolute(field, internal, external, diff, cfg.Limit, false)
}

func (e *Evaluator) absolute(field string, internal, external, diff, limit decimal.Decimal, degraded bool) (Verdict, *models.ToleranceBreak) {
	within := diff.LessThanOrEqual(limit)
	detail := &models.ToleranceBreak{
		Field:         field,
		InternalValue: internal,
		ExternalValue: external,
		DiffAbsolute:  diff,
		Limit:         limit,
		ModeUsed:      models.ToleranceAbsolute,
		Degraded:      degraded,
		Within:        within,
	}
	if within {
		detail.Description = fmt.Sprintf("%s difference %s within tolerance %s", field, diff, limit)
		return Match, detail
	}
	detail.Description = fmt.Sprintf("%s difference %s exceeds tolerance %s", field, diff, limit)
	return Break, detail
}

func (e *Evaluator) percent(field string, internal, external, diff, limit decimal.Decimal) (Verdict, *models.ToleranceBreak) {
	denom := decimal.Max(internal.Abs(), external.Abs())
	detail := &models.ToleranceBreak{
		Field:         field,
		InternalValue: internal,
		ExternalValue: external,
		DiffAbsolute:  diff,
		Limit:         limit,
		ModeUsed:      models.TolerancePercent,
	}
	if denom.IsZero() {
		// Both values zero is defined as a match regardless of limit.
		detail.Within = true
		detail.Description = fmt.Sprintf("%s values both zero", field)
		return Match, detail
	}
	pct := diff.Div(denom).Mul(hundred)
	detail.Within = pct.LessThanOrEqual(limit)
	if detail.Within {
		detail.Description = fmt.Sprintf("%s difference %s%% within tolerance %s%%", field, pct.StringFixed(2), limit)
		return Match, detail
	}
	detail.Description = fmt.Sprintf("%s difference %s%% exceeds tolerance %s%%", field, pct.StringFixed(2), limit)
	return Break, detail
}

func (e *Evaluator) ticks(field string, internal, external, diff decimal.Decimal, cfg models.ToleranceConfig, product *models.Product) (Verdict, *models.ToleranceBreak) {
	diffTicks := diff.Div(product.TickSize)
	limit := cfg.TickLimit()
	within := diffTicks.LessThanOrEqual(limit)
	detail := &models.ToleranceBreak{
		Field:         field,
		InternalValue: internal,
		ExternalValue: external,
		DiffAbsolute:  diff,
		DiffTicks:     diffTicks,
		HasTicks:      true,
		Limit:         limit,
		ModeUsed:      models.ToleranceTicks,
		Within:        within,
	}
	if within {
		detail.Description = fmt.Sprintf("%s difference of %s tick(s) within tolerance %s tick(s) for %s",
			field, diffTicks, limit, product.Symbol)
		return Match, detail
	}
	detail.Description = fmt.Sprintf("%s difference of %s tick(s) exceeds tolerance %s tick(s) for %s",
		field, diffTicks, limit, product.Symbol)
	return Break, detail
}
