package matching

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"TradeRecon/internal/domain/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidationError is a fail-fast batch rejection naming the offending
// fields. One bad row fails the whole batch; per-row recovery belongs to
// the loader that sits in front of the engine.
type ValidationError struct {
	Batch  string // which batch, e.g. "internal", "external", "ccp"
	Row    int
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s batch row %d: missing required field(s): %s",
		e.Batch, e.Row, strings.Join(e.Fields, ", "))
}

// validateBatch checks every trade of a batch against the required-field
// tags on models.Trade.
func validateBatch(name string, trades []models.Trade) error {
	for i, t := range trades {
		err := validate.Struct(t)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return &ValidationError{Batch: name, Row: i, Fields: fields}
		}
		return fmt.Errorf("validate %s batch row %d: %w", name, i, err)
	}
	return nil
}
