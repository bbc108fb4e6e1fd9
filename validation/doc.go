// Package validation checks configuration and construction arguments.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Both report failures as an
// INVALID_ARGUMENT *errors.AppError listing every offending field.
//
// # Struct Tag Validation
//
//	type StrategyConfig struct {
//	    HighWaterMark *float64 `validate:"omitempty,gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	err := validation.New().
//	    Empty("readableType", t.ReadableType).
//	    NonNegative("highWaterMark", s.HighWaterMark).
//	    Err()
package validation
