// Package validation checks configuration and request input.
//
// Struct tag validation uses go-playground/validator and reports fields by
// their mapstructure name:
//
//	type Config struct {
//	    ExecLimit *float64 `mapstructure:"exec_limit" validate:"omitempty,gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic validation collects errors and turns them into one
// INVALID_INPUT AppError:
//
//	v := validation.New()
//	v.PositiveDuration("interval", d)
//	if err := v.Validate(); err != nil { ... }
package validation
