// Package validation checks configuration values.
//
// Struct tags cover the static rules; the programmatic Validator covers
// rules that depend on several fields. Both report INVALID_CONFIG errors
// named by config key:
//
//	type Retry struct {
//	    MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
//	v := validation.New()
//	v.Custom(cfg.Pagination.Kind != "link" || cfg.Pagination.NextKey != "",
//	    "pagination.next_key", "is required for link pagination")
//	err = v.Err()
package validation
