// Package validation checks configuration structs and API payloads.
//
// Struct tag validation uses go-playground/validator with two extra tags,
// privacy_mode and processing_mode, for the diarization enums:
//
//	type Settings struct {
//	    Policy string  `json:"policy" validate:"required,privacy_mode"`
//	    Threshold float64 `json:"threshold" validate:"gte=0,lte=1"`
//	}
//	err := validation.Validate(s)
//
// Component configs collect errors programmatically:
//
//	v := validation.New()
//	v.Unit("accept_threshold", c.AcceptThreshold)
//	v.PositiveDuration("cache_ttl", c.CacheTTL)
//	return v.Err()
package validation
