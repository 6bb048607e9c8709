package recovery

import (
	"context"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/resilience"
	"github.com/ocobra/meeting-minutes-sub000/validation"
)

// Policy is the retry schedule for backend calls.
type Policy struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" mapstructure:"multiplier"`

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration) `yaml:"-" mapstructure:"-"`
}

// DefaultPolicy waits 1s then 2s between three attempts, capped at 4s.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 4 * time.Second, Multiplier: 2}
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (p *Policy) ApplyDefaults() {
	d := DefaultPolicy()
	if p.MaxAttempts == 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialBackoff == 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff == 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.Multiplier == 0 {
		p.Multiplier = d.Multiplier
	}
}

// Validate checks the policy.
func (p *Policy) Validate() error {
	v := validation.New().
		Min("recovery.max_attempts", p.MaxAttempts, 1).
		PositiveDuration("recovery.initial_backoff", p.InitialBackoff).
		PositiveDuration("recovery.max_backoff", p.MaxBackoff)
	v.Custom(p.Multiplier >= 1, "recovery.multiplier", "must be at least 1")
	return v.Err()
}

// Classifier maps an error onto the recovery taxonomy.
type Classifier func(error) errors.Kind

// Retry runs op until it succeeds, fails with an error classify does not
// call transient, runs out of attempts, or ctx is done. A nil classify
// uses errors.Classify. After the last attempt the returned error wraps
// the last failure.
func Retry[T any](ctx context.Context, policy Policy, classify Classifier, op func(ctx context.Context) (T, error)) (T, error) {
	policy.ApplyDefaults()
	if classify == nil {
		classify = errors.Classify
	}
	return resilience.Retry(ctx, resilience.RetryConfig{
		MaxAttempts:    policy.MaxAttempts,
		InitialBackoff: policy.InitialBackoff,
		MaxBackoff:     policy.MaxBackoff,
		BackoffFactor:  policy.Multiplier,
		RetryIf: func(err error) bool {
			return classify(err) == errors.KindTransient
		},
		OnRetry: policy.OnRetry,
	}, op)
}
