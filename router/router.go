// Package router decides, per capability, whether a call runs on the local
// or the external backend.
//
// LocalOnly never touches the external backend. ExternalOnly always picks
// it. PreferExternal probes the external backend with a short timeout and
// caches the answer; concurrent probes for the same key share one call,
// and a backend whose circuit breaker is open is skipped without probing.
package router

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/provider"
	"github.com/ocobra/meeting-minutes-sub000/resilience"
)

// Decision reasons.
const (
	ReasonPolicyLocal    = "privacy policy is local_only"
	ReasonPolicyExternal = "privacy policy is external_only"
	ReasonReachable      = "external backend reachable"
	ReasonUnreachable    = "external backend unavailable"
	ReasonNotConfigured  = "no external backend configured"
	ReasonCircuitOpen    = "external backend circuit open"
	ReasonCanceled       = "caller canceled before probing"
)

type cacheKey struct {
	capability diarization.Capability
	policy     diarization.PrivacyMode
}

// Router chooses backends. The zero value is not usable; call New.
type Router struct {
	cfg Config
	log *logger.Logger
	now func() time.Time

	mu       sync.RWMutex
	cache    map[cacheKey]diarization.RouterDecision
	external map[diarization.Capability]provider.Provider
	breakers map[diarization.Capability]*resilience.CircuitBreaker

	group singleflight.Group
}

// New creates a Router.
func New(cfg Config, log *logger.Logger) *Router {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Router{
		cfg:      cfg,
		log:      log.WithComponent("router"),
		now:      time.Now,
		cache:    make(map[cacheKey]diarization.RouterDecision),
		external: make(map[diarization.Capability]provider.Provider),
		breakers: make(map[diarization.Capability]*resilience.CircuitBreaker),
	}
}

// RegisterExternal sets the external provider probed for capability.
func (r *Router) RegisterExternal(capability diarization.Capability, p provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.external[capability] = p
	r.breakers[capability] = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        string(capability),
		MaxFailures: r.cfg.BreakerFailures,
		Timeout:     r.cfg.BreakerCooldown,
		OnStateChange: func(name string, from, to resilience.State) {
			r.log.Info("external backend circuit changed", logger.Fields(
				"capability", name, "from", from.String(), "to", to.String()))
		},
	})
	r.invalidateLocked()
}

// ChooseBackend returns the backend to use for capability under policy.
// Probe failures are never returned; they route to Local.
func (r *Router) ChooseBackend(ctx context.Context, capability diarization.Capability, policy diarization.PrivacyMode) diarization.RouterDecision {
	switch policy {
	case diarization.ExternalOnly:
		return r.decide(diarization.BackendExternal, ReasonPolicyExternal)
	case diarization.PreferExternal:
	default:
		return r.decide(diarization.BackendLocal, ReasonPolicyLocal)
	}

	r.mu.RLock()
	ext := r.external[capability]
	breaker := r.breakers[capability]
	r.mu.RUnlock()

	if ext == nil {
		return r.decide(diarization.BackendLocal, ReasonNotConfigured)
	}
	if breaker != nil && breaker.State() == resilience.StateOpen {
		return r.decide(diarization.BackendLocal, ReasonCircuitOpen)
	}

	key := cacheKey{capability: capability, policy: policy}
	if d, ok := r.cached(key); ok {
		return d
	}
	// A canceled caller says nothing about connectivity; answer it without
	// probing or caching.
	if ctx.Err() != nil {
		return r.decide(diarization.BackendLocal, ReasonCanceled)
	}

	// The shared probe outlives any one caller's cancellation and is
	// bounded by the probe timeout instead.
	probeCtx := context.WithoutCancel(ctx)
	v, _, _ := r.group.Do(string(capability)+"/"+string(policy), func() (interface{}, error) {
		if d, ok := r.cached(key); ok {
			return d, nil
		}
		d := r.decide(diarization.BackendLocal, ReasonUnreachable)
		if provider.Probe(probeCtx, ext, r.cfg.ProbeTimeout) {
			d = r.decide(diarization.BackendExternal, ReasonReachable)
		}
		r.log.Debug("probed external backend", logger.Fields(
			"capability", string(capability), logger.FieldBackend, string(d.Backend), logger.FieldReason, d.Reason))

		r.mu.Lock()
		r.cache[key] = d
		r.mu.Unlock()
		return d, nil
	})
	return v.(diarization.RouterDecision)
}

// RecordOutcome feeds the result of an external call into the capability's
// circuit breaker. A failure also drops cached decisions for it.
func (r *Router) RecordOutcome(capability diarization.Capability, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b := r.breakers[capability]; b != nil {
		b.Record(err)
	}
	if err != nil {
		for k := range r.cache {
			if k.capability == capability {
				delete(r.cache, k)
			}
		}
	}
}

// Invalidate drops every cached decision.
func (r *Router) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidateLocked()
}

func (r *Router) invalidateLocked() {
	clear(r.cache)
}

func (r *Router) cached(key cacheKey) (diarization.RouterDecision, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.cache[key]
	if !ok || r.now().Sub(d.DecidedAt) >= r.cfg.CacheTTL {
		return diarization.RouterDecision{}, false
	}
	return d, true
}

func (r *Router) decide(b diarization.Backend, reason string) diarization.RouterDecision {
	return diarization.RouterDecision{Backend: b, Reason: reason, DecidedAt: r.now()}
}
