// Package recovery decides how the pipeline survives failures.
//
// Backend calls go through Retry, which only retries transient errors.
// When a stage still fails, a Session picks the fallback: switch the
// capability to the local backend, keep the transcript unattributed, keep
// bare speaker labels, or abort. Every fallback is recorded with its reason
// so callers can report it.
package recovery

import (
	"sync"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/logger"
)

// Stage names a pipeline step.
type Stage string

const (
	StageSegmentation   Stage = "segmentation"
	StageIdentification Stage = "identification"
	StageAlignment      Stage = "alignment"
	StageMapping        Stage = "mapping"
)

// Capability returns the backend capability a stage depends on, if any.
func (s Stage) Capability() (diarization.Capability, bool) {
	switch s {
	case StageSegmentation:
		return diarization.CapabilityDiarization, true
	case StageIdentification:
		return diarization.CapabilityIdentification, true
	}
	return "", false
}

// Action is what the pipeline does after a stage failed.
type Action string

const (
	// UseLocal retries the stage on the local backend for the rest of the
	// session.
	UseLocal Action = "use_local"
	// Unattributed keeps the transcript without speaker labels.
	Unattributed Action = "unattributed"
	// LabelsOnly keeps speaker labels without names.
	LabelsOnly Action = "labels_only"
	// Abort stops the pipeline and reports the error.
	Abort Action = "abort"
)

// Fallback records one degradation taken during a session.
type Fallback struct {
	Stage   Stage               `json:"stage"`
	Action  Action              `json:"action"`
	Backend diarization.Backend `json:"backend,omitempty"`
	Reason  string              `json:"reason"`
	At      time.Time           `json:"at"`
}

// Session tracks fallbacks for one pipeline run.
type Session struct {
	policy diarization.PrivacyMode
	log    *logger.Logger
	now    func() time.Time

	mu          sync.Mutex
	forcedLocal map[diarization.Capability]bool
	fallbacks   []Fallback
}

// NewSession starts a session under the given privacy policy.
func NewSession(policy diarization.PrivacyMode, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		policy:      policy,
		log:         log.WithComponent("recovery"),
		now:         time.Now,
		forcedLocal: make(map[diarization.Capability]bool),
	}
}

// Policy returns the session's privacy policy.
func (s *Session) Policy() diarization.PrivacyMode { return s.policy }

// ForcedLocal reports whether capability has been pinned to Local.
func (s *Session) ForcedLocal(capability diarization.Capability) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forcedLocal[capability]
}

// HandleFailure decides the fallback for err raised by stage on backend,
// records it, and pins the capability to Local when that is the answer.
func (s *Session) HandleFailure(stage Stage, backend diarization.Backend, err error) Action {
	action := s.decide(stage, backend, err)

	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}

	s.mu.Lock()
	if action == UseLocal {
		if c, ok := stage.Capability(); ok {
			s.forcedLocal[c] = true
		}
	}
	s.fallbacks = append(s.fallbacks, Fallback{Stage: stage, Action: action, Backend: backend, Reason: reason, At: s.now()})
	s.mu.Unlock()

	s.log.Warn("pipeline stage failed", logger.Fields(
		logger.FieldStage, string(stage),
		logger.FieldBackend, string(backend),
		"action", string(action),
		logger.FieldReason, reason,
	))
	return action
}

func (s *Session) decide(stage Stage, backend diarization.Backend, err error) Action {
	switch errors.Classify(err) {
	case errors.KindCanceled, errors.KindAlignment:
		return Abort
	}

	switch stage {
	case StageSegmentation, StageIdentification:
		c, _ := stage.Capability()
		if backend == diarization.BackendExternal && s.policy == diarization.PreferExternal && !s.ForcedLocal(c) {
			return UseLocal
		}
		if stage == StageSegmentation {
			return Unattributed
		}
		return LabelsOnly
	case StageMapping:
		return LabelsOnly
	default:
		return Abort
	}
}

// Fallbacks returns the fallbacks taken so far, oldest first.
func (s *Session) Fallbacks() []Fallback {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Fallback, len(s.fallbacks))
	copy(out, s.fallbacks)
	return out
}
