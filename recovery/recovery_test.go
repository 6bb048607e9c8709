package recovery

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/logger"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond, Multiplier: 2}
}

func TestRetry_TransientExhausts(t *testing.T) {
	calls := 0
	var waits []time.Duration
	policy := fastPolicy()
	policy.OnRetry = func(_ int, _ error, wait time.Duration) { waits = append(waits, wait) }

	cause := errors.TransientBackend("pyannote", stderrors.New("503"))
	_, err := Retry(context.Background(), policy, nil, func(context.Context) (int, error) {
		calls++
		return 0, cause
	})
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if !stderrors.Is(err, cause) {
		t.Errorf("final error should wrap the last failure, got %v", err)
	}
	if len(waits) != 2 || waits[0] != time.Millisecond || waits[1] != 2*time.Millisecond {
		t.Errorf("unexpected backoff schedule %v", waits)
	}
}

func TestRetry_PermanentFailsImmediately(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(), nil, func(context.Context) (string, error) {
		calls++
		return "", errors.PermanentInput("corrupt audio", nil)
	})
	if calls != 1 {
		t.Errorf("permanent errors must not be retried, got %d calls", calls)
	}
	if errors.Classify(err) != errors.KindPermanent {
		t.Errorf("unexpected error %v", err)
	}
}

func TestRetry_SucceedsAfterTransient(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(), nil, func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.Timeout("segment")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" || calls != 2 {
		t.Errorf("got %q, %v after %d calls", got, err, calls)
	}
}

func TestRetry_CustomClassifier(t *testing.T) {
	calls := 0
	never := func(error) errors.Kind { return errors.KindPermanent }
	_, _ = Retry(context.Background(), fastPolicy(), never, func(context.Context) (int, error) {
		calls++
		return 0, errors.TransientBackend("x", nil)
	})
	if calls != 1 {
		t.Errorf("classifier should stop retries, got %d calls", calls)
	}
}

func TestRetry_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{MaxAttempts: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour, Multiplier: 2}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := Retry(ctx, policy, nil, func(context.Context) (int, error) {
		return 0, errors.TransientBackend("x", nil)
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("retry did not stop on cancellation")
	}
}

func TestPolicyDefaults(t *testing.T) {
	var p Policy
	p.ApplyDefaults()
	if p.MaxAttempts != 3 || p.InitialBackoff != time.Second || p.MaxBackoff != 4*time.Second || p.Multiplier != 2 {
		t.Errorf("unexpected defaults %+v", p)
	}
	if p.OnRetry != nil {
		t.Error("defaults should not install a retry hook")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestHandleFailure(t *testing.T) {
	transient := errors.TransientBackend("backend", nil)
	tests := []struct {
		name    string
		policy  diarization.PrivacyMode
		stage   Stage
		backend diarization.Backend
		err     error
		want    Action
	}{
		{"external segmentation under prefer", diarization.PreferExternal, StageSegmentation, diarization.BackendExternal, transient, UseLocal},
		{"external segmentation under external_only", diarization.ExternalOnly, StageSegmentation, diarization.BackendExternal, transient, Unattributed},
		{"local segmentation", diarization.PreferExternal, StageSegmentation, diarization.BackendLocal, transient, Unattributed},
		{"external identification under prefer", diarization.PreferExternal, StageIdentification, diarization.BackendExternal, transient, UseLocal},
		{"local identification", diarization.LocalOnly, StageIdentification, diarization.BackendLocal, transient, LabelsOnly},
		{"mapping", diarization.LocalOnly, StageMapping, "", stderrors.New("disk full"), LabelsOnly},
		{"alignment", diarization.LocalOnly, StageAlignment, "", errors.Alignment("inverted"), Abort},
		{"cancellation", diarization.PreferExternal, StageSegmentation, diarization.BackendExternal, context.Canceled, Abort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(tt.policy, logger.Nop())
			if got := s.HandleFailure(tt.stage, tt.backend, tt.err); got != tt.want {
				t.Errorf("HandleFailure = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSession_ForcesLocalOnce(t *testing.T) {
	s := NewSession(diarization.PreferExternal, logger.Nop())
	err := errors.TransientBackend("pyannote", nil)

	if got := s.HandleFailure(StageSegmentation, diarization.BackendExternal, err); got != UseLocal {
		t.Fatalf("first failure = %s, want use_local", got)
	}
	if !s.ForcedLocal(diarization.CapabilityDiarization) {
		t.Error("diarization should be pinned to local")
	}
	if s.ForcedLocal(diarization.CapabilityIdentification) {
		t.Error("identification should be unaffected")
	}
	if got := s.HandleFailure(StageSegmentation, diarization.BackendExternal, err); got != Unattributed {
		t.Errorf("second failure = %s, want unattributed", got)
	}

	fallbacks := s.Fallbacks()
	if len(fallbacks) != 2 || fallbacks[0].Reason == "" || fallbacks[0].Stage != StageSegmentation {
		t.Errorf("unexpected fallbacks %+v", fallbacks)
	}
}
