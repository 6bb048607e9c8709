package component

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/observability"
)

type recorder struct {
	started []string
	stopped []string
}

func (rec *recorder) component(name string, startErr, stopErr error) *Func {
	return &Func{
		ComponentName: name,
		StartFunc: func(context.Context) error {
			if startErr != nil {
				return startErr
			}
			rec.started = append(rec.started, name)
			return nil
		},
		StopFunc: func(context.Context) error {
			rec.stopped = append(rec.stopped, name)
			return stopErr
		},
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(&Func{ComponentName: "store"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(&Func{ComponentName: "store"})
	if !errors.HasCode(err, errors.ErrCodeConflict) {
		t.Fatalf("duplicate register error = %v, want conflict", err)
	}
	if r.Get("store") == nil || r.Get("missing") != nil {
		t.Error("Get returned unexpected result")
	}
}

func TestStartStopOrder(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry(nil)
	for _, name := range []string{"store", "service", "http"} {
		if err := r.Register(rec.component(name, nil, nil)); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if want := []string{"store", "service", "http"}; !slices.Equal(rec.started, want) {
		t.Errorf("start order = %v, want %v", rec.started, want)
	}
	if want := []string{"http", "service", "store"}; !slices.Equal(rec.stopped, want) {
		t.Errorf("stop order = %v, want %v", rec.stopped, want)
	}
}

func TestStartAll_RollsBackOnFailure(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry(nil)
	_ = r.Register(rec.component("store", nil, nil))
	_ = r.Register(rec.component("service", nil, nil))
	_ = r.Register(rec.component("http", fmt.Errorf("address in use"), nil))

	err := r.StartAll(context.Background())
	if err == nil {
		t.Fatal("expected start error")
	}
	if want := []string{"service", "store"}; !slices.Equal(rec.stopped, want) {
		t.Errorf("rolled back = %v, want %v", rec.stopped, want)
	}

	// Nothing is left running, so StopAll has nothing to do.
	rec.stopped = nil
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if len(rec.stopped) != 0 {
		t.Errorf("stopped again: %v", rec.stopped)
	}
}

func TestStopAll_JoinsErrors(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry(nil)
	_ = r.Register(rec.component("a", nil, fmt.Errorf("a failed")))
	_ = r.Register(rec.component("b", nil, fmt.Errorf("b failed")))
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	err := r.StopAll(context.Background())
	if err == nil {
		t.Fatal("expected stop error")
	}
	if len(rec.stopped) != 2 {
		t.Errorf("stopped = %v, want both", rec.stopped)
	}
}

func TestHealthAll(t *testing.T) {
	r := NewRegistry(nil)
	_ = r.Register(&Func{ComponentName: "plain"})
	_ = r.Register(&Func{
		ComponentName: "backend",
		HealthFunc: func(context.Context) observability.Health {
			return observability.Health{Name: "backend", Status: observability.HealthStatusDown}
		},
	})

	got := r.HealthAll(context.Background())
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Status != observability.HealthStatusUp || got[1].Status != observability.HealthStatusDown {
		t.Errorf("health = %+v", got)
	}
}
