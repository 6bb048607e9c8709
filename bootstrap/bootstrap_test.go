package bootstrap

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/component"
	"github.com/ocobra/meeting-minutes-sub000/config"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/observability"
)

type testConfig struct {
	config.ServiceConfig `mapstructure:",squash"`
}

func newTestConfig() *testConfig {
	return &testConfig{ServiceConfig: config.ServiceConfig{Name: "diarizerd"}}
}

type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	e.log = append(e.log, s)
	e.mu.Unlock()
}

func (e *events) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.log)
}

func (e *events) component(name string) *component.Func {
	return &component.Func{
		ComponentName: name,
		StartFunc:     func(context.Context) error { e.add("start " + name); return nil },
		StopFunc:      func(context.Context) error { e.add("stop " + name); return nil },
	}
}

func TestNewApp_ValidatesConfig(t *testing.T) {
	if _, err := NewApp(&testConfig{}, WithLogger(logger.Nop())); err == nil {
		t.Fatal("expected validation error for missing name")
	}
	app, err := NewApp(newTestConfig(), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if app.Name != "diarizerd" || app.Cfg.Environment != "development" {
		t.Errorf("unexpected app: name=%s env=%s", app.Name, app.Cfg.Environment)
	}
}

func TestRun_LifecycleOrder(t *testing.T) {
	app, err := NewApp(newTestConfig(), WithLogger(logger.Nop()), WithGracefulTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	ev := &events{}
	_ = app.RegisterComponent(ev.component("service"))
	_ = app.RegisterComponent(ev.component("http"))

	ctx, cancel := context.WithCancel(context.Background())
	app.OnReady(func(context.Context) error {
		ev.add("ready")
		cancel()
		return nil
	})
	app.OnStop(func(context.Context) error { ev.add("onstop"); return nil })

	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"start service", "start http", "ready", "onstop", "stop http", "stop service"}
	if got := ev.list(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestRun_ReadyHookFailureStops(t *testing.T) {
	app, _ := NewApp(newTestConfig(), WithLogger(logger.Nop()))
	ev := &events{}
	_ = app.RegisterComponent(ev.component("service"))
	app.OnReady(func(context.Context) error { return fmt.Errorf("warmup failed") })

	if err := app.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := ev.list(); !slices.Contains(got, "stop service") {
		t.Errorf("component not stopped: %v", got)
	}
}

func TestReadyCheck(t *testing.T) {
	app, _ := NewApp(newTestConfig(), WithLogger(logger.Nop()))
	_ = app.RegisterComponent(&component.Func{
		ComponentName: "pyannote",
		HealthFunc: func(context.Context) observability.Health {
			return observability.Health{Name: "pyannote", Status: observability.HealthStatusDegraded}
		},
	})
	if err := app.ReadyCheck(context.Background()); err != nil {
		t.Errorf("degraded should pass: %v", err)
	}
	_ = app.RegisterComponent(&component.Func{
		ComponentName: "store",
		HealthFunc: func(context.Context) observability.Health {
			return observability.Health{Name: "store", Status: observability.HealthStatusDown, Message: "locked"}
		},
	})
	if err := app.ReadyCheck(context.Background()); err == nil {
		t.Error("expected down component to fail the check")
	}
}
