package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/observability"
)

func testConfig() Config {
	cfg := Config{Host: "127.0.0.1", Port: 0}
	cfg.ApplyDefaults()
	cfg.Port = 0
	return cfg
}

func upChecker(context.Context) *observability.ServiceHealth {
	return observability.NewServiceHealth("diarizerd", "test")
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8080 || cfg.WriteTimeout != 60*time.Second || cfg.MaxBodyBytes != 32<<20 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected port error")
	}
}

func TestServer_DefaultEndpointsAndRoutes(t *testing.T) {
	s := New(testConfig(), logger.Nop())
	s.GinEngine().GET("/api/v1/jobs/:id", func(c *gin.Context) { RespondOK(c, c.Param("id")) })
	s.ApplyDefaults("diarizerd", upChecker)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health code = %d", w.Code)
	}

	routes := s.Routes()
	if len(routes) == 0 || routes[0].Path != "/api/v1/jobs/:id" {
		t.Errorf("API routes should sort first: %+v", routes)
	}
}

func TestServer_StartStop(t *testing.T) {
	s := New(testConfig(), logger.Nop())
	s.ApplyDefaults("diarizerd", upChecker)
	comp := NewComponent(s)

	if h := comp.Health(context.Background()); h.Status != observability.HealthStatusDown {
		t.Errorf("health before start = %s", h.Status)
	}
	if err := comp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Get(fmt.Sprintf("http://%s/livez", s.Addr()))
	if err != nil {
		t.Fatalf("GET /livez: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("livez = %d", resp.StatusCode)
	}
	if h := comp.Health(context.Background()); h.Status != observability.HealthStatusUp {
		t.Errorf("health after start = %s", h.Status)
	}
	if err := comp.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  errors.ErrorCode
	}{
		{"not found", errors.NotFound("meeting", "m1"), http.StatusNotFound, errors.ErrCodeNotFound},
		{"conflict", errors.Conflict("busy"), http.StatusConflict, errors.ErrCodeConflict},
		{"wrapped", fmt.Errorf("wrap: %w", errors.InvalidInput("name", "empty")), http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError, errors.ErrCodeInternal},
	}
	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			RespondWithError(c, tt.err)
			if w.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", w.Code, tt.wantCode)
			}
			var body errors.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Error.Code != tt.wantErr {
				t.Errorf("error code = %s, want %s", body.Error.Code, tt.wantErr)
			}
		})
	}
}

func TestRespondList_EmptyIsArray(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondList[string](c, nil)
	if got := w.Body.String(); got != `{"data":[],"meta":{"total":0}}` {
		t.Errorf("body = %s", got)
	}
}
