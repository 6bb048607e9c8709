package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/recovery"
	"github.com/ocobra/meeting-minutes-sub000/service"
	"github.com/ocobra/meeting-minutes-sub000/store/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSegmenter struct{}

func (fakeSegmenter) Name() string                     { return "local" }
func (fakeSegmenter) IsAvailable(context.Context) bool { return true }
func (fakeSegmenter) Segment(context.Context, diarization.SegmentRequest) ([]diarization.RawSegment, error) {
	return []diarization.RawSegment{
		{Speaker: "SPEAKER_00", Start: 0, End: 2, Confidence: 0.9},
		{Speaker: "SPEAKER_01", Start: 2, End: 5, Confidence: 0.9},
	}, nil
}

type envelopeMeta struct {
	Total int `json:"total"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  *envelopeMeta   `json:"meta"`
	Error *envelopeError  `json:"error"`
}

type testAPI struct {
	t      *testing.T
	svc    *service.Service
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := service.Config{
		Store:    service.StoreConfig{Driver: service.StoreMemory},
		Recovery: recovery.Policy{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 2},
		Defaults: service.Settings{Mode: diarization.ModeBatch},
	}
	svc, err := service.New(cfg, service.Dependencies{
		Store:      memory.New(),
		Segmenters: diarization.Backends[diarization.Segmenter]{Local: fakeSegmenter{}},
		Logger:     logger.Nop(),
	})
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Close(ctx)
	})

	r := gin.New()
	New(svc, logger.Nop()).Register(r.Group("/api/v1"))
	return &testAPI{t: t, svc: svc, router: r}
}

func (a *testAPI) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w, env
}

func startBody() map[string]any {
	return map[string]any{
		"audio": map[string]any{"path": "m1.wav"},
		"words": []map[string]any{
			{"text": "Hi,", "start_time": 0.1, "end_time": 0.4},
			{"text": "I'm", "start_time": 0.5, "end_time": 0.7},
			{"text": "Jane.", "start_time": 0.8, "end_time": 1.2},
			{"text": "Welcome", "start_time": 2.1, "end_time": 2.6},
			{"text": "everyone.", "start_time": 2.7, "end_time": 3.4},
		},
	}
}

// runToCompletion starts a job over HTTP and waits for it.
func (a *testAPI) runToCompletion(meetingID string) service.JobInfo {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/v1/meetings/"+meetingID+"/diarization", startBody())
	if w.Code != http.StatusAccepted {
		a.t.Fatalf("start = %d: %s", w.Code, w.Body.String())
	}
	var info service.JobInfo
	if err := json.Unmarshal(env.Data, &info); err != nil {
		a.t.Fatal(err)
	}
	if w.Header().Get("Location") != "/api/v1/jobs/"+info.ID {
		a.t.Errorf("Location = %q", w.Header().Get("Location"))
	}

	job, err := a.svc.Job(context.Background(), info.ID)
	if err != nil {
		a.t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := job.Wait(ctx); err != nil {
		a.t.Fatalf("job failed: %v", err)
	}

	w, env = a.do(http.MethodGet, "/api/v1/jobs/"+info.ID, nil)
	if w.Code != http.StatusOK {
		a.t.Fatalf("get job = %d", w.Code)
	}
	if err := json.Unmarshal(env.Data, &info); err != nil {
		a.t.Fatal(err)
	}
	return info
}

func TestDiarizationFlow(t *testing.T) {
	a := newTestAPI(t)
	info := a.runToCompletion("m1")
	if info.Status != service.JobSucceeded {
		t.Fatalf("job status = %s (%s)", info.Status, info.Error)
	}

	w, env := a.do(http.MethodGet, "/api/v1/meetings/m1/segments", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("segments = %d", w.Code)
	}
	if env.Meta == nil || env.Meta.Total != 2 {
		t.Errorf("segments meta = %+v", env.Meta)
	}

	w, _ = a.do(http.MethodPut, "/api/v1/meetings/m1/speakers/SPEAKER_00", map[string]string{"name": "Jane"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("rename = %d: %s", w.Code, w.Body.String())
	}

	w, env = a.do(http.MethodGet, "/api/v1/meetings/m1/statistics", nil)
	if w.Code != http.StatusOK || !strings.Contains(string(env.Data), `"Jane"`) {
		t.Errorf("statistics = %d %s", w.Code, env.Data)
	}

	w, _ = a.do(http.MethodGet, "/api/v1/meetings/m1/transcript/export?format=md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "m1.md") {
		t.Errorf("disposition = %q", w.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(w.Body.String(), "Jane") {
		t.Errorf("export body missing name: %s", w.Body.String())
	}

	w, env = a.do(http.MethodGet, "/api/v1/meetings/m1/jobs", nil)
	if w.Code != http.StatusOK || env.Meta == nil || env.Meta.Total != 1 {
		t.Errorf("jobs = %d %+v", w.Code, env.Meta)
	}
}

func TestMergeSpeakers(t *testing.T) {
	a := newTestAPI(t)
	a.runToCompletion("m1")

	w, env := a.do(http.MethodPost, "/api/v1/meetings/m1/speakers/merge", map[string]string{"source": "SPEAKER_01", "target": "SPEAKER_01"})
	if w.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "INVALID_INPUT" {
		t.Fatalf("self merge = %d %+v", w.Code, env.Error)
	}

	w, _ = a.do(http.MethodPost, "/api/v1/meetings/m1/speakers/merge", map[string]string{"source": "SPEAKER_01", "target": "SPEAKER_00"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("merge = %d: %s", w.Code, w.Body.String())
	}
	w, env = a.do(http.MethodGet, "/api/v1/meetings/m1/speakers", nil)
	if w.Code != http.StatusOK || env.Meta == nil || env.Meta.Total != 1 {
		t.Errorf("speakers after merge = %d %+v", w.Code, env.Meta)
	}
}

func TestErrors(t *testing.T) {
	a := newTestAPI(t)
	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"unknown meeting", http.MethodGet, "/api/v1/meetings/nope/transcript", nil, http.StatusNotFound, "NOT_FOUND"},
		{"unknown job", http.MethodGet, "/api/v1/jobs/nope", nil, http.StatusNotFound, "NOT_FOUND"},
		{"no words", http.MethodPost, "/api/v1/meetings/m1/diarization", map[string]any{"audio": map[string]any{"path": "a.wav"}}, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad policy", http.MethodPost, "/api/v1/meetings/m1/diarization", func() map[string]any {
			b := startBody()
			b["policy"] = "cloud_everything"
			return b
		}(), http.StatusBadRequest, "INVALID_INPUT"},
		{"bad export format", http.MethodGet, "/api/v1/meetings/m1/transcript/export?format=pdf", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"empty name", http.MethodPut, "/api/v1/meetings/m1/speakers/SPEAKER_00", map[string]string{"name": ""}, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad profile id", http.MethodDelete, "/api/v1/voice-profiles/not-a-uuid", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad threshold", http.MethodPut, "/api/v1/settings", map[string]any{"confidence_threshold": 1.5}, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := a.do(tt.method, tt.path, tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if env.Error == nil || env.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want %s", env.Error, tt.wantErr)
			}
		})
	}
}

func TestSettings(t *testing.T) {
	a := newTestAPI(t)
	w, env := a.do(http.MethodPut, "/api/v1/settings", map[string]any{"policy": "prefer_external"})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d: %s", w.Code, w.Body.String())
	}
	var got service.Settings
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Policy != diarization.PreferExternal {
		t.Errorf("policy = %s", got.Policy)
	}
	if got.Mode != diarization.ModeBatch {
		t.Errorf("omitted mode changed to %s", got.Mode)
	}
}

func TestVoiceProfiles(t *testing.T) {
	a := newTestAPI(t)
	embedding := []float64{0.1, -0.4, 0.8, 0.3}

	w, env := a.do(http.MethodPost, "/api/v1/voice-profiles", map[string]any{"name": "Jane", "embedding": embedding})
	if w.Code != http.StatusForbidden || env.Error == nil || env.Error.Code != "CONSENT_REQUIRED" || env.Error.Kind != "consent" {
		t.Fatalf("without consent = %d %+v", w.Code, env.Error)
	}

	w, env = a.do(http.MethodPost, "/api/v1/voice-profiles", map[string]any{
		"name": "Jane", "consent": true, "embedding": embedding, "audio_duration_seconds": 12.5, "sample_count": 3,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("enroll = %d: %s", w.Code, w.Body.String())
	}
	var profile diarization.VoiceProfile
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		t.Fatal(err)
	}

	w, env = a.do(http.MethodGet, "/api/v1/voice-profiles/"+profile.ID+"/sessions", nil)
	if w.Code != http.StatusOK || env.Meta == nil || env.Meta.Total != 1 {
		t.Errorf("sessions = %d %+v", w.Code, env.Meta)
	}

	w, _ = a.do(http.MethodDelete, "/api/v1/voice-profiles/"+profile.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d: %s", w.Code, w.Body.String())
	}
	w, env = a.do(http.MethodGet, "/api/v1/voice-profiles", nil)
	if w.Code != http.StatusOK || env.Meta == nil || env.Meta.Total != 0 {
		t.Errorf("list after delete = %d %+v", w.Code, env.Meta)
	}

	w, env = a.do(http.MethodPost, "/api/v1/voice-profiles/purge", nil)
	if w.Code != http.StatusOK || !strings.Contains(string(env.Data), `"purged":0`) {
		t.Errorf("purge = %d %s", w.Code, env.Data)
	}
}

func TestDeleteMeeting(t *testing.T) {
	a := newTestAPI(t)
	a.runToCompletion("m1")

	w, _ := a.do(http.MethodDelete, "/api/v1/meetings/m1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d: %s", w.Code, w.Body.String())
	}
	w, _ = a.do(http.MethodGet, "/api/v1/meetings/m1/transcript", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("transcript after delete = %d", w.Code)
	}
}
