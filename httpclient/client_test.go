package httpclient

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ocobra/meeting-minutes-sub000/errors"
)

func newClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing base_url")
	}
	c := newClient(t, Config{BaseURL: "http://localhost:1/"})
	if c.Name() != "http" {
		t.Errorf("Name() = %q, want http", c.Name())
	}
	if c.config.BaseURL != "http://localhost:1" {
		t.Errorf("BaseURL = %q, trailing slash not trimmed", c.config.BaseURL)
	}
}

func TestClient_Do_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/echo" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		if got := r.Header.Get("X-Client"); got != "diarizerd" {
			t.Errorf("X-Client = %q", got)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	defer srv.Close()

	c := newClient(t, Config{BaseURL: srv.URL, Headers: map[string]string{"X-Client": "diarizerd"}})
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "v1/echo",
		Body:   map[string]string{"msg": "hello"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	var out map[string]string
	if err := resp.DecodeJSON(&out); err != nil {
		t.Fatal(err)
	}
	if out["echo"] != "hello" {
		t.Errorf("echo = %q", out["echo"])
	}
}

func TestClient_Do_Multipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("mode"); got != "batch" {
			t.Errorf("mode = %q", got)
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "a.wav" || string(data) != "RIFF" {
			t.Errorf("file = %q %q", hdr.Filename, data)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newClient(t, Config{BaseURL: srv.URL})
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/upload",
		Body: &MultipartBody{
			Fields: map[string]string{"mode": "batch"},
			Files:  []FileField{{FieldName: "audio", FileName: "a.wav", Reader: strings.NewReader("RIFF")}},
		},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestClient_Auth(t *testing.T) {
	tests := []struct {
		name   string
		auth   *AuthConfig
		header string
		want   string
	}{
		{"bearer", BearerAuth("tok"), "Authorization", "Bearer tok"},
		{"api key default header", APIKeyAuthHeader("k1", ""), "X-API-Key", "k1"},
		{"api key custom header", APIKeyAuthHeader("k2", "X-Token"), "X-Token", "k2"},
		{"none", BearerAuth(""), "Authorization", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get(tt.header); got != tt.want {
					t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
				}
			}))
			defer srv.Close()

			c := newClient(t, Config{BaseURL: srv.URL, Auth: tt.auth})
			if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}); err != nil {
				t.Fatalf("Do: %v", err)
			}
		})
	}
}

func TestClient_Do_RequestAuthOverrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer override" {
			t.Errorf("Authorization = %q", got)
		}
	}))
	defer srv.Close()

	c := newClient(t, Config{BaseURL: srv.URL, Auth: BearerAuth("default")})
	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/", Auth: BearerAuth("override")}); err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestClient_Do_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		kind   errors.Kind
	}{
		{http.StatusTooManyRequests, errors.KindTransient},
		{http.StatusBadGateway, errors.KindTransient},
		{http.StatusServiceUnavailable, errors.KindTransient},
		{http.StatusBadRequest, errors.KindPermanent},
		{http.StatusNotFound, errors.KindPermanent},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c := newClient(t, Config{Name: "sidecar", BaseURL: srv.URL})
			resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
			if err == nil {
				t.Fatal("expected error")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("response = %+v, want status %d", resp, tt.status)
			}
			if got := errors.Classify(err); got != tt.kind {
				t.Errorf("Classify = %v, want %v (%v)", got, tt.kind, err)
			}
		})
	}
}

func TestStatusError_TruncatesBody(t *testing.T) {
	body := strings.Repeat("x", maxErrorBody*2)
	err := StatusError("sidecar", http.StatusInternalServerError, []byte(body))
	if len(err.Error()) > maxErrorBody+512 {
		t.Errorf("error message not truncated: %d bytes", len(err.Error()))
	}
}

func TestClient_Do_TransportError(t *testing.T) {
	c := newClient(t, Config{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !errors.IsTransient(err) {
		t.Errorf("expected transient error, got %v", err)
	}
}

func TestClient_Do_CanceledContext(t *testing.T) {
	c := newClient(t, Config{BaseURL: "http://127.0.0.1:1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestClient_Probe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(t, Config{BaseURL: srv.URL})
	ok := func(status int) bool { return status == http.StatusOK }
	if !c.Probe(context.Background(), "/health", ok) {
		t.Error("expected /health to be up")
	}
	if c.Probe(context.Background(), "/other", ok) {
		t.Error("expected /other to be down")
	}

	down := newClient(t, Config{BaseURL: "http://127.0.0.1:1"})
	if down.Probe(context.Background(), "/health", ok) {
		t.Error("expected unreachable backend to be down")
	}
}
