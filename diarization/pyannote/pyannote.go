// Package pyannote implements the external segmentation backend: an HTTP
// sidecar running pyannote that returns speaker turns with embeddings.
package pyannote

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	apperrors "github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/httpclient"
	"github.com/ocobra/meeting-minutes-sub000/provider"
)

const (
	// ProviderName is the registered name for the Pyannote provider.
	ProviderName = "pyannote"

	defaultPyannoteURL     = "http://localhost:8388"
	defaultPyannoteTimeout = 300 * time.Second
)

// Config holds configuration for the Pyannote segmentation provider.
type Config struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
}

// Provider implements diarization.Segmenter against the sidecar API.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

var _ diarization.Segmenter = (*Provider)(nil)

// NewProvider creates a new Pyannote segmentation provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultPyannoteURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultPyannoteTimeout
	}
	client, err := httpclient.New(httpclient.Config{
		Name:    ProviderName,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Auth:    httpclient.BearerAuth(cfg.APIKey),
	})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Factory returns a provider.Factory that creates Pyannote providers from
// a generic config map.
func Factory() provider.Factory[diarization.Segmenter] {
	return func(cfg map[string]any) (diarization.Segmenter, error) {
		pc := Config{}
		if v, ok := cfg["base_url"].(string); ok {
			pc.BaseURL = v
		}
		if v, ok := cfg["timeout"].(time.Duration); ok {
			pc.Timeout = v
		}
		if v, ok := cfg["api_key"].(string); ok {
			pc.APIKey = v
		}
		return NewProvider(pc)
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the sidecar answers its health endpoint.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.client.Probe(ctx, "/health", func(status int) bool { return status == http.StatusOK })
}

// Segment uploads the audio and returns the sidecar's speaker turns.
func (p *Provider) Segment(ctx context.Context, req diarization.SegmentRequest) ([]diarization.RawSegment, error) {
	audio, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, apperrors.PermanentInput("read audio file", err)
	}
	defer audio.Close()

	form := &httpclient.MultipartBody{
		Fields: map[string]string{"return_embeddings": "true"},
		Files:  []httpclient.FileField{{FieldName: "audio", FileName: filepath.Base(req.AudioPath), Reader: audio}},
	}
	if req.SampleRate > 0 {
		form.Fields["sample_rate"] = strconv.Itoa(req.SampleRate)
	}
	if req.Offset > 0 {
		form.Fields["offset"] = strconv.FormatFloat(req.Offset, 'f', 3, 64)
	}
	if req.Duration > 0 {
		form.Fields["duration"] = strconv.FormatFloat(req.Duration, 'f', 3, 64)
	}

	resp, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/diarize", Body: form})
	if err != nil {
		return nil, err
	}

	var result pyannoteResponse
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, apperrors.TransientBackend(ProviderName, err)
	}
	if result.Error != "" {
		return nil, apperrors.TransientBackend(ProviderName, fmt.Errorf("sidecar error: %s", result.Error))
	}
	return toRawSegments(result.Segments), nil
}

// --- internal Pyannote API types ---

type pyannoteResponse struct {
	Segments    []pyannoteSegment `json:"segments"`
	NumSpeakers int               `json:"num_speakers"`
	Error       string            `json:"error,omitempty"`
}

type pyannoteSegment struct {
	SpeakerID  string    `json:"speaker_id"`
	StartTime  float64   `json:"start_time"`
	EndTime    float64   `json:"end_time"`
	Confidence *float64  `json:"confidence,omitempty"`
	Embedding  []float64 `json:"embedding,omitempty"`
}

func toRawSegments(in []pyannoteSegment) []diarization.RawSegment {
	out := make([]diarization.RawSegment, len(in))
	for i, seg := range in {
		conf := 1.0
		if seg.Confidence != nil {
			conf = *seg.Confidence
		}
		out[i] = diarization.RawSegment{
			Speaker:    seg.SpeakerID,
			Start:      seg.StartTime,
			End:        seg.EndTime,
			Confidence: conf,
			Embedding:  seg.Embedding,
		}
	}
	return out
}
