// Package local implements the on-device segmentation backend. It runs a
// configured model runner (typically a pyannote script) as a subprocess and
// reads speaker turns as JSON from its stdout.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	apperrors "github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/process"
	"github.com/ocobra/meeting-minutes-sub000/provider"
)

const (
	// ProviderName is the registered name for the subprocess provider.
	ProviderName = "local-subprocess"

	// exitInvalidInput is the runner's exit code for unreadable audio.
	exitInvalidInput = 2
)

// Config describes how to start the model runner.
type Config struct {
	Binary  string        `yaml:"binary" mapstructure:"binary"`
	Args    []string      `yaml:"args" mapstructure:"args"`
	Env     []string      `yaml:"env" mapstructure:"env"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Provider implements diarization.Segmenter with a subprocess.
type Provider struct {
	cfg Config
	run func(ctx context.Context, cmd process.Command) (*process.Result, error)
}

var _ diarization.Segmenter = (*Provider)(nil)

// NewProvider creates the subprocess segmenter.
func NewProvider(cfg Config) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	return &Provider{cfg: cfg, run: process.Run}
}

// Factory returns a provider.Factory for registry wiring.
func Factory() provider.Factory[diarization.Segmenter] {
	return func(cfg map[string]any) (diarization.Segmenter, error) {
		lc := Config{}
		if v, ok := cfg["binary"].(string); ok {
			lc.Binary = v
		}
		if v, ok := cfg["args"].([]string); ok {
			lc.Args = v
		}
		if v, ok := cfg["env"].([]string); ok {
			lc.Env = v
		}
		if v, ok := cfg["timeout"].(time.Duration); ok {
			lc.Timeout = v
		}
		if lc.Binary == "" {
			return nil, fmt.Errorf("local segmenter: binary is required")
		}
		return NewProvider(lc), nil
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the runner binary resolves.
func (p *Provider) IsAvailable(context.Context) bool {
	return process.Available(p.cfg.Binary)
}

// Segment runs the model over the requested window.
func (p *Provider) Segment(ctx context.Context, req diarization.SegmentRequest) ([]diarization.RawSegment, error) {
	args := append([]string{}, p.cfg.Args...)
	args = append(args, "--audio", req.AudioPath)
	if req.SampleRate > 0 {
		args = append(args, "--sample-rate", strconv.Itoa(req.SampleRate))
	}
	if req.Offset > 0 {
		args = append(args, "--offset", strconv.FormatFloat(req.Offset, 'f', 3, 64))
	}
	if req.Duration > 0 {
		args = append(args, "--duration", strconv.FormatFloat(req.Duration, 'f', 3, 64))
	}

	result, err := p.run(ctx, process.Command{
		Binary:  p.cfg.Binary,
		Args:    args,
		Env:     p.cfg.Env,
		Timeout: p.cfg.Timeout,
	})
	if err != nil {
		return nil, classify(ctx, err)
	}

	var out runnerOutput
	if err := json.Unmarshal(result.Stdout, &out); err != nil {
		return nil, apperrors.PermanentInput("model runner printed invalid JSON", err)
	}
	if out.Error != "" {
		return nil, apperrors.TransientBackend(ProviderName, errors.New(out.Error))
	}
	return out.Segments, nil
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, process.ErrNotFound) {
		return apperrors.PermanentInput("model runner binary not found", err)
	}
	var exitErr *process.ExitError
	if errors.As(err, &exitErr) && exitErr.Code == exitInvalidInput {
		return apperrors.PermanentInput("model runner rejected the audio", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout("local segmentation").WithCause(err)
	}
	return apperrors.TransientBackend(ProviderName, err)
}

type runnerOutput struct {
	Segments []diarization.RawSegment `json:"segments"`
	Error    string                   `json:"error,omitempty"`
}
