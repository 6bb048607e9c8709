// Package engine runs the diarization pipeline for one meeting: pick a
// processing mode, segment the audio, align speakers with transcript words,
// extract names, resolve identities and persist the result.
//
// Every backend call is routed, retried and, when it still fails, degraded
// through a recovery session. A meeting always ends with its full
// transcript stored, attributed as far as the backends allowed.
package engine

import (
	"context"
	"math"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ocobra/meeting-minutes-sub000/alignment"
	"github.com/ocobra/meeting-minutes-sub000/confidence"
	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/identification"
	"github.com/ocobra/meeting-minutes-sub000/identity"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/observability"
	"github.com/ocobra/meeting-minutes-sub000/recovery"
	"github.com/ocobra/meeting-minutes-sub000/resource"
	"github.com/ocobra/meeting-minutes-sub000/router"
	"github.com/ocobra/meeting-minutes-sub000/store"
	"github.com/ocobra/meeting-minutes-sub000/validation"
	"github.com/ocobra/meeting-minutes-sub000/voiceprint"
)

// ReasonForcedLocal is the routing reason after an external failure in the
// same run.
const ReasonForcedLocal = "external backend failed earlier in this run"

// AudioRef points at the recording to segment.
type AudioRef struct {
	Path       string  `json:"path"`
	SampleRate int     `json:"sample_rate,omitempty"`
	Duration   float64 `json:"duration_seconds,omitempty"`
}

// Request is one pipeline run.
type Request struct {
	MeetingID string
	Audio     AudioRef
	Words     []diarization.TranscriptWord
	Policy    diarization.PrivacyMode
	Mode      diarization.ProcessingMode
	// Scorer overrides the mapper's candidate scorer for this run.
	Scorer *confidence.Scorer
}

// Result describes a finished run.
type Result struct {
	MeetingID       string                                                `json:"meeting_id"`
	Mode            diarization.ProcessingMode                            `json:"mode"`
	Window          time.Duration                                         `json:"window"`
	Decisions       map[diarization.Capability]diarization.RouterDecision `json:"decisions"`
	SpeakerSegments []diarization.SpeakerSegment                          `json:"speaker_segments"`
	Segments        []diarization.SynchronizedSegment                     `json:"segments"`
	Candidates      []diarization.IdentificationCandidate                 `json:"candidates"`
	Mappings        []diarization.SpeakerMapping                          `json:"mappings"`
	Fallbacks       []recovery.Fallback                                   `json:"fallbacks"`
}

// Degraded reports whether any fallback was taken.
func (r *Result) Degraded() bool { return len(r.Fallbacks) > 0 }

// Dependencies are the collaborators of an Engine. Monitor and Metrics are
// optional; either backend of a capability may be nil.
type Dependencies struct {
	Segmenters   diarization.Backends[diarization.Segmenter]
	Identifiers  diarization.Backends[diarization.Identifier]
	Router       *router.Router
	Synchronizer *alignment.Synchronizer
	Mapper       *identity.Mapper
	Monitor      *resource.Monitor
	Store        store.Store
	Metrics      *observability.Metrics
	Logger       *logger.Logger
}

// Engine runs pipelines. It is safe for concurrent use; runs share only
// the store and the router.
type Engine struct {
	cfg    Config
	policy recovery.Policy
	deps   Dependencies
	log    *logger.Logger
}

// New creates an Engine.
func New(cfg Config, policy recovery.Policy, deps Dependencies) (*Engine, error) {
	cfg.ApplyDefaults()
	policy.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	v := validation.New()
	v.Custom(deps.Router != nil, "engine.router", "is required")
	v.Custom(deps.Synchronizer != nil, "engine.synchronizer", "is required")
	v.Custom(deps.Mapper != nil, "engine.mapper", "is required")
	v.Custom(deps.Store != nil, "engine.store", "is required")
	if err := v.Err(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &Engine{cfg: cfg, policy: policy, deps: deps, log: deps.Logger.WithComponent("engine")}, nil
}

// run carries the state of one pipeline execution.
type run struct {
	req     Request
	session *recovery.Session
	log     *logger.Logger
	result  *Result
}

// Run executes the pipeline. It fails only on invalid input, alignment
// errors, storage errors and cancellation; backend failures degrade the
// result and are listed in Result.Fallbacks.
func (e *Engine) Run(ctx context.Context, req Request) (res *Result, err error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Policy == "" {
		req.Policy = diarization.LocalOnly
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanPipeline)
	span.SetAttributes(
		attribute.String(observability.AttrMeetingID, req.MeetingID),
		attribute.String("policy", string(req.Policy)),
	)
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	log := e.log.WithFields(logger.Fields(logger.FieldMeetingID, req.MeetingID))
	r := &run{
		req:     req,
		session: recovery.NewSession(req.Policy, log),
		log:     log,
		result: &Result{
			MeetingID: req.MeetingID,
			Decisions: make(map[diarization.Capability]diarization.RouterDecision),
		},
	}

	r.result.Mode, r.result.Window = e.resolveMode(ctx, req)
	span.SetAttributes(attribute.String(observability.AttrMode, string(r.result.Mode)))

	if err := e.segmentStage(ctx, r); err != nil {
		return nil, err
	}
	if err := e.alignStage(ctx, r); err != nil {
		return nil, err
	}
	e.identifyStage(ctx, r)
	if err := e.mapStage(ctx, r); err != nil {
		return nil, err
	}

	r.result.Fallbacks = r.session.Fallbacks()
	log.Info("diarization finished", logger.Fields(
		"mode", string(r.result.Mode),
		"speakers", len(r.result.Mappings),
		"segments", len(r.result.Segments),
		"fallbacks", len(r.result.Fallbacks),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return r.result, nil
}

func validateRequest(req Request) error {
	v := validation.New().Required("meeting_id", req.MeetingID)
	if req.Policy != "" {
		v.Custom(req.Policy.Valid(), "policy", "unknown privacy mode")
	}
	if req.Mode != "" {
		v.Custom(req.Mode.Valid(), "mode", "unknown processing mode")
	}
	v.Custom(req.Audio.Duration >= 0 && !math.IsNaN(req.Audio.Duration), "audio.duration_seconds", "must be non-negative")
	return v.Err()
}

// resolveMode picks batch or chunked processing and the chunk window.
func (e *Engine) resolveMode(ctx context.Context, req Request) (diarization.ProcessingMode, time.Duration) {
	switch req.Mode {
	case diarization.ModeBatch:
		return diarization.ModeBatch, 0
	case diarization.ModeChunked:
		return diarization.ModeChunked, e.cfg.ChunkWindow
	}
	if e.deps.Monitor == nil {
		return diarization.ModeBatch, 0
	}
	total := audioSeconds(req)
	rec := e.deps.Monitor.RecommendMode(ctx, time.Duration(total*float64(time.Second)))
	return rec.Mode, rec.Window
}

// audioSeconds is the recording length, falling back to the last word.
func audioSeconds(req Request) float64 {
	total := req.Audio.Duration
	for _, w := range req.Words {
		total = math.Max(total, w.EndTime)
	}
	return total
}

// route asks the router for a backend unless this run already pinned the
// capability to Local.
func (e *Engine) route(ctx context.Context, r *run, capability diarization.Capability) diarization.RouterDecision {
	var d diarization.RouterDecision
	if r.session.ForcedLocal(capability) {
		d = diarization.RouterDecision{Backend: diarization.BackendLocal, Reason: ReasonForcedLocal, DecidedAt: time.Now()}
	} else {
		d = e.deps.Router.ChooseBackend(ctx, capability, r.req.Policy)
	}
	r.result.Decisions[capability] = d
	e.deps.Metrics.RecordRouterDecision(ctx, string(capability), string(d.Backend), d.Reason)
	r.log.Debug("backend chosen", logger.Fields(
		"capability", string(capability), logger.FieldBackend, string(d.Backend), logger.FieldReason, d.Reason))
	return d
}

// fail hands a stage failure to the recovery session.
func (e *Engine) fail(ctx context.Context, r *run, stage recovery.Stage, backend diarization.Backend, err error) recovery.Action {
	action := r.session.HandleFailure(stage, backend, err)
	e.deps.Metrics.RecordFallback(ctx, string(stage), string(action))
	return action
}

// retryPolicy returns the retry policy with hooks for this stage.
func (e *Engine) retryPolicy(ctx context.Context, r *run, stage recovery.Stage, backend diarization.Backend) recovery.Policy {
	p := e.policy
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		e.deps.Metrics.RecordRetry(ctx, string(stage), string(backend))
		r.log.Warn("backend call failed, retrying", logger.Fields(
			logger.FieldStage, string(stage),
			logger.FieldBackend, string(backend),
			"attempt", attempt,
			"wait_ms", wait.Milliseconds(),
			logger.FieldError, err.Error(),
		))
	}
	return p
}

func canceled(op string, err error) error {
	if errors.Classify(err) == errors.KindCanceled && !errors.HasCode(err, errors.ErrCodeCanceled) {
		return errors.Canceled(op, err)
	}
	return err
}

// segmentStage fills r.result.SpeakerSegments, falling back to Local and
// then to an unattributed transcript.
func (e *Engine) segmentStage(ctx context.Context, r *run) error {
	capability := diarization.CapabilityDiarization
	for {
		d := e.route(ctx, r, capability)
		segments, err := e.segmentOn(ctx, r, d.Backend)
		if err == nil {
			r.result.SpeakerSegments = segments
			break
		}
		switch e.fail(ctx, r, recovery.StageSegmentation, d.Backend, err) {
		case recovery.UseLocal:
			continue
		case recovery.Unattributed:
			r.result.SpeakerSegments = []diarization.SpeakerSegment{}
		default:
			return canceled("segmentation", err)
		}
		break
	}

	if err := e.deps.Store.SaveSpeakerSegments(ctx, r.req.MeetingID, r.result.SpeakerSegments); err != nil {
		return err
	}
	return nil
}

// segmentOn runs segmentation on one backend, in one pass or per window.
func (e *Engine) segmentOn(ctx context.Context, r *run, backend diarization.Backend) (segs []diarization.SpeakerSegment, err error) {
	ctx, stage := observability.StartStage(ctx, e.deps.Metrics, r.req.MeetingID, string(recovery.StageSegmentation), string(backend))
	defer func() { stage.End(err) }()

	seg := e.deps.Segmenters.For(backend)
	if seg == nil {
		return nil, errors.PermanentInput("no "+string(backend)+" segmenter configured", nil)
	}

	base := diarization.SegmentRequest{AudioPath: r.req.Audio.Path, SampleRate: r.req.Audio.SampleRate}
	if base.SampleRate == 0 {
		base.SampleRate = e.cfg.SampleRate
	}

	var raw []diarization.RawSegment
	chunks := windows(audioSeconds(r.req), r.result.Window.Seconds())
	if r.result.Mode != diarization.ModeChunked || len(chunks) == 0 {
		raw, err = e.callSegmenter(ctx, r, seg, backend, base)
	} else {
		tracker := newLabelTracker(e.cfg.ContinuityThreshold)
		for _, w := range chunks {
			req := base
			req.Offset, req.Duration = w.offset, w.duration
			part, cerr := e.callSegmenter(ctx, r, seg, backend, req)
			if cerr != nil {
				err = cerr
				break
			}
			raw = append(raw, tracker.relabelChunk(part, w.offset)...)
		}
	}
	if backend == diarization.BackendExternal {
		e.deps.Router.RecordOutcome(diarization.CapabilityDiarization, err)
	}
	if err != nil {
		return nil, err
	}
	return e.toSpeakerSegments(r, raw), nil
}

func (e *Engine) callSegmenter(ctx context.Context, r *run, seg diarization.Segmenter, backend diarization.Backend, req diarization.SegmentRequest) ([]diarization.RawSegment, error) {
	return recovery.Retry(ctx, e.retryPolicy(ctx, r, recovery.StageSegmentation, backend), nil,
		func(ctx context.Context) ([]diarization.RawSegment, error) {
			ctx, cancel := context.WithTimeout(ctx, e.cfg.InferenceTimeout)
			defer cancel()
			return seg.Segment(ctx, req)
		})
}

// toSpeakerSegments hashes embeddings and drops malformed backend output.
func (e *Engine) toSpeakerSegments(r *run, raw []diarization.RawSegment) []diarization.SpeakerSegment {
	out := make([]diarization.SpeakerSegment, 0, len(raw))
	dropped := 0
	for _, s := range raw {
		if s.Speaker == "" || !finite(s.Start) || !finite(s.End) || s.Start < 0 || s.End <= s.Start {
			dropped++
			continue
		}
		conf := s.Confidence
		if !finite(conf) {
			conf = 0
		}
		out = append(out, diarization.SpeakerSegment{
			SpeakerLabel:  s.Speaker,
			StartTime:     s.Start,
			EndTime:       s.End,
			Confidence:    math.Max(0, math.Min(1, conf)),
			EmbeddingHash: voiceprint.Hash(s.Embedding),
		})
	}
	if dropped > 0 {
		r.log.Warn("dropped malformed speaker segments", logger.Fields("dropped", dropped, "kept", len(out)))
	}
	slices.SortStableFunc(out, func(a, b diarization.SpeakerSegment) int {
		switch {
		case a.StartTime < b.StartTime:
			return -1
		case a.StartTime > b.StartTime:
			return 1
		}
		return 0
	})
	return out
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// alignStage aligns words with speaker segments and stores the transcript.
func (e *Engine) alignStage(ctx context.Context, r *run) (err error) {
	ctx, stage := observability.StartStage(ctx, e.deps.Metrics, r.req.MeetingID, string(recovery.StageAlignment), "")
	defer func() { stage.End(err) }()

	segments, err := e.deps.Synchronizer.Synchronize(r.req.Words, r.result.SpeakerSegments)
	if err != nil {
		e.fail(ctx, r, recovery.StageAlignment, "", err)
		return err
	}
	r.result.Segments = segments
	return e.deps.Store.SaveSynchronizedSegments(ctx, r.req.MeetingID, segments)
}

// identifyStage collects name candidates. Failures leave the labels
// unnamed.
func (e *Engine) identifyStage(ctx context.Context, r *run) {
	r.result.Candidates = []diarization.IdentificationCandidate{}
	labels := distinctLabels(r.result.SpeakerSegments)
	if len(labels) == 0 || len(r.result.Segments) == 0 {
		return
	}
	if e.deps.Identifiers.Local == nil && e.deps.Identifiers.External == nil {
		r.log.Debug("no identifier configured, keeping speaker labels")
		return
	}

	transcript := identification.BuildTranscript(r.result.Segments)
	for {
		d := e.route(ctx, r, diarization.CapabilityIdentification)
		candidates, err := e.identifyOn(ctx, r, d.Backend, transcript, labels)
		if err == nil {
			r.result.Candidates = candidates
			return
		}
		if e.fail(ctx, r, recovery.StageIdentification, d.Backend, err) != recovery.UseLocal {
			return
		}
	}
}

func (e *Engine) identifyOn(ctx context.Context, r *run, backend diarization.Backend, transcript string, labels []string) (out []diarization.IdentificationCandidate, err error) {
	ctx, stage := observability.StartStage(ctx, e.deps.Metrics, r.req.MeetingID, string(recovery.StageIdentification), string(backend))
	defer func() { stage.End(err) }()

	id := e.deps.Identifiers.For(backend)
	if id == nil {
		return nil, errors.PermanentInput("no "+string(backend)+" identifier configured", nil)
	}
	out, err = recovery.Retry(ctx, e.retryPolicy(ctx, r, recovery.StageIdentification, backend), nil,
		func(ctx context.Context) ([]diarization.IdentificationCandidate, error) {
			ctx, cancel := context.WithTimeout(ctx, e.cfg.InferenceTimeout)
			defer cancel()
			return id.Identify(ctx, transcript, labels)
		})
	if backend == diarization.BackendExternal {
		e.deps.Router.RecordOutcome(diarization.CapabilityIdentification, err)
	}
	return out, err
}

// mapStage resolves labels to names. A failure keeps bare labels; only
// cancellation aborts.
func (e *Engine) mapStage(ctx context.Context, r *run) (err error) {
	r.result.Mappings = []diarization.SpeakerMapping{}
	if len(r.result.SpeakerSegments) == 0 {
		return nil
	}

	ctx, stage := observability.StartStage(ctx, e.deps.Metrics, r.req.MeetingID, string(recovery.StageMapping), "")
	defer func() { stage.End(err) }()

	mapper := e.deps.Mapper
	if r.req.Scorer != nil {
		mapper = mapper.WithScorer(r.req.Scorer)
	}
	mappings, merr := mapper.MapSpeakers(ctx, r.req.MeetingID, r.result.SpeakerSegments, r.result.Candidates)
	if merr != nil {
		if e.fail(ctx, r, recovery.StageMapping, "", merr) == recovery.Abort {
			return canceled("speaker mapping", merr)
		}
		return nil
	}
	r.result.Mappings = mappings
	return nil
}

func distinctLabels(segments []diarization.SpeakerSegment) []string {
	var out []string
	for _, s := range segments {
		if !slices.Contains(out, s.SpeakerLabel) {
			out = append(out, s.SpeakerLabel)
		}
	}
	return out
}
