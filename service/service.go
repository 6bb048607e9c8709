// Package service is the transport-neutral API of the diarizer: start a
// diarization job, read and correct a meeting's speakers, manage voice
// profiles and export transcripts.
package service

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ocobra/meeting-minutes-sub000/alignment"
	"github.com/ocobra/meeting-minutes-sub000/confidence"
	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/engine"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/identity"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/observability"
	"github.com/ocobra/meeting-minutes-sub000/provider"
	"github.com/ocobra/meeting-minutes-sub000/resilience"
	"github.com/ocobra/meeting-minutes-sub000/resource"
	"github.com/ocobra/meeting-minutes-sub000/router"
	"github.com/ocobra/meeting-minutes-sub000/store"
	"github.com/ocobra/meeting-minutes-sub000/transcript"
	"github.com/ocobra/meeting-minutes-sub000/validation"
)

// Probe is a dependency reported by Health.
type Probe struct {
	Provider provider.Provider
	// Optional dependencies only degrade health when they are down.
	Optional bool
}

// Dependencies are the collaborators of a Service. Store is required;
// backends, Monitor and Metrics are optional.
type Dependencies struct {
	Store       store.Store
	Segmenters  diarization.Backends[diarization.Segmenter]
	Identifiers diarization.Backends[diarization.Identifier]
	Monitor     *resource.Monitor
	Metrics     *observability.Metrics
	Probes      []Probe
	Logger      *logger.Logger
}

// Service implements the diarizer commands. It is safe for concurrent use.
type Service struct {
	cfg      Config
	store    store.Store
	router   *router.Router
	mapper   *identity.Mapper
	profiles *identity.ProfileManager
	engine   *engine.Engine
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	probes   []Probe
	log      *logger.Logger
	now      func() time.Time

	mu       sync.RWMutex
	settings Settings
	scorer   *confidence.Scorer
	jobs     map[string]*JobHandle
	active   map[string]*JobHandle

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a Service from cfg.
func New(cfg Config, deps Dependencies) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Store == nil {
		return nil, errors.InvalidInput("store", "is required")
	}
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	rt := router.New(cfg.Router, log)
	if deps.Segmenters.External != nil {
		rt.RegisterExternal(diarization.CapabilityDiarization, deps.Segmenters.External)
	}
	if deps.Identifiers.External != nil {
		rt.RegisterExternal(diarization.CapabilityIdentification, deps.Identifiers.External)
	}

	scorer := confidence.New(cfg.Confidence).WithThreshold(cfg.Defaults.ConfidenceThreshold)
	mapper := identity.NewMapper(deps.Store, scorer, cfg.Identity, log)

	eng, err := engine.New(cfg.Engine, cfg.Recovery, engine.Dependencies{
		Segmenters:   deps.Segmenters,
		Identifiers:  deps.Identifiers,
		Router:       rt,
		Synchronizer: alignment.New(cfg.Alignment),
		Mapper:       mapper,
		Monitor:      deps.Monitor,
		Store:        deps.Store,
		Metrics:      deps.Metrics,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	baseCtx, stop := context.WithCancel(context.Background())
	s := &Service{
		cfg:      cfg,
		store:    deps.Store,
		router:   rt,
		mapper:   mapper,
		profiles: identity.NewProfileManager(deps.Store, cfg.Identity, log),
		engine:   eng,
		metrics:  deps.Metrics,
		probes:   deps.Probes,
		log:      log.WithComponent("service"),
		now:      time.Now,
		settings: cfg.Defaults,
		scorer:   scorer,
		jobs:     make(map[string]*JobHandle),
		active:   make(map[string]*JobHandle),
		baseCtx:  baseCtx,
		stop:     stop,
	}
	s.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "diarization",
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
		MaxWait:       cfg.Jobs.QueueTimeout,
		OnReject: func(name string) {
			s.log.Warn("no free diarization slot", logger.Fields("bulkhead", name))
		},
	})
	return s, nil
}

// Close cancels running jobs and waits for them to finish or ctx to end.
func (s *Service) Close(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Settings returns the current pipeline defaults.
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Configure replaces the pipeline defaults. Cached routing decisions are
// dropped so the next job routes under the new policy.
func (s *Service) Configure(ctx context.Context, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = settings
	s.scorer = confidence.New(s.cfg.Confidence).WithThreshold(settings.ConfidenceThreshold)
	s.mu.Unlock()

	s.router.Invalidate()
	s.log.Info("settings updated", logger.Fields(
		"policy", string(settings.Policy),
		"mode", string(settings.Mode),
		"confidence_threshold", settings.ConfidenceThreshold,
	))
	return nil
}

func (s *Service) currentScorer() *confidence.Scorer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scorer
}

// StartDiarization queues a pipeline run for meetingID and returns at once.
// A meeting has at most one job in flight.
func (s *Service) StartDiarization(ctx context.Context, meetingID string, audio engine.AudioRef, words []diarization.TranscriptWord, opts JobOptions) (*JobHandle, error) {
	if err := validation.New().Required("meeting_id", meetingID).Err(); err != nil {
		return nil, err
	}
	if err := validation.Validate(opts); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if j, ok := s.active[meetingID]; ok {
		s.mu.Unlock()
		return nil, errors.Conflict("meeting " + meetingID + " already has job " + j.ID + " in progress")
	}
	s.pruneJobsLocked()

	req := engine.Request{
		MeetingID: meetingID,
		Audio:     audio,
		Words:     words,
		Policy:    s.settings.Policy,
		Mode:      s.settings.Mode,
		Scorer:    s.scorer,
	}
	if opts.Policy != "" {
		req.Policy = opts.Policy
	}
	if opts.Mode != "" {
		req.Mode = opts.Mode
	}

	jobCtx, cancel := context.WithCancel(s.baseCtx)
	job := newJobHandle(uuid.NewString(), meetingID, s.now(), cancel)
	s.jobs[job.ID] = job
	s.active[meetingID] = job
	s.wg.Add(1)
	s.mu.Unlock()

	jobCtx = logger.ContextWithMeetingID(jobCtx, meetingID)
	go s.runJob(jobCtx, job, req)

	s.log.Info("diarization job queued", logger.Fields(
		logger.FieldJobID, job.ID,
		logger.FieldMeetingID, meetingID,
		"policy", string(req.Policy),
		"mode", string(req.Mode),
	))
	return job, nil
}

func (s *Service) runJob(ctx context.Context, job *JobHandle, req engine.Request) {
	defer s.wg.Done()
	s.metrics.RecordJobStart(ctx)

	res, err := resilience.ExecuteWithResult(ctx, s.bulkhead, func(ctx context.Context) (*engine.Result, error) {
		job.setRunning()
		return s.engine.Run(ctx, req)
	})
	if errors.Is(err, resilience.ErrBulkheadFull) || errors.Is(err, resilience.ErrBulkheadTimeout) {
		err = errors.ServiceUnavailable("diarization worker pool").WithCause(err)
	} else if errors.Is(err, context.Canceled) && !errors.IsAppError(err) {
		err = errors.Canceled("diarization job", err)
	}

	// Release the meeting before waking waiters so they can start a rerun.
	s.mu.Lock()
	if s.active[job.MeetingID] == job {
		delete(s.active, job.MeetingID)
	}
	s.mu.Unlock()

	status := job.finish(res, err, s.now())
	s.metrics.RecordJobEnd(ctx, string(status))

	fields := logger.Fields(logger.FieldJobID, job.ID, logger.FieldMeetingID, job.MeetingID, "status", string(status))
	if err != nil {
		s.log.WithError(err).Warn("diarization job finished", fields)
		return
	}
	fields["fallbacks"] = len(res.Fallbacks)
	s.log.Info("diarization job finished", fields)
}

// pruneJobsLocked forgets finished jobs older than the retention window.
func (s *Service) pruneJobsLocked() {
	cutoff := s.now().Add(-s.cfg.Jobs.Retention)
	for id, j := range s.jobs {
		if j.expired(cutoff) {
			delete(s.jobs, id)
		}
	}
}

// Job returns a job by ID.
func (s *Service) Job(ctx context.Context, id string) (*JobHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, errors.NotFound("job", id)
	}
	return j, nil
}

// Jobs returns the known jobs of a meeting, oldest first.
func (s *Service) Jobs(ctx context.Context, meetingID string) []*JobHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*JobHandle
	for _, j := range s.jobs {
		if j.MeetingID == meetingID {
			out = append(out, j)
		}
	}
	slices.SortFunc(out, func(a, b *JobHandle) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

// transcript loads a meeting's aligned segments and mappings.
func (s *Service) transcript(ctx context.Context, meetingID string) (transcript.Transcript, error) {
	if err := validation.Required("meeting_id", meetingID); err != nil {
		return transcript.Transcript{}, err
	}
	segments, err := s.store.ListSynchronizedSegments(ctx, meetingID)
	if err != nil {
		return transcript.Transcript{}, err
	}
	mappings, err := s.store.ListMappings(ctx, meetingID)
	if err != nil {
		return transcript.Transcript{}, err
	}
	if len(segments) == 0 && len(mappings) == 0 {
		return transcript.Transcript{}, errors.NotFound("meeting", meetingID)
	}
	return transcript.Build(meetingID, segments, mappings, s.currentScorer().IsLowConfidence), nil
}

// GetSpeakerSegments returns the meeting transcript with speaker names
// applied.
func (s *Service) GetSpeakerSegments(ctx context.Context, meetingID string) ([]transcript.AttributedSegment, error) {
	t, err := s.transcript(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return t.Segments, nil
}

// GetSpeakerStatistics returns per-speaker talk time, busiest first.
func (s *Service) GetSpeakerStatistics(ctx context.Context, meetingID string) ([]transcript.SpeakerStatistic, error) {
	t, err := s.transcript(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return t.Statistics.Speakers, nil
}

// GetTranscript returns the attributed transcript and its statistics.
func (s *Service) GetTranscript(ctx context.Context, meetingID string) (transcript.Transcript, error) {
	return s.transcript(ctx, meetingID)
}

// ExportTranscript renders the meeting transcript in format.
func (s *Service) ExportTranscript(ctx context.Context, meetingID string, format transcript.Format) ([]byte, error) {
	t, err := s.transcript(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return transcript.Export(t, format)
}

// ListMappings returns the stored label resolutions of a meeting.
func (s *Service) ListMappings(ctx context.Context, meetingID string) ([]diarization.SpeakerMapping, error) {
	if err := validation.Required("meeting_id", meetingID); err != nil {
		return nil, err
	}
	return s.store.ListMappings(ctx, meetingID)
}

// UpdateSpeakerName is a user correction: it names label and marks the
// mapping manual so later runs keep it.
func (s *Service) UpdateSpeakerName(ctx context.Context, meetingID, label, name string) error {
	if err := validation.New().
		Required("meeting_id", meetingID).
		Required("speaker_label", label).
		Required("name", name).
		MaxLength("name", name, 200).
		Err(); err != nil {
		return err
	}
	return s.mapper.UpdateMapping(ctx, meetingID, label, name, true)
}

// MergeSpeakers folds source into target, for a speaker split in two.
func (s *Service) MergeSpeakers(ctx context.Context, meetingID, source, target string) error {
	if err := validation.New().
		Required("meeting_id", meetingID).
		Required("source", source).
		Required("target", target).
		Err(); err != nil {
		return err
	}
	return s.mapper.MergeLabels(ctx, meetingID, source, target)
}

// DeleteMeeting removes everything stored for a meeting. It fails while a
// job for the meeting is in flight.
func (s *Service) DeleteMeeting(ctx context.Context, meetingID string) error {
	if err := validation.Required("meeting_id", meetingID); err != nil {
		return err
	}
	s.mu.RLock()
	j, busy := s.active[meetingID]
	s.mu.RUnlock()
	if busy {
		return errors.Conflict("meeting " + meetingID + " has job " + j.ID + " in progress")
	}
	if err := s.store.DeleteMeeting(ctx, meetingID); err != nil {
		return err
	}
	s.log.Info("meeting deleted", logger.Fields(logger.FieldMeetingID, meetingID))
	return nil
}

// EnrollSpeaker creates a voice profile. Consent is required.
func (s *Service) EnrollSpeaker(ctx context.Context, req identity.EnrollRequest) (*diarization.VoiceProfile, error) {
	return s.profiles.Enroll(ctx, req)
}

// ListVoiceProfiles returns every voice profile.
func (s *Service) ListVoiceProfiles(ctx context.Context) ([]diarization.VoiceProfile, error) {
	return s.profiles.List(ctx)
}

// VoiceProfileSessions returns the enrollment sessions of a profile.
func (s *Service) VoiceProfileSessions(ctx context.Context, profileID string) ([]diarization.EnrollmentSession, error) {
	return s.profiles.Sessions(ctx, profileID)
}

// DeleteVoiceProfile removes a voice profile.
func (s *Service) DeleteVoiceProfile(ctx context.Context, id string) error {
	if err := validation.New().RequiredUUID("id", id).Err(); err != nil {
		return err
	}
	return s.profiles.Delete(ctx, id)
}

// PurgeInactiveProfiles removes profiles unseen for the retention window.
func (s *Service) PurgeInactiveProfiles(ctx context.Context) (int, error) {
	return s.profiles.PurgeInactive(ctx)
}

// RunProfilePurger purges inactive profiles periodically until ctx is done.
func (s *Service) RunProfilePurger(ctx context.Context) {
	s.profiles.RunPurger(ctx)
}

// Health probes the registered dependencies.
func (s *Service) Health(ctx context.Context) *observability.ServiceHealth {
	h := observability.NewServiceHealth(s.cfg.Name, s.cfg.Version)
	for _, p := range s.probes {
		h.AddComponent(observability.ProbeHealth(ctx, p.Provider, s.cfg.Router.ProbeTimeout, p.Optional))
	}
	h.AddComponent(observability.Health{
		Name:   "workers",
		Status: observability.HealthStatusUp,
		Details: map[string]string{
			"in_use":    strconv.Itoa(s.bulkhead.InUse()),
			"available": strconv.Itoa(s.bulkhead.Available()),
		},
	})
	return h
}
