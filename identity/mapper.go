// Package identity resolves speaker labels to people.
//
// Mapper owns per-meeting speaker mappings: it applies voice-profile
// matches and accepted name candidates, never overrides a manual mapping,
// and merges labels. ProfileManager owns consent-gated voice profiles.
package identity

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/confidence"
	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/store"
	"github.com/ocobra/meeting-minutes-sub000/voiceprint"
)

// ErrManualMapping is wrapped by errors returned when an automated update
// targets a manually set mapping.
var ErrManualMapping = stderrors.New("speaker mapping was set manually")

// Mapper resolves and updates speaker mappings. Writes are serialized per
// meeting; different meetings never block each other.
type Mapper struct {
	store  store.Store
	scorer *confidence.Scorer
	cfg    Config
	log    *logger.Logger
	locks  *meetingLocks
	now    func() time.Time
}

// NewMapper creates a Mapper.
func NewMapper(s store.Store, scorer *confidence.Scorer, cfg Config, log *logger.Logger) *Mapper {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	if scorer == nil {
		scorer = confidence.New(confidence.Config{})
	}
	return &Mapper{
		store:  s,
		scorer: scorer,
		cfg:    cfg,
		log:    log.WithComponent("identity"),
		locks:  newMeetingLocks(),
		now:    time.Now,
	}
}

// WithScorer returns a Mapper that scores candidates with scorer and shares
// the receiver's store and locks.
func (m *Mapper) WithScorer(scorer *confidence.Scorer) *Mapper {
	cp := *m
	cp.scorer = scorer
	return &cp
}

// Scorer returns the candidate scorer.
func (m *Mapper) Scorer() *confidence.Scorer { return m.scorer }

type labelInfo struct {
	confSum float64
	count   int
	hashes  []string
}

// MapSpeakers resolves every label in segments, in first-seen order, and
// persists the result in one write. Manual mappings are returned untouched.
func (m *Mapper) MapSpeakers(ctx context.Context, meetingID string, segments []diarization.SpeakerSegment, candidates []diarization.IdentificationCandidate) ([]diarization.SpeakerMapping, error) {
	unlock := m.locks.lock(meetingID)
	defer unlock()

	var order []string
	info := make(map[string]*labelInfo)
	for _, seg := range segments {
		li, ok := info[seg.SpeakerLabel]
		if !ok {
			li = &labelInfo{}
			info[seg.SpeakerLabel] = li
			order = append(order, seg.SpeakerLabel)
		}
		li.confSum += seg.Confidence
		li.count++
		if seg.EmbeddingHash != "" && !slices.Contains(li.hashes, seg.EmbeddingHash) {
			li.hashes = append(li.hashes, seg.EmbeddingHash)
		}
	}
	if len(order) == 0 {
		return []diarization.SpeakerMapping{}, nil
	}

	existing, err := m.store.ListMappings(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	byLabel := make(map[string]diarization.SpeakerMapping, len(existing))
	for _, e := range existing {
		byLabel[e.SpeakerLabel] = e
	}

	profiles, err := m.store.ListVoiceProfiles(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now()
	var (
		result  = make([]diarization.SpeakerMapping, 0, len(order))
		changed []diarization.SpeakerMapping
		touched = make(map[string]bool)
	)
	for _, label := range order {
		li := info[label]
		current, exists := byLabel[label]
		if exists && current.IsManual {
			result = append(result, current)
			continue
		}

		next := current
		if !exists {
			next = diarization.SpeakerMapping{MeetingID: meetingID, SpeakerLabel: label}
		}

		if p, sim := bestProfile(profiles, li.hashes, m.cfg.ProfileMatchThreshold); p != nil {
			next.SpeakerName = diarization.StringPtr(p.Name)
			next.VoiceProfileID = diarization.StringPtr(p.ID)
			next.Confidence = sim
			// A rerun that keeps the same link is not a new meeting.
			if !exists || current.VoiceProfileID == nil || *current.VoiceProfileID != p.ID {
				touched[p.ID] = true
			}
		} else if c, score, ok := m.bestCandidate(label, li.confSum/float64(li.count), candidates); ok {
			if next.SpeakerName == nil || score > next.Confidence {
				next.SpeakerName = diarization.StringPtr(c.CandidateName)
				next.Confidence = score
			}
		}

		if !exists || !sameMapping(current, next) {
			next.UpdatedAt = now
			changed = append(changed, next)
		}
		result = append(result, next)
	}

	if len(changed) > 0 {
		if err := m.store.SaveMappings(ctx, changed); err != nil {
			return nil, err
		}
	}
	for id := range touched {
		if err := m.store.TouchVoiceProfile(ctx, id, now); err != nil {
			m.log.Warn("failed to touch voice profile", logger.Fields(
				logger.FieldMeetingID, meetingID, "profile_id", id, logger.FieldError, err.Error()))
		}
	}

	m.log.Debug("mapped speakers", logger.Fields(
		logger.FieldMeetingID, meetingID, "labels", len(order), "changed", len(changed)))
	return result, nil
}

func (m *Mapper) bestCandidate(label string, segmentConfidence float64, candidates []diarization.IdentificationCandidate) (diarization.IdentificationCandidate, float64, bool) {
	var (
		best      diarization.IdentificationCandidate
		bestScore float64
		found     bool
	)
	for _, c := range candidates {
		if c.SpeakerLabel != label || strings.TrimSpace(c.CandidateName) == "" {
			continue
		}
		score := m.scorer.Score(c, segmentConfidence, "")
		if !m.scorer.Accept(score) {
			continue
		}
		if !found || score > bestScore {
			best, bestScore, found = c, score, true
		}
	}
	best.CandidateName = strings.TrimSpace(best.CandidateName)
	return best, bestScore, found
}

// UpdateMapping sets the name of a label. An automated update of a manual
// mapping fails with a CONFLICT error wrapping ErrManualMapping and changes
// nothing. Once manual, a mapping stays manual.
func (m *Mapper) UpdateMapping(ctx context.Context, meetingID, label, name string, isManual bool) error {
	name = strings.TrimSpace(name)
	if label == "" {
		return errors.InvalidInput("speaker_label", "speaker label is required")
	}
	if isManual && name == "" {
		return errors.InvalidInput("name", "a manual mapping needs a name")
	}

	unlock := m.locks.lock(meetingID)
	defer unlock()

	mapping, err := m.store.GetMapping(ctx, meetingID, label)
	switch {
	case errors.IsNotFound(err):
		mapping = &diarization.SpeakerMapping{MeetingID: meetingID, SpeakerLabel: label}
	case err != nil:
		return err
	}

	if mapping.IsManual && !isManual {
		return errors.Conflict("speaker " + label + " was named manually").WithCause(ErrManualMapping)
	}

	mapping.SpeakerName = diarization.StringPtr(name)
	if isManual {
		mapping.IsManual = true
		mapping.Confidence = 1
	}
	mapping.UpdatedAt = m.now()
	if err := m.store.SaveMappings(ctx, []diarization.SpeakerMapping{*mapping}); err != nil {
		return err
	}

	m.log.Info("updated speaker mapping", logger.Fields(
		logger.FieldMeetingID, meetingID, logger.FieldLabel, label, "manual", isManual))
	return nil
}

// MergeLabels folds source into target. The target keeps its mapping but
// inherits the source's name and voice profile when it has none.
func (m *Mapper) MergeLabels(ctx context.Context, meetingID, source, target string) error {
	if source == "" || target == "" {
		return errors.InvalidInput("speaker_label", "source and target labels are required")
	}
	if source == target {
		return errors.InvalidInput("target", "cannot merge a label into itself")
	}

	unlock := m.locks.lock(meetingID)
	defer unlock()

	src, err := m.optionalMapping(ctx, meetingID, source)
	if err != nil {
		return err
	}
	tgt, err := m.optionalMapping(ctx, meetingID, target)
	if err != nil {
		return err
	}

	var merged diarization.SpeakerMapping
	switch {
	case tgt != nil:
		merged = *tgt
		if src != nil && merged.SpeakerName == nil && src.SpeakerName != nil {
			merged.SpeakerName = src.SpeakerName
			merged.Confidence = src.Confidence
			merged.IsManual = merged.IsManual || src.IsManual
			if merged.VoiceProfileID == nil {
				merged.VoiceProfileID = src.VoiceProfileID
			}
		}
	case src != nil:
		merged = *src
	}
	merged.MeetingID = meetingID
	merged.SpeakerLabel = target
	merged.UpdatedAt = m.now()

	if err := m.store.MergeLabels(ctx, meetingID, source, target, merged); err != nil {
		return err
	}
	m.log.Info("merged speaker labels", logger.Fields(
		logger.FieldMeetingID, meetingID, "source", source, "target", target))
	return nil
}

func (m *Mapper) optionalMapping(ctx context.Context, meetingID, label string) (*diarization.SpeakerMapping, error) {
	mapping, err := m.store.GetMapping(ctx, meetingID, label)
	if errors.IsNotFound(err) {
		return nil, nil
	}
	return mapping, err
}

// ResolveVoiceProfile returns the profile closest to embeddingHash, or nil
// when none reaches the match threshold.
func (m *Mapper) ResolveVoiceProfile(ctx context.Context, embeddingHash string) (*diarization.VoiceProfile, float64, error) {
	if embeddingHash == "" {
		return nil, 0, nil
	}
	profiles, err := m.store.ListVoiceProfiles(ctx)
	if err != nil {
		return nil, 0, err
	}
	p, sim := bestProfile(profiles, []string{embeddingHash}, m.cfg.ProfileMatchThreshold)
	return p, sim, nil
}

// bestProfile scans profiles for the closest match to any of hashes.
func bestProfile(profiles []diarization.VoiceProfile, hashes []string, threshold float64) (*diarization.VoiceProfile, float64) {
	var (
		best    *diarization.VoiceProfile
		bestSim float64
	)
	for i := range profiles {
		for _, h := range hashes {
			sim := voiceprint.Similarity(h, profiles[i].EmbeddingHash)
			if sim >= threshold && sim > bestSim {
				best, bestSim = &profiles[i], sim
			}
		}
	}
	return best, bestSim
}

func sameMapping(a, b diarization.SpeakerMapping) bool {
	return equalPtr(a.SpeakerName, b.SpeakerName) &&
		equalPtr(a.VoiceProfileID, b.VoiceProfileID) &&
		a.Confidence == b.Confidence &&
		a.IsManual == b.IsManual
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
