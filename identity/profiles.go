package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/store"
	"github.com/ocobra/meeting-minutes-sub000/voiceprint"
)

// EnrollRequest describes a voice profile to create. Embedding is the
// speaker's embedding; only its digest is stored.
type EnrollRequest struct {
	Name                 string
	Consent              bool
	Embedding            []float64
	AudioDurationSeconds float64
	SampleCount          int
}

// ProfileManager creates, lists and purges voice profiles.
type ProfileManager struct {
	store store.Store
	cfg   Config
	log   *logger.Logger
	now   func() time.Time
}

// NewProfileManager creates a ProfileManager.
func NewProfileManager(s store.Store, cfg Config, log *logger.Logger) *ProfileManager {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &ProfileManager{store: s, cfg: cfg, log: log.WithComponent("profiles"), now: time.Now}
}

// Enroll creates a voice profile and its enrollment session. Without
// consent nothing is stored and a CONSENT_REQUIRED error is returned.
func (pm *ProfileManager) Enroll(ctx context.Context, req EnrollRequest) (*diarization.VoiceProfile, error) {
	name := strings.TrimSpace(req.Name)
	if !req.Consent {
		return nil, errors.ConsentRequired(name)
	}
	if name == "" {
		return nil, errors.InvalidInput("name", "a voice profile needs a name")
	}
	hash := voiceprint.Hash(req.Embedding)
	if hash == "" {
		return nil, errors.PermanentInput("enrollment audio produced no usable embedding", nil)
	}

	now := pm.now()
	profile := diarization.VoiceProfile{
		ID:            uuid.NewString(),
		Name:          name,
		EmbeddingHash: hash,
		CreatedAt:     now,
		LastSeen:      now,
	}
	session := diarization.EnrollmentSession{
		ID:                   uuid.NewString(),
		VoiceProfileID:       profile.ID,
		AudioDurationSeconds: req.AudioDurationSeconds,
		SampleCount:          req.SampleCount,
		CreatedAt:            now,
	}
	if err := pm.store.CreateVoiceProfile(ctx, profile, session); err != nil {
		return nil, err
	}

	pm.log.Info("enrolled voice profile", logger.Fields("profile_id", profile.ID))
	return &profile, nil
}

// List returns every voice profile.
func (pm *ProfileManager) List(ctx context.Context) ([]diarization.VoiceProfile, error) {
	return pm.store.ListVoiceProfiles(ctx)
}

// Sessions returns the enrollment sessions of a profile.
func (pm *ProfileManager) Sessions(ctx context.Context, profileID string) ([]diarization.EnrollmentSession, error) {
	if _, err := pm.store.GetVoiceProfile(ctx, profileID); err != nil {
		return nil, err
	}
	return pm.store.ListEnrollmentSessions(ctx, profileID)
}

// Delete removes a profile. Mappings that referenced it keep the ID.
func (pm *ProfileManager) Delete(ctx context.Context, id string) error {
	if err := pm.store.DeleteVoiceProfile(ctx, id); err != nil {
		return err
	}
	pm.log.Info("deleted voice profile", logger.Fields("profile_id", id))
	return nil
}

// PurgeInactive removes profiles not seen within the retention window.
func (pm *ProfileManager) PurgeInactive(ctx context.Context) (int, error) {
	if pm.cfg.Retention < 0 {
		return 0, nil
	}
	cutoff := pm.now().Add(-pm.cfg.Retention)
	n, err := pm.store.DeleteInactiveProfiles(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		pm.log.Info("purged inactive voice profiles", logger.Fields("count", n, "cutoff", cutoff.Format(time.RFC3339)))
	}
	return n, nil
}

// RunPurger calls PurgeInactive every PurgeInterval until ctx is done.
func (pm *ProfileManager) RunPurger(ctx context.Context) {
	ticker := time.NewTicker(pm.cfg.PurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := pm.PurgeInactive(ctx); err != nil && ctx.Err() == nil {
				pm.log.Warn("voice profile purge failed", logger.Fields(logger.FieldError, err.Error()))
			}
		}
	}
}
