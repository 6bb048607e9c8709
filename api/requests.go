package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/engine"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/validation"
)

// StartDiarizationRequest starts a job for a recorded meeting.
type StartDiarizationRequest struct {
	Audio  engine.AudioRef              `json:"audio"`
	Words  []diarization.TranscriptWord `json:"words" validate:"required,min=1"`
	Policy diarization.PrivacyMode      `json:"policy,omitempty" validate:"omitempty,privacy_mode"`
	Mode   diarization.ProcessingMode   `json:"mode,omitempty" validate:"omitempty,processing_mode"`
}

// RenameSpeakerRequest names a speaker label.
type RenameSpeakerRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// MergeSpeakersRequest folds source into target.
type MergeSpeakersRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required,nefield=Source"`
}

// EnrollRequest enrolls a voice profile from a precomputed embedding.
type EnrollRequest struct {
	Name                 string    `json:"name" validate:"required,max=200"`
	Consent              bool      `json:"consent"`
	Embedding            []float64 `json:"embedding" validate:"required,min=1"`
	AudioDurationSeconds float64   `json:"audio_duration_seconds" validate:"gte=0"`
	SampleCount          int       `json:"sample_count" validate:"gte=0"`
}

// bind decodes the JSON body into req and validates its tags.
func bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return errors.InvalidInput("body", "malformed JSON body").WithCause(err)
	}
	return validation.Validate(req)
}
