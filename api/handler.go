// Package api exposes the diarization service over HTTP.
//
// Every response uses the server envelope: {"data": ...} on success and
// {"error": {...}} on failure.
package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/engine"
	"github.com/ocobra/meeting-minutes-sub000/identity"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/service"
	"github.com/ocobra/meeting-minutes-sub000/transcript"
)

// Service is the subset of *service.Service the handlers call.
type Service interface {
	StartDiarization(ctx context.Context, meetingID string, audio engine.AudioRef, words []diarization.TranscriptWord, opts service.JobOptions) (*service.JobHandle, error)
	Job(ctx context.Context, id string) (*service.JobHandle, error)
	Jobs(ctx context.Context, meetingID string) []*service.JobHandle

	GetTranscript(ctx context.Context, meetingID string) (transcript.Transcript, error)
	GetSpeakerSegments(ctx context.Context, meetingID string) ([]transcript.AttributedSegment, error)
	GetSpeakerStatistics(ctx context.Context, meetingID string) ([]transcript.SpeakerStatistic, error)
	ExportTranscript(ctx context.Context, meetingID string, format transcript.Format) ([]byte, error)
	ListMappings(ctx context.Context, meetingID string) ([]diarization.SpeakerMapping, error)
	UpdateSpeakerName(ctx context.Context, meetingID, label, name string) error
	MergeSpeakers(ctx context.Context, meetingID, source, target string) error
	DeleteMeeting(ctx context.Context, meetingID string) error

	Settings() service.Settings
	Configure(ctx context.Context, settings service.Settings) error

	EnrollSpeaker(ctx context.Context, req identity.EnrollRequest) (*diarization.VoiceProfile, error)
	ListVoiceProfiles(ctx context.Context) ([]diarization.VoiceProfile, error)
	VoiceProfileSessions(ctx context.Context, profileID string) ([]diarization.EnrollmentSession, error)
	DeleteVoiceProfile(ctx context.Context, id string) error
	PurgeInactiveProfiles(ctx context.Context) (int, error)
}

var _ Service = (*service.Service)(nil)

// Handler serves the diarization API.
type Handler struct {
	svc Service
	log *logger.Logger
}

// New creates a Handler.
func New(svc Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, log: log.WithComponent("api")}
}

// Register mounts the routes on rg, typically /api/v1.
func (h *Handler) Register(rg *gin.RouterGroup) {
	meetings := rg.Group("/meetings/:meetingID")
	meetings.POST("/diarization", h.StartDiarization)
	meetings.GET("/jobs", h.ListJobs)
	meetings.GET("/transcript", h.GetTranscript)
	meetings.GET("/transcript/export", h.ExportTranscript)
	meetings.GET("/segments", h.GetSpeakerSegments)
	meetings.GET("/statistics", h.GetSpeakerStatistics)
	meetings.GET("/speakers", h.ListMappings)
	meetings.PUT("/speakers/:label", h.UpdateSpeakerName)
	meetings.POST("/speakers/merge", h.MergeSpeakers)
	meetings.DELETE("", h.DeleteMeeting)

	rg.GET("/jobs/:jobID", h.GetJob)
	rg.POST("/jobs/:jobID/cancel", h.CancelJob)

	rg.GET("/settings", h.GetSettings)
	rg.PUT("/settings", h.UpdateSettings)

	rg.POST("/voice-profiles", h.EnrollSpeaker)
	rg.GET("/voice-profiles", h.ListVoiceProfiles)
	rg.GET("/voice-profiles/:profileID/sessions", h.ListEnrollmentSessions)
	rg.DELETE("/voice-profiles/:profileID", h.DeleteVoiceProfile)
	rg.POST("/voice-profiles/purge", h.PurgeInactiveProfiles)
}
