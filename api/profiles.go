package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ocobra/meeting-minutes-sub000/identity"
	"github.com/ocobra/meeting-minutes-sub000/server"
)

// EnrollSpeaker handles POST /voice-profiles. Consent must be true.
func (h *Handler) EnrollSpeaker(c *gin.Context) {
	var req EnrollRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	profile, err := h.svc.EnrollSpeaker(c.Request.Context(), identity.EnrollRequest{
		Name:                 req.Name,
		Consent:              req.Consent,
		Embedding:            req.Embedding,
		AudioDurationSeconds: req.AudioDurationSeconds,
		SampleCount:          req.SampleCount,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, profile)
}

// ListVoiceProfiles handles GET /voice-profiles.
func (h *Handler) ListVoiceProfiles(c *gin.Context) {
	profiles, err := h.svc.ListVoiceProfiles(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondList(c, profiles)
}

// ListEnrollmentSessions handles GET /voice-profiles/:profileID/sessions.
func (h *Handler) ListEnrollmentSessions(c *gin.Context) {
	sessions, err := h.svc.VoiceProfileSessions(c.Request.Context(), c.Param("profileID"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondList(c, sessions)
}

// DeleteVoiceProfile handles DELETE /voice-profiles/:profileID.
func (h *Handler) DeleteVoiceProfile(c *gin.Context) {
	if err := h.svc.DeleteVoiceProfile(c.Request.Context(), c.Param("profileID")); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}

// PurgeInactiveProfiles handles POST /voice-profiles/purge.
func (h *Handler) PurgeInactiveProfiles(c *gin.Context) {
	n, err := h.svc.PurgeInactiveProfiles(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"purged": n})
}
