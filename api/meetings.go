package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/server"
	"github.com/ocobra/meeting-minutes-sub000/service"
	"github.com/ocobra/meeting-minutes-sub000/transcript"
)

// StartDiarization handles POST /meetings/:meetingID/diarization.
func (h *Handler) StartDiarization(c *gin.Context) {
	var req StartDiarizationRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	meetingID := c.Param("meetingID")
	job, err := h.svc.StartDiarization(c.Request.Context(), meetingID, req.Audio, req.Words,
		service.JobOptions{Policy: req.Policy, Mode: req.Mode})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.log.WithContext(c.Request.Context()).Info("diarization job accepted",
		logger.Fields(logger.FieldMeetingID, meetingID, logger.FieldJobID, job.ID))
	c.Header("Location", "/api/v1/jobs/"+job.ID)
	server.RespondAccepted(c, job.Info())
}

// GetTranscript handles GET /meetings/:meetingID/transcript.
func (h *Handler) GetTranscript(c *gin.Context) {
	t, err := h.svc.GetTranscript(c.Request.Context(), c.Param("meetingID"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, t)
}

// ExportTranscript handles GET /meetings/:meetingID/transcript/export?format=.
// The body is the rendered document, not the JSON envelope.
func (h *Handler) ExportTranscript(c *gin.Context) {
	format, err := transcript.ParseFormat(c.DefaultQuery("format", string(transcript.FormatText)))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	meetingID := c.Param("meetingID")
	body, err := h.svc.ExportTranscript(c.Request.Context(), meetingID, format)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+meetingID+format.Extension()+`"`)
	c.Data(http.StatusOK, format.ContentType(), body)
}

// GetSpeakerSegments handles GET /meetings/:meetingID/segments.
func (h *Handler) GetSpeakerSegments(c *gin.Context) {
	segments, err := h.svc.GetSpeakerSegments(c.Request.Context(), c.Param("meetingID"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondList(c, segments)
}

// GetSpeakerStatistics handles GET /meetings/:meetingID/statistics.
func (h *Handler) GetSpeakerStatistics(c *gin.Context) {
	stats, err := h.svc.GetSpeakerStatistics(c.Request.Context(), c.Param("meetingID"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondList(c, stats)
}

// ListMappings handles GET /meetings/:meetingID/speakers.
func (h *Handler) ListMappings(c *gin.Context) {
	mappings, err := h.svc.ListMappings(c.Request.Context(), c.Param("meetingID"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondList(c, mappings)
}

// UpdateSpeakerName handles PUT /meetings/:meetingID/speakers/:label.
func (h *Handler) UpdateSpeakerName(c *gin.Context) {
	var req RenameSpeakerRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.svc.UpdateSpeakerName(c.Request.Context(), c.Param("meetingID"), c.Param("label"), req.Name); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}

// MergeSpeakers handles POST /meetings/:meetingID/speakers/merge.
func (h *Handler) MergeSpeakers(c *gin.Context) {
	var req MergeSpeakersRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.svc.MergeSpeakers(c.Request.Context(), c.Param("meetingID"), req.Source, req.Target); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}

// DeleteMeeting handles DELETE /meetings/:meetingID.
func (h *Handler) DeleteMeeting(c *gin.Context) {
	if err := h.svc.DeleteMeeting(c.Request.Context(), c.Param("meetingID")); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}
