package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ocobra/meeting-minutes-sub000/server"
	"github.com/ocobra/meeting-minutes-sub000/service"
)

// GetJob handles GET /jobs/:jobID.
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.svc.Job(c.Request.Context(), c.Param("jobID"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, job.Info())
}

// CancelJob handles POST /jobs/:jobID/cancel. The response is the job
// snapshot at the time of the request; cancellation completes
// asynchronously.
func (h *Handler) CancelJob(c *gin.Context) {
	job, err := h.svc.Job(c.Request.Context(), c.Param("jobID"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	job.Cancel()
	server.RespondAccepted(c, job.Info())
}

// ListJobs handles GET /meetings/:meetingID/jobs.
func (h *Handler) ListJobs(c *gin.Context) {
	jobs := h.svc.Jobs(c.Request.Context(), c.Param("meetingID"))
	infos := make([]service.JobInfo, 0, len(jobs))
	for _, j := range jobs {
		infos = append(infos, j.Info())
	}
	server.RespondList(c, infos)
}
