package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/server"
)

// GetSettings handles GET /settings.
func (h *Handler) GetSettings(c *gin.Context) {
	server.RespondOK(c, h.svc.Settings())
}

// UpdateSettings handles PUT /settings. Omitted fields keep their current
// value.
func (h *Handler) UpdateSettings(c *gin.Context) {
	settings := h.svc.Settings()
	if err := c.ShouldBindJSON(&settings); err != nil {
		server.RespondWithError(c, errors.InvalidInput("body", "malformed JSON body").WithCause(err))
		return
	}
	if err := h.svc.Configure(c.Request.Context(), settings); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, h.svc.Settings())
}
