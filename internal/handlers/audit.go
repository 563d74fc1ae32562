package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"engagement-tracker/internal/models"
)

const auditPageSize = 200

func (h *Projects) ListAuditLogs(c *gin.Context) {
	logs, err := h.Store.RecentAudit(c.Request.Context(), auditPageSize)
	if err != nil {
		renderError(c, err)
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	render(c, http.StatusOK, logs)
}
