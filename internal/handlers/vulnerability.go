package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"engagement-tracker/internal/middleware"
	"engagement-tracker/internal/models"
)

const vulnNotFound = "Уязвимость не найдена"

//
// УЯЗВИМОСТИ ПРОЕКТА
//

func (h *Projects) ListVulnerabilities(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	vulns, err := h.Store.Vulnerabilities(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	if vulns == nil {
		vulns = []models.Vulnerability{}
	}
	render(c, http.StatusOK, vulns)
}

type createVulnerabilityForm struct {
	Type        string                     `json:"type"`
	Severity    models.Severity            `json:"severity"`
	Description string                     `json:"description"`
	Status      models.VulnerabilityStatus `json:"status"`
}

func (h *Projects) CreateVulnerability(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var form createVulnerabilityForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Некорректные данные")
		return
	}
	if strings.TrimSpace(form.Type) == "" {
		badRequest(c, "Укажите тип уязвимости")
		return
	}
	if !form.Severity.Valid() {
		badRequest(c, "Укажите критичность: critical, high, medium, low или info")
		return
	}

	v := models.Vulnerability{
		ProjectID:   id,
		Type:        form.Type,
		Severity:    form.Severity,
		Description: form.Description,
		Status:      form.Status,
	}
	if err := h.Store.CreateVulnerability(c.Request.Context(), &v); err != nil {
		renderError(c, err)
		return
	}

	h.Store.Audit(c.Request.Context(), middleware.CurrentUserID(c), id, "create",
		fmt.Sprintf("Добавлена уязвимость #%d: %s (%s)", v.ID, v.Type, v.Severity))
	render(c, http.StatusCreated, v)
}

func (h *Projects) UpdateVulnerability(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	vid, ok := vulnerabilityID(c)
	if !ok {
		return
	}

	var patch models.VulnerabilityPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Некорректные данные")
		return
	}
	if patch.IsEmpty() {
		badRequest(c, "Нет полей для обновления")
		return
	}

	v, err := h.Store.UpdateVulnerability(c.Request.Context(), id, vid, patch)
	if err != nil {
		renderErrorAs(c, err, vulnNotFound)
		return
	}

	h.Store.Audit(c.Request.Context(), middleware.CurrentUserID(c), id, "update",
		fmt.Sprintf("Уязвимость #%d, изменены поля: %s", vid, strings.Join(patch.Fields(), ", ")))
	render(c, http.StatusOK, v)
}

func (h *Projects) DeleteVulnerability(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	vid, ok := vulnerabilityID(c)
	if !ok {
		return
	}
	if err := h.Store.DeleteVulnerability(c.Request.Context(), id, vid); err != nil {
		renderErrorAs(c, err, vulnNotFound)
		return
	}

	h.Store.Audit(c.Request.Context(), middleware.CurrentUserID(c), id, "delete",
		fmt.Sprintf("Удалена уязвимость #%d", vid))
	c.Status(http.StatusNoContent)
}

func vulnerabilityID(c *gin.Context) (uint, bool) {
	vid, err := strconv.Atoi(c.Param("vid"))
	if err != nil || vid <= 0 {
		badRequest(c, "Некорректный ID уязвимости")
		return 0, false
	}
	return uint(vid), true
}
