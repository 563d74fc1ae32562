package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"engagement-tracker/internal/middleware"
	"engagement-tracker/internal/models"
)

// Store: то, что REST-слою нужно от хранилища проектов.
type Store interface {
	List(ctx context.Context, status models.EngagementStatus) ([]models.Engagement, error)
	Create(ctx context.Context, project *models.Engagement) error
	GetProject(ctx context.Context, id uint) (*models.Engagement, error)
	UpdateProject(ctx context.Context, id uint, patch models.EngagementPatch) (*models.Engagement, error)
	Delete(ctx context.Context, id uint) error
	History(ctx context.Context, id uint) ([]models.AuditLog, error)
	RecentAudit(ctx context.Context, limit int) ([]models.AuditLog, error)
	Audit(ctx context.Context, userID, projectID uint, action, details string)

	Vulnerabilities(ctx context.Context, projectID uint) ([]models.Vulnerability, error)
	CreateVulnerability(ctx context.Context, v *models.Vulnerability) error
	UpdateVulnerability(ctx context.Context, projectID, id uint, patch models.VulnerabilityPatch) (*models.Vulnerability, error)
	DeleteVulnerability(ctx context.Context, projectID, id uint) error
}

type Projects struct {
	Store Store
}

//
// СПИСОК ПРОЕКТОВ
//

func (h *Projects) List(c *gin.Context) {
	status := models.EngagementStatus(c.Query("status"))

	projects, err := h.Store.List(c.Request.Context(), status)
	if err != nil {
		renderError(c, err)
		return
	}
	if projects == nil {
		projects = []models.Engagement{}
	}
	render(c, http.StatusOK, projects)
}

//
// СОЗДАНИЕ ПРОЕКТА
//

type createProjectForm struct {
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	StartDate     string               `json:"start_date"`
	EndDate       string               `json:"end_date"`
	KickoffStatus models.KickoffStatus `json:"kickoff_status"`

	TechnologyType  models.TechnologyType  `json:"technology_type"`
	ReportingStatus models.ReportingStatus `json:"reporting_status"`
	PSMName         string                 `json:"psm_name"`
	FunctionalOwner string                 `json:"functional_owner"`
	JiraTicketLink  string                 `json:"jira_ticket_link"`
	SharepointLink  string                 `json:"sharepoint_link"`
	PinnedLinks     []models.PinnedLink    `json:"pinned_links"`
}

func (h *Projects) Create(c *gin.Context) {
	var form createProjectForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Некорректные данные")
		return
	}

	if len(strings.TrimSpace(form.Name)) < 3 {
		badRequest(c, "Название проекта должно быть не короче 3 символов")
		return
	}

	start, ok := parseDate(form.StartDate)
	if !ok {
		badRequest(c, "Неверная дата начала")
		return
	}
	end, ok := parseDate(form.EndDate)
	if !ok {
		badRequest(c, "Неверная дата окончания")
		return
	}

	project := models.Engagement{
		Name:            form.Name,
		Description:     form.Description,
		StartDate:       start,
		EndDate:         end,
		KickoffStatus:   form.KickoffStatus,
		TechnologyType:  form.TechnologyType,
		ReportingStatus: form.ReportingStatus,
		PSMName:         strings.TrimSpace(form.PSMName),
		FunctionalOwner: strings.TrimSpace(form.FunctionalOwner),
		JiraTicketLink:  strings.TrimSpace(form.JiraTicketLink),
		SharepointLink:  strings.TrimSpace(form.SharepointLink),
		PinnedLinks:     form.PinnedLinks,
	}
	if err := h.Store.Create(c.Request.Context(), &project); err != nil {
		renderError(c, err)
		return
	}

	h.Store.Audit(c.Request.Context(), middleware.CurrentUserID(c), project.ID, "create", "Создан проект: "+project.Name)
	render(c, http.StatusCreated, project)
}

//
// ПРОЕКТ
//

func (h *Projects) Get(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	project, err := h.Store.GetProject(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, project)
}

// Update: частичное обновление. Последняя запись побеждает.
func (h *Projects) Update(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	var patch models.EngagementPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Некорректные данные")
		return
	}
	if patch.IsEmpty() {
		badRequest(c, "Нет полей для обновления")
		return
	}

	project, err := h.Store.UpdateProject(c.Request.Context(), id, patch)
	if err != nil {
		renderError(c, err)
		return
	}

	h.Store.Audit(c.Request.Context(), middleware.CurrentUserID(c), id, "update",
		"Изменены поля: "+strings.Join(patch.Fields(), ", "))
	render(c, http.StatusOK, project)
}

//
// УДАЛЕНИЕ ПРОЕКТА
//

func (h *Projects) Delete(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	project, err := h.Store.GetProject(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	if err := h.Store.Delete(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}

	h.Store.Audit(c.Request.Context(), middleware.CurrentUserID(c), id, "delete", "Удалён проект: "+project.Name)
	c.Status(http.StatusNoContent)
}

//
// ИСТОРИЯ ПРОЕКТА
//

func (h *Projects) History(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	if _, err := h.Store.GetProject(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}

	logs, err := h.Store.History(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	render(c, http.StatusOK, logs)
}

func projectID(c *gin.Context) (uint, bool) {
	pid, err := strconv.Atoi(c.Param("id"))
	if err != nil || pid <= 0 {
		badRequest(c, "Некорректный ID проекта")
		return 0, false
	}
	return uint(pid), true
}

// parseDate: пустая строка: nil без ошибки.
func parseDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
