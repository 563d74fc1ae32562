package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engagement-tracker/internal/models"
	"engagement-tracker/internal/stages"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type auditEntry struct {
	userID, projectID uint
	action, details   string
}

type memStore struct {
	mu       sync.Mutex
	nextID   uint
	projects map[uint]*models.Engagement
	vulns    []models.Vulnerability
	audit    []auditEntry
	failWith error
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, projects: make(map[uint]*models.Engagement)}
}

func (s *memStore) List(_ context.Context, status models.EngagementStatus) ([]models.Engagement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []models.Engagement
	for id := uint(1); id < s.nextID; id++ {
		if p, ok := s.projects[id]; ok && (status == "" || p.Status == status) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (s *memStore) Create(_ context.Context, p *models.Engagement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.KickoffStatus == "" {
		p.KickoffStatus = models.KickoffQueued
	}
	if !p.KickoffStatus.Valid() {
		return fmt.Errorf("%w: kickoff", models.ErrValidation)
	}
	if p.ReportingStatus == "" {
		p.ReportingStatus = models.ReportingNotStarted
	}
	card := models.EngagementPatch{
		TechnologyType:  &p.TechnologyType,
		ReportingStatus: &p.ReportingStatus,
		JiraTicketLink:  &p.JiraTicketLink,
		SharepointLink:  &p.SharepointLink,
		PinnedLinks:     &p.PinnedLinks,
	}
	if err := card.Validate(); err != nil {
		return err
	}
	p.ID = s.nextID
	s.nextID++
	p.Status = models.StatusOngoing
	p.Stages = stages.Seed()
	cp := p.Clone()
	s.projects[p.ID] = &cp
	return nil
}

func (s *memStore) GetProject(_ context.Context, id uint) (*models.Engagement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := p.Clone()
	return &out, nil
}

func (s *memStore) UpdateProject(_ context.Context, id uint, patch models.EngagementPatch) (*models.Engagement, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	patch.Apply(p)
	out := p.Clone()
	return &out, nil
}

func (s *memStore) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.projects, id)
	kept := s.vulns[:0]
	for _, v := range s.vulns {
		if v.ProjectID != id {
			kept = append(kept, v)
		}
	}
	s.vulns = kept
	return nil
}

func (s *memStore) Vulnerabilities(_ context.Context, projectID uint) ([]models.Vulnerability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		return nil, models.ErrNotFound
	}
	var out []models.Vulnerability
	for _, v := range s.vulns {
		if v.ProjectID == projectID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *memStore) CreateVulnerability(_ context.Context, v *models.Vulnerability) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[v.ProjectID]; !ok {
		return models.ErrNotFound
	}
	v.ID = uint(len(s.vulns) + 1)
	s.vulns = append(s.vulns, *v)
	return nil
}

func (s *memStore) UpdateVulnerability(_ context.Context, projectID, id uint, patch models.VulnerabilityPatch) (*models.Vulnerability, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.vulns {
		if s.vulns[i].ID == id && s.vulns[i].ProjectID == projectID {
			patch.Apply(&s.vulns[i])
			out := s.vulns[i]
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *memStore) DeleteVulnerability(_ context.Context, projectID, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.vulns {
		if v.ID == id && v.ProjectID == projectID {
			s.vulns = append(s.vulns[:i], s.vulns[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *memStore) History(_ context.Context, id uint) ([]models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditLog
	for _, a := range s.audit {
		if a.projectID == id {
			out = append(out, models.AuditLog{UserID: a.userID, Entity: "project", EntityID: id, Action: a.action, Details: a.details})
		}
	}
	return out, nil
}

func (s *memStore) RecentAudit(ctx context.Context, limit int) ([]models.AuditLog, error) {
	s.mu.Lock()
	n := len(s.audit)
	s.mu.Unlock()
	out := make([]models.AuditLog, 0, n)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		a := s.audit[i]
		out = append(out, models.AuditLog{UserID: a.userID, EntityID: a.projectID, Action: a.action})
	}
	return out, nil
}

func (s *memStore) Audit(_ context.Context, userID, projectID uint, action, details string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, auditEntry{userID, projectID, action, details})
}

func newProjectsEngine(store Store) *gin.Engine {
	h := &Projects{Store: store}
	r := gin.New()
	r.GET("/api/projects", h.List)
	r.POST("/api/projects", h.Create)
	r.GET("/api/projects/:id", h.Get)
	r.PATCH("/api/projects/:id", h.Update)
	r.DELETE("/api/projects/:id", h.Delete)
	r.GET("/api/projects/:id/history", h.History)
	r.GET("/api/audit", h.ListAuditLogs)
	r.GET("/api/projects/:id/vulnerabilities", h.ListVulnerabilities)
	r.POST("/api/projects/:id/vulnerabilities", h.CreateVulnerability)
	r.PATCH("/api/projects/:id/vulnerabilities/:vid", h.UpdateVulnerability)
	r.DELETE("/api/projects/:id/vulnerabilities/:vid", h.DeleteVulnerability)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	r := newProjectsEngine(store)

	w := do(t, r, http.MethodPost, "/api/projects", gin.H{
		"name":       "ACME web app",
		"start_date": "2024-03-04",
		"end_date":   "2024-03-15",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Engagement](t, w)
	assert.Equal(t, uint(1), created.ID)
	assert.Equal(t, models.KickoffQueued, created.KickoffStatus)
	require.NotNil(t, created.StartDate)
	assert.Equal(t, "2024-03-04", created.StartDate.Format("2006-01-02"))

	w = do(t, r, http.MethodGet, "/api/projects/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.Engagement](t, w)
	assert.Len(t, got.Stages, 15)

	require.Len(t, store.audit, 1)
	assert.Equal(t, "create", store.audit[0].action)
}

func TestCreate_CardFields(t *testing.T) {
	t.Parallel()

	r := newProjectsEngine(newMemStore())

	w := do(t, r, http.MethodPost, "/api/projects", gin.H{
		"name":             "ACME mobile",
		"description":      "Android banking app",
		"technology_type":  "APK",
		"psm_name":         " Dana ",
		"jira_ticket_link": "https://jira.local/browse/PENT-7",
		"pinned_links":     []gin.H{{"label": "Scope", "url": "https://wiki.local/scope"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode[models.Engagement](t, w)
	assert.Equal(t, models.TechAPK, got.TechnologyType)
	assert.Equal(t, models.ReportingNotStarted, got.ReportingStatus)
	assert.Equal(t, "Dana", got.PSMName)
	assert.Equal(t, "Android banking app", got.Description)
	require.Len(t, got.PinnedLinks, 1)

	for _, body := range []gin.H{
		{"name": "ACME", "technology_type": "MAINFRAME"},
		{"name": "ACME", "reporting_status": "later"},
		{"name": "ACME", "sharepoint_link": "sp/sites/x"},
	} {
		assert.Equal(t, http.StatusUnprocessableEntity, do(t, r, http.MethodPost, "/api/projects", body).Code, body)
	}
}

func TestUpdate_CardFields(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	r := newProjectsEngine(store)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/projects", gin.H{"name": "ACME api"}).Code)

	w := do(t, r, http.MethodPatch, "/api/projects/1", gin.H{"reporting_status": "in_progress", "summary": "1 high"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.Engagement](t, w)
	assert.Equal(t, models.ReportingInProgress, got.ReportingStatus)
	assert.Equal(t, "1 high", got.Summary)
	assert.Contains(t, store.audit[len(store.audit)-1].details, "reporting_status")

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, r, http.MethodPatch, "/api/projects/1", gin.H{"jira_ticket_link": "PENT-1"}).Code)
}

func TestCreate_BadInput(t *testing.T) {
	t.Parallel()

	r := newProjectsEngine(newMemStore())

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/projects", "{").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/projects", gin.H{"name": "ab"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/projects", gin.H{"name": "ACME", "start_date": "04.03.2024"}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, r, http.MethodPost, "/api/projects", gin.H{"name": "ACME", "kickoff_status": "someday"}).Code)
}

func TestGet_Errors(t *testing.T) {
	t.Parallel()

	r := newProjectsEngine(newMemStore())

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/api/projects/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/api/projects/0", nil).Code)

	w := do(t, r, http.MethodGet, "/api/projects/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Проект не найден")
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	r := newProjectsEngine(store)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/projects", gin.H{"name": "ACME api"}).Code)

	w := do(t, r, http.MethodPatch, "/api/projects/1", gin.H{"notes": "scope: /v2 only", "kickoff_status": "in_talks"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.Engagement](t, w)
	assert.Equal(t, "scope: /v2 only", got.Notes)
	assert.Equal(t, models.KickoffInTalks, got.KickoffStatus)

	last := store.audit[len(store.audit)-1]
	assert.Equal(t, "update", last.action)
	assert.Contains(t, last.details, "kickoff_status")
	assert.Contains(t, last.details, "notes")
}

func TestUpdate_Errors(t *testing.T) {
	t.Parallel()

	r := newProjectsEngine(newMemStore())
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/projects", gin.H{"name": "ACME api"}).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPatch, "/api/projects/1", "not json").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPatch, "/api/projects/1", gin.H{}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, r, http.MethodPatch, "/api/projects/1", gin.H{"leave_days": -2}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, r, http.MethodPatch, "/api/projects/1", gin.H{"status": "archived"}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPatch, "/api/projects/9", gin.H{"notes": "x"}).Code)
}

func TestListDeleteHistory(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	r := newProjectsEngine(store)
	for _, name := range []string{"first", "second"} {
		require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/projects", gin.H{"name": name}).Code)
	}
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPatch, "/api/projects/1", gin.H{"status": "past"}).Code)

	ongoing := decode[[]models.Engagement](t, do(t, r, http.MethodGet, "/api/projects?status=ongoing", nil))
	require.Len(t, ongoing, 1)
	assert.Equal(t, "second", ongoing[0].Name)

	history := decode[[]models.AuditLog](t, do(t, r, http.MethodGet, "/api/projects/1/history", nil))
	require.Len(t, history, 2)
	assert.Equal(t, "update", history[1].Action)

	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/api/projects/2", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/api/projects/2", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/projects/2/history", nil).Code)

	recent := decode[[]models.AuditLog](t, do(t, r, http.MethodGet, "/api/audit", nil))
	require.NotEmpty(t, recent)
	assert.Equal(t, "delete", recent[0].Action)
}

func TestList_InternalError(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.failWith = errors.New("connection reset")
	r := newProjectsEngine(store)

	w := do(t, r, http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestList_EmptyIsArray(t *testing.T) {
	t.Parallel()

	w := do(t, newProjectsEngine(newMemStore()), http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestVulnerabilities(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	r := newProjectsEngine(store)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/projects", gin.H{"name": "ACME web"}).Code)

	w := do(t, r, http.MethodGet, "/api/projects/1/vulnerabilities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = do(t, r, http.MethodPost, "/api/projects/1/vulnerabilities", gin.H{"type": "IDOR on /orders", "severity": "high"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Vulnerability](t, w)
	assert.Equal(t, models.VulnOpen, created.Status)
	assert.Equal(t, uint(1), created.ProjectID)

	w = do(t, r, http.MethodPatch, "/api/projects/1/vulnerabilities/1", gin.H{"status": "resolved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.VulnResolved, decode[models.Vulnerability](t, w).Status)

	list := decode[[]models.Vulnerability](t, do(t, r, http.MethodGet, "/api/projects/1/vulnerabilities", nil))
	require.Len(t, list, 1)

	history := decode[[]models.AuditLog](t, do(t, r, http.MethodGet, "/api/projects/1/history", nil))
	require.Len(t, history, 3)
	assert.Contains(t, history[1].Details, "IDOR on /orders")
	assert.Contains(t, history[2].Details, "status")

	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/api/projects/1/vulnerabilities/1", nil).Code)
	w = do(t, r, http.MethodDelete, "/api/projects/1/vulnerabilities/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Уязвимость не найдена")
}

func TestVulnerabilities_BadInput(t *testing.T) {
	t.Parallel()

	r := newProjectsEngine(newMemStore())
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/projects", gin.H{"name": "ACME web"}).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/projects/1/vulnerabilities", gin.H{"severity": "high"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/projects/1/vulnerabilities", gin.H{"type": "XSS", "severity": "urgent"}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, r, http.MethodPost, "/api/projects/1/vulnerabilities", gin.H{"type": "XSS", "severity": "low", "status": "fixed"}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPost, "/api/projects/7/vulnerabilities", gin.H{"type": "XSS", "severity": "low"}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/projects/7/vulnerabilities", nil).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPatch, "/api/projects/1/vulnerabilities/x", gin.H{"status": "open"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPatch, "/api/projects/1/vulnerabilities/1", gin.H{}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, r, http.MethodPatch, "/api/projects/1/vulnerabilities/1", gin.H{"severity": "urgent"}).Code)
}

func TestDelete_DropsVulnerabilities(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	r := newProjectsEngine(store)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/projects", gin.H{"name": "ACME web"}).Code)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/projects/1/vulnerabilities", gin.H{"type": "XSS", "severity": "medium"}).Code)

	require.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/api/projects/1", nil).Code)
	assert.Empty(t, store.vulns)
}
