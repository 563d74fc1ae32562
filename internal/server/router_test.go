package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"engagement-tracker/internal/config"
	"engagement-tracker/internal/models"
)

type stubStore struct{}

func (stubStore) List(context.Context, models.EngagementStatus) ([]models.Engagement, error) {
	return nil, nil
}
func (stubStore) Create(_ context.Context, p *models.Engagement) error { p.ID = 1; return nil }
func (stubStore) GetProject(_ context.Context, id uint) (*models.Engagement, error) {
	return &models.Engagement{ID: id, Name: "ACME"}, nil
}
func (stubStore) UpdateProject(_ context.Context, id uint, _ models.EngagementPatch) (*models.Engagement, error) {
	return &models.Engagement{ID: id, Name: "ACME"}, nil
}
func (stubStore) Delete(context.Context, uint) error                       { return nil }
func (stubStore) History(context.Context, uint) ([]models.AuditLog, error) { return nil, nil }
func (stubStore) RecentAudit(context.Context, int) ([]models.AuditLog, error) {
	return nil, nil
}
func (stubStore) Audit(context.Context, uint, uint, string, string) {}
func (stubStore) Vulnerabilities(context.Context, uint) ([]models.Vulnerability, error) {
	return nil, nil
}
func (stubStore) CreateVulnerability(_ context.Context, v *models.Vulnerability) error {
	v.ID = 1
	return nil
}
func (stubStore) UpdateVulnerability(_ context.Context, projectID, id uint, _ models.VulnerabilityPatch) (*models.Vulnerability, error) {
	return &models.Vulnerability{ID: id, ProjectID: projectID}, nil
}
func (stubStore) DeleteVulnerability(context.Context, uint, uint) error { return nil }

type stubUsers map[string]*models.User

func (s stubUsers) FindByUsername(name string) (*models.User, error) {
	if u, ok := s[name]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("pass"), bcrypt.MinCost)
	require.NoError(t, err)
	users := stubUsers{}
	for i, role := range []models.UserRole{models.RoleAdmin, models.RoleEngineer, models.RoleViewer} {
		users[string(role)] = &models.User{ID: uint(i + 1), Username: string(role), PasswordHash: string(hash), Role: role}
	}
	return NewRouter(&config.Config{SessionSecret: "test-secret"}, stubStore{}, users)
}

func login(t *testing.T, r *gin.Engine, username string) []*http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"`+username+`","password":"pass"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return w.Result().Cookies()
}

func call(r *gin.Engine, method, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	body := ""
	if method == http.MethodPatch || method == http.MethodPost {
		body = `{"name":"ACME web","notes":"n"}`
		if strings.Contains(path, "/vulnerabilities") {
			body = `{"type":"XSS","severity":"high","status":"open"}`
		}
	}
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t)
	w := call(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_RequiresLogin(t *testing.T) {
	r := newTestRouter(t)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/projects", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPatch, "/api/projects/1", nil).Code)
}

func TestRouter_Roles(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		user, method, path string
		want               int
	}{
		{"viewer", http.MethodGet, "/api/projects/1", http.StatusOK},
		{"viewer", http.MethodPatch, "/api/projects/1", http.StatusForbidden},
		{"viewer", http.MethodGet, "/api/audit", http.StatusOK},
		{"engineer", http.MethodPatch, "/api/projects/1", http.StatusOK},
		{"engineer", http.MethodPost, "/api/projects", http.StatusCreated},
		{"engineer", http.MethodDelete, "/api/projects/1", http.StatusForbidden},
		{"engineer", http.MethodGet, "/api/audit", http.StatusForbidden},
		{"admin", http.MethodDelete, "/api/projects/1", http.StatusNoContent},

		{"viewer", http.MethodGet, "/api/projects/1/vulnerabilities", http.StatusOK},
		{"viewer", http.MethodPost, "/api/projects/1/vulnerabilities", http.StatusForbidden},
		{"viewer", http.MethodDelete, "/api/projects/1/vulnerabilities/1", http.StatusForbidden},
		{"engineer", http.MethodPost, "/api/projects/1/vulnerabilities", http.StatusCreated},
		{"engineer", http.MethodPatch, "/api/projects/1/vulnerabilities/1", http.StatusOK},
		{"engineer", http.MethodDelete, "/api/projects/1/vulnerabilities/1", http.StatusNoContent},
	}
	for _, tc := range cases {
		cookies := login(t, r, tc.user)
		w := call(r, tc.method, tc.path, cookies)
		assert.Equal(t, tc.want, w.Code, "%s %s %s: %s", tc.user, tc.method, tc.path, w.Body.String())
	}
}
