// Package client: REST-клиент сервера проектов для engagectl.
// Реализует engagement.Store: ошибки сводятся к models.ErrNotFound,
// models.ErrValidation и models.ErrNetwork.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"engagement-tracker/internal/logging"
	"engagement-tracker/internal/models"
)

// APIError: ответ сервера с кодом не 2xx.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return models.ErrNotFound
	case e.Status == http.StatusBadRequest, e.Status == http.StatusUnprocessableEntity:
		return models.ErrValidation
	case e.Status >= 500:
		return models.ErrNetwork
	}
	return nil
}

type Client struct {
	base *url.URL
	http *http.Client
	log  *log.Logger
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	// cookiejar.New с nil options не возвращает ошибку
	jar, _ := cookiejar.New(nil)
	return &Client{
		base: u,
		http: &http.Client{Timeout: timeout, Jar: jar},
		log:  logging.New("client"),
	}, nil
}

// Login открывает сессию; cookie хранится в клиенте.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, &user); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &user, nil
}

func (c *Client) List(ctx context.Context, status models.EngagementStatus) ([]models.Engagement, error) {
	path := "/api/projects"
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}
	var out []models.Engagement
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func (c *Client) GetProject(ctx context.Context, id uint) (*models.Engagement, error) {
	var out models.Engagement
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return &out, nil
}

func (c *Client) UpdateProject(ctx context.Context, id uint, patch models.EngagementPatch) (*models.Engagement, error) {
	var out models.Engagement
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/projects/%d", id), patch, &out); err != nil {
		return nil, fmt.Errorf("update project %d: %w", id, err)
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context, id uint) ([]models.AuditLog, error) {
	var out []models.AuditLog
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d/history", id), nil, &out); err != nil {
		return nil, fmt.Errorf("project %d history: %w", id, err)
	}
	return out, nil
}

func (c *Client) Vulnerabilities(ctx context.Context, projectID uint) ([]models.Vulnerability, error) {
	var out []models.Vulnerability
	if err := c.do(ctx, http.MethodGet, vulnPath(projectID, 0), nil, &out); err != nil {
		return nil, fmt.Errorf("project %d vulnerabilities: %w", projectID, err)
	}
	return out, nil
}

// CreateVulnerability заполняет v ответом сервера (ID, статус по умолчанию).
func (c *Client) CreateVulnerability(ctx context.Context, v *models.Vulnerability) error {
	if err := c.do(ctx, http.MethodPost, vulnPath(v.ProjectID, 0), v, v); err != nil {
		return fmt.Errorf("add vulnerability to project %d: %w", v.ProjectID, err)
	}
	return nil
}

func (c *Client) UpdateVulnerability(ctx context.Context, projectID, id uint, patch models.VulnerabilityPatch) (*models.Vulnerability, error) {
	var out models.Vulnerability
	if err := c.do(ctx, http.MethodPatch, vulnPath(projectID, id), patch, &out); err != nil {
		return nil, fmt.Errorf("update vulnerability %d: %w", id, err)
	}
	return &out, nil
}

func (c *Client) DeleteVulnerability(ctx context.Context, projectID, id uint) error {
	if err := c.do(ctx, http.MethodDelete, vulnPath(projectID, id), nil, nil); err != nil {
		return fmt.Errorf("delete vulnerability %d: %w", id, err)
	}
	return nil
}

func vulnPath(projectID, id uint) string {
	if id == 0 {
		return fmt.Sprintf("/api/projects/%d/vulnerabilities", projectID)
	}
	return fmt.Sprintf("/api/projects/%d/vulnerabilities/%d", projectID, id)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", models.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", models.ErrNetwork, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error     string `json:"error"`
		RequestID string `json:"request_id"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &payload); err == nil {
		apiErr.Message = payload.Error
		apiErr.RequestID = payload.RequestID
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// IsUnauthorized: сессии нет или она истекла.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
