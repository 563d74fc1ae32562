package server

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"engagement-tracker/internal/config"
	"engagement-tracker/internal/handlers"
	"engagement-tracker/internal/middleware"
	"engagement-tracker/internal/models"
)

func NewRouter(cfg *config.Config, store handlers.Store, users handlers.UserStore) *gin.Engine {
	r := gin.Default()

	sessStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessStore.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 12 * 3600})
	r.Use(sessions.Sessions("engagement_session", sessStore))

	r.Use(middleware.RequestID())
	r.Use(middleware.InjectUser())

	projects := &handlers.Projects{Store: store}
	auth := &handlers.Auth{Users: users}

	api := r.Group("/api")

	// AUTH
	api.POST("/login", auth.Login)
	api.POST("/logout", auth.Logout)

	authed := api.Group("/")
	authed.Use(middleware.RequireAuth())

	authed.GET("/me", auth.Me)

	// ПРОЕКТЫ
	authed.GET("/projects", projects.List)
	authed.GET("/projects/:id", projects.Get)
	authed.GET("/projects/:id/history", projects.History)

	// изменения: админ и инженеры
	authed.POST("/projects",
		middleware.RequireRole(models.RoleAdmin, models.RoleEngineer),
		projects.Create,
	)
	authed.PATCH("/projects/:id",
		middleware.RequireRole(models.RoleAdmin, models.RoleEngineer),
		projects.Update,
	)

	// удаление: только админ
	authed.DELETE("/projects/:id",
		middleware.RequireRole(models.RoleAdmin),
		projects.Delete,
	)

	// УЯЗВИМОСТИ ПРОЕКТА
	authed.GET("/projects/:id/vulnerabilities", projects.ListVulnerabilities)
	authed.POST("/projects/:id/vulnerabilities",
		middleware.RequireRole(models.RoleAdmin, models.RoleEngineer),
		projects.CreateVulnerability,
	)
	authed.PATCH("/projects/:id/vulnerabilities/:vid",
		middleware.RequireRole(models.RoleAdmin, models.RoleEngineer),
		projects.UpdateVulnerability,
	)
	authed.DELETE("/projects/:id/vulnerabilities/:vid",
		middleware.RequireRole(models.RoleAdmin, models.RoleEngineer),
		projects.DeleteVulnerability,
	)

	// АУДИТ
	authed.GET("/audit",
		middleware.RequireRole(models.RoleAdmin, models.RoleViewer),
		projects.ListAuditLogs,
	)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}
