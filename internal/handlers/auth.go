package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"engagement-tracker/internal/logging"
	"engagement-tracker/internal/middleware"
	"engagement-tracker/internal/models"
)

type UserStore interface {
	FindByUsername(username string) (*models.User, error)
}

type Auth struct {
	Users UserStore
}

type loginForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Auth) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Некорректные данные")
		return
	}

	user, err := h.Users.FindByUsername(strings.TrimSpace(form.Username))
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			renderError(c, err)
			return
		}
		loginFailed(c, form.Username)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)); err != nil {
		loginFailed(c, form.Username)
		return
	}

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	sess.Set("role", string(user.Role))
	if err := sess.Save(); err != nil {
		renderError(c, err)
		return
	}

	render(c, http.StatusOK, user)
}

func (h *Auth) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.Status(http.StatusNoContent)
}

func (h *Auth) Me(c *gin.Context) {
	role, _ := c.Get(middleware.CurrentRoleKey)
	r, _ := role.(models.UserRole)
	render(c, http.StatusOK, gin.H{
		"id":       middleware.CurrentUserID(c),
		"role":     r,
		"can_edit": r.CanEdit(),
	})
}

func loginFailed(c *gin.Context, username string) {
	logging.New("auth").Warn("login failed",
		"user", maskEmail(strings.TrimSpace(username)),
		"request_id", c.GetString(middleware.RequestIDKey),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Неверный логин или пароль"})
}

// maskEmail: "engineer@pentest.local" -> "en***@pentest.local".
func maskEmail(email string) string {
	runes := []rune(email)
	atIdx := -1
	for i, r := range runes {
		if r == '@' {
			atIdx = i
			break
		}
	}
	if atIdx <= 0 {
		return "***"
	}
	prefix := string(runes[:atIdx])
	domain := string(runes[atIdx:])
	if len(prefix) <= 2 {
		return prefix + "***" + domain
	}
	return string(runes[0:2]) + "***" + domain
}
