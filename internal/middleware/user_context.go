package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"engagement-tracker/internal/models"
)

const (
	CurrentUserIDKey = "CurrentUserID"
	CurrentRoleKey   = "CurrentRole"
	RequestIDKey     = "RequestID"
	RequestIDHeader  = "X-Request-ID"
)

// InjectUser кладёт id и роль из сессии в контекст запроса.
func InjectUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uid, ok := sess.Get("user_id").(uint); ok && uid > 0 {
			c.Set(CurrentUserIDKey, uid)
			if role, ok := sess.Get("role").(string); ok {
				c.Set(CurrentRoleKey, models.UserRole(role))
			}
		}

		c.Next()
	}
}

// RequestID берёт X-Request-ID клиента или выдаёт новый.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// CurrentUserID: 0, если пользователь не вошёл.
func CurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get(CurrentUserIDKey); ok {
		if uid, ok := v.(uint); ok {
			return uid
		}
	}
	return 0
}
