package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"accountability.app/coachflow/common/logger"
	"accountability.app/coachflow/internal/model"
)

const (
	HeaderActorRole = "X-Actor-Role"
	HeaderActorName = "X-Actor-Name"

	actorKey = "coachflow.actor"
)

// DeclaredActor reads the caller-declared role and name. Requests without a
// role pass through anonymously; an unknown role is rejected.
func DeclaredActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderActorRole))
		if raw == "" {
			c.Next()
			return
		}

		role, err := model.ParseRole(raw)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "unknown actor role", "role", raw)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		actor := model.Actor{Role: role, Name: strings.TrimSpace(c.GetHeader(HeaderActorName))}
		c.Set(actorKey, actor)
		c.Request = c.Request.WithContext(logger.WithLogFields(c.Request.Context(), logger.LogFields{
			ActorRole: logger.Ptr(string(role)),
		}))
		c.Next()
	}
}

// RequireActor rejects requests that did not declare a role.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ActorFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": HeaderActorRole + " header is required"})
			return
		}
		c.Next()
	}
}

func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
