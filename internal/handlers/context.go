package handlers

import (
	"net/http"

	"task-market/backend/internal/models"
	"task-market/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

// Actor is the authenticated caller as placed in the gin context by the auth
// middleware.
type Actor struct {
	ID    uuid.UUID
	Role  string
	Mode  string
	Admin bool
}

func actorFromContext(c *gin.Context) (Actor, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return Actor{}, false
	}
	idStr, ok := raw.(string)
	if !ok {
		return Actor{}, false
	}
	id, err := uuid.FromString(idStr)
	if err != nil {
		return Actor{}, false
	}

	role, _ := c.Get("role")
	roleStr, _ := role.(string)
	mode, _ := c.Get("mode")
	modeStr, _ := mode.(string)

	return Actor{
		ID:    id,
		Role:  roleStr,
		Mode:  modeStr,
		Admin: roleStr == models.RoleAdmin,
	}, true
}

func requireActor(c *gin.Context) (Actor, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return Actor{}, false
	}
	return actor, true
}

// viewerFromContext builds the visibility viewer; unauthenticated callers get
// the zero viewer and see only the public catalog.
func viewerFromContext(c *gin.Context) services.Viewer {
	actor, ok := actorFromContext(c)
	if !ok {
		return services.AnonymousViewer
	}
	if actor.Admin {
		return services.AdminViewer(actor.ID)
	}
	return services.UserViewer(actor.ID)
}
