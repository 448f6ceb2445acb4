package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/zapsales/supervision-api/internal/interfaces/httpserver/handlers"
)

// Routes holds the v1 route configuration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{handlers: handlerProvider}
}

// Register mounts every v1 route under /v1.
func (r *Routes) Register(engine *gin.Engine) {
	v1 := engine.Group("/v1")
	RegisterConversationRoutes(v1, r.handlers.Conversation, r.handlers.Stream)
}
