package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/zapsales/supervision-api/internal/interfaces/httpserver/handlers"
	v1 "github.com/zapsales/supervision-api/internal/interfaces/httpserver/routes/v1"
)

// Provider holds all route providers.
type Provider struct {
	V1 *v1.Routes
}

func NewProvider(handlerProvider *handlers.Provider) *Provider {
	return &Provider{V1: v1.NewRoutes(handlerProvider)}
}

func (p *Provider) Register(engine *gin.Engine) {
	p.V1.Register(engine)
}
