package api

import (
	"github.com/gin-gonic/gin"

	"github.com/example/flashcards/internal/logger"
)

// RouterConfig holds what NewRouter wires into the gin engine
type RouterConfig struct {
	Handler      *Handler
	AllowOrigins []string
	Log          *logger.Logger
}

// NewRouter builds the gin engine with recovery, request logging and CORS
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Log))
	r.Use(CORS(cfg.AllowOrigins))

	h := cfg.Handler

	// Health
	r.GET("/health", h.Health)

	// Item graph
	g := r.Group("/graph")
	{
		g.GET("/parents", h.ParentsGraph)
		g.GET("/children", h.ChildrenGraph)
		g.GET("/leaves", h.Leaves)
	}

	// Translation
	r.GET("/items", h.Items)
	r.GET("/identifiers", h.Identifiers)

	// Objects
	o := r.Group("/objects")
	{
		o.GET("/:type", h.ListObjects)
		o.GET("/:type/:id", h.ShowObject)
	}

	// Practice
	r.GET("/practice", h.Practice)

	return r
}
