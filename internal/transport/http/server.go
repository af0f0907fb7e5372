package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pawsit-server/internal/auth"
	"github.com/vovakirdan/pawsit-server/internal/config"
	"github.com/vovakirdan/pawsit-server/internal/core"
	"github.com/vovakirdan/pawsit-server/internal/service/requests"
	"github.com/vovakirdan/pawsit-server/internal/store"
)

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Auth     *auth.Service
	Router   *core.Router
	Store    store.Store
	Requests *requests.Service
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// NewServer builds an HTTP server with REST and WebSocket routes.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(deps, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler builds the route table. The WebSocket endpoint is mounted on the
// plain mux because gin marks the response written before the upgrade can hijack it.
func NewHandler(deps Deps, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(deps.Auth, deps.Store, logger)
	messageHandlers := NewMessageHandlers(deps.Store, logger)
	userHandlers := NewUserHandlers(deps.Router, logger)
	requestHandlers := NewRequestHandlers(deps.Requests, deps.Store, deps.Router, logger)

	api := engine.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)
	api.POST("/refresh", apiHandlers.Refresh)

	protected := api.Group("")
	protected.Use(AuthMiddleware(deps.Auth, logger))
	protected.GET("/me", apiHandlers.Me)
	protected.GET("/online", userHandlers.Online)

	protected.GET("/messages/:userId", messageHandlers.History)
	protected.POST("/messages/:userId/read", messageHandlers.MarkRead)

	protected.POST("/requests", requestHandlers.SendRequest)
	protected.GET("/requests", requestHandlers.ListIncoming)
	protected.POST("/requests/:userId/accept", requestHandlers.AcceptRequest)
	protected.POST("/requests/:userId/reject", requestHandlers.RejectRequest)
	protected.GET("/contacts", requestHandlers.ListContacts)

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(deps.Router, cfg, logger))
	mux.Handle("/", engine)
	return mux
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
