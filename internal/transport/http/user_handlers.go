package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pawsit-server/internal/core"
)

// UserHandlers provides HTTP handlers for presence queries.
type UserHandlers struct {
	router *core.Router
	log    *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(router *core.Router, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		router: router,
		log:    logger,
	}
}

// OnlineResponse lists connected user ids.
type OnlineResponse struct {
	Users []string `json:"users"`
}

// Online returns the ids of users with a live socket.
// GET /api/online
func (h *UserHandlers) Online(c *gin.Context) {
	users := h.router.Online()
	if users == nil {
		users = []string{}
	}
	c.JSON(http.StatusOK, OnlineResponse{Users: users})
}
