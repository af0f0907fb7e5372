package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pawsit-server/internal/core"
	"github.com/vovakirdan/pawsit-server/internal/service/requests"
	"github.com/vovakirdan/pawsit-server/internal/store"
)

// RequestHandlers provides HTTP handlers for sitting requests and contacts.
type RequestHandlers struct {
	service *requests.Service
	users   store.UserStore
	router  *core.Router
	log     *zerolog.Logger
}

// NewRequestHandlers creates a new request handlers instance.
func NewRequestHandlers(svc *requests.Service, users store.UserStore, router *core.Router, logger *zerolog.Logger) *RequestHandlers {
	return &RequestHandlers{
		service: svc,
		users:   users,
		router:  router,
		log:     logger,
	}
}

// SendSittingRequest represents the request body for sending a sitting request.
type SendSittingRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// SittingRequestResponse represents a sitting request in API responses.
type SittingRequestResponse struct {
	ID         int64  `json:"id"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
	// Username of the other party, when it can be resolved.
	OtherUsername string `json:"other_username,omitempty"`
}

// ContactResponse is one accepted counterpart.
type ContactResponse struct {
	User   *UserResponse `json:"user"`
	Since  string        `json:"since"`
	Online bool          `json:"online"`
}

func (h *RequestHandlers) requestToResponse(c *gin.Context, r *store.SittingRequest, currentUserID int64) SittingRequestResponse {
	resp := SittingRequestResponse{
		ID:         r.ID,
		FromUserID: strconv.FormatInt(r.FromUserID, 10),
		ToUserID:   strconv.FormatInt(r.ToUserID, 10),
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  r.UpdatedAt.Format(time.RFC3339),
	}

	otherUserID := r.ToUserID
	if otherUserID == currentUserID {
		otherUserID = r.FromUserID
	}
	if user, err := h.users.GetUserByID(c.Request.Context(), otherUserID); err == nil {
		resp.OtherUsername = user.Username
	}
	return resp
}

// SendRequest handles sending a sitting request.
// POST /api/requests
func (h *RequestHandlers) SendRequest(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendSittingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid sitting request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	created, err := h.service.SendRequest(c.Request.Context(), uid, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, requests.ErrCannotRequestSelf):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, requests.ErrAlreadyContacts), errors.Is(err, requests.ErrRequestAlreadyExists):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		case errors.Is(err, requests.ErrUserNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		default:
			h.log.Error().Err(err).Int64("from_user_id", uid).Int64("to_user_id", req.UserID).Msg("failed to send sitting request")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Int64("from_user_id", uid).Int64("to_user_id", req.UserID).Msg("sitting request sent")
	c.JSON(http.StatusCreated, h.requestToResponse(c, created, uid))
}

// ListIncoming lists pending requests addressed to the caller.
// GET /api/requests
func (h *RequestHandlers) ListIncoming(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	incoming, err := h.service.ListIncoming(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list sitting requests")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]SittingRequestResponse, 0, len(incoming))
	for _, r := range incoming {
		response = append(response, h.requestToResponse(c, r, uid))
	}
	c.JSON(http.StatusOK, response)
}

// AcceptRequest accepts a pending request from :userId.
// POST /api/requests/:userId/accept
func (h *RequestHandlers) AcceptRequest(c *gin.Context) {
	h.answer(c, "accepted", h.service.AcceptRequest)
}

// RejectRequest rejects a pending request from :userId.
// POST /api/requests/:userId/reject
func (h *RequestHandlers) RejectRequest(c *gin.Context) {
	h.answer(c, "rejected", h.service.RejectRequest)
}

func (h *RequestHandlers) answer(c *gin.Context, outcome string, apply func(ctx context.Context, userID, fromUserID int64) error) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	fromID, ok := parseUserParam(c)
	if !ok {
		return
	}

	if err := apply(c.Request.Context(), uid, fromID); err != nil {
		if errors.Is(err, requests.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "sitting request not found"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", uid).Int64("from_user_id", fromID).Str("outcome", outcome).Msg("failed to answer sitting request")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("user_id", uid).Int64("from_user_id", fromID).Str("outcome", outcome).Msg("sitting request answered")
	c.JSON(http.StatusOK, gin.H{"status": outcome})
}

// ListContacts lists users with an accepted request and their presence.
// GET /api/contacts
func (h *RequestHandlers) ListContacts(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	contacts, err := h.service.ListContacts(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list contacts")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ContactResponse, 0, len(contacts))
	for _, ct := range contacts {
		response = append(response, ContactResponse{
			User:   userToResponse(ct.User),
			Since:  ct.Request.UpdatedAt.Format(time.RFC3339),
			Online: h.router.IsOnline(ct.User.IDString()),
		})
	}
	c.JSON(http.StatusOK, response)
}
