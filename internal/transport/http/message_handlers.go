package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pawsit-server/internal/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// MessageHandlers serves conversation history from the message store.
type MessageHandlers struct {
	messages store.MessageStore
	log      *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(messages store.MessageStore, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		messages: messages,
		log:      logger,
	}
}

// MessageResponse represents a persisted message in API responses.
type MessageResponse struct {
	ID          int64  `json:"id"`
	Sender      string `json:"sender"`
	RecipientID string `json:"recipientId"`
	Message     string `json:"message"`
	IsRead      bool   `json:"isRead"`
	CreatedAt   string `json:"created_at"`
}

// MarkReadResponse reports how many messages were flagged.
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

func messageToResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:          m.ID,
		Sender:      strconv.FormatInt(m.SenderID, 10),
		RecipientID: strconv.FormatInt(m.RecipientID, 10),
		Message:     m.Body,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
}

func parseUserParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return 0, false
	}
	return id, true
}

// History lists the conversation between the caller and another user.
// GET /api/messages/:userId?limit=50&before=123
func (h *MessageHandlers) History(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	otherID, ok := parseUserParam(c)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	var before *int64
	if raw := c.Query("before"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before"})
			return
		}
		before = &n
	}

	msgs, err := h.messages.ListConversation(c.Request.Context(), uid, otherID, limit, before)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Int64("other_id", otherID).Msg("failed to list conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		response = append(response, messageToResponse(m))
	}
	c.JSON(http.StatusOK, response)
}

// MarkRead flags messages from another user to the caller as read.
// POST /api/messages/:userId/read
func (h *MessageHandlers) MarkRead(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	senderID, ok := parseUserParam(c)
	if !ok {
		return
	}

	n, err := h.messages.MarkRead(c.Request.Context(), uid, senderID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Int64("sender_id", senderID).Msg("failed to mark read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, MarkReadResponse{Updated: n})
}
