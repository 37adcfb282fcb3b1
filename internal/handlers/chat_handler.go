package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/services"
	"github.com/SAP-F-2025/educheck-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// streamHeartbeat keeps idle SSE connections open through proxies.
const streamHeartbeat = 25 * time.Second

type ChatHandler struct {
	BaseHandler
	chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService, logger utils.Logger) *ChatHandler {
	return &ChatHandler{
		BaseHandler: NewBaseHandler(logger),
		chatService: chatService,
	}
}

// ListConversations lists the caller's chats, most recent first
// @Summary List conversations
// @Tags chats
// @Produce json
// @Success 200 {array} services.ConversationSummary
// @Router /chats [get]
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	conversations, err := h.chatService.Conversations(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversations)
}

// Unread returns unread message counts
// @Summary Unread messages
// @Tags chats
// @Produce json
// @Success 200 {object} services.UnreadSummary
// @Router /chats/unread [get]
func (h *ChatHandler) Unread(c *gin.Context) {
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	summary, err := h.chatService.Unread(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// OpenConversation returns the conversation with a user and marks it read
// @Summary Open conversation
// @Tags chats
// @Produce json
// @Param user_id path string true "Other participant"
// @Success 200 {object} services.Conversation
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /chats/{user_id} [get]
func (h *ChatHandler) OpenConversation(c *gin.Context) {
	otherID := ParseStringIDParam(c, "user_id")
	if otherID == "" {
		return
	}
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	conversation, err := h.chatService.Open(c.Request.Context(), userID, otherID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// SendMessage sends a message to a user
// @Summary Send message
// @Tags chats
// @Accept json
// @Produce json
// @Param user_id path string true "Receiver"
// @Param message body services.SendMessageRequest true "Message"
// @Success 201 {object} models.ChatMessage
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /chats/{user_id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	otherID := ParseStringIDParam(c, "user_id")
	if otherID == "" {
		return
	}
	var req services.SendMessageRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	msg, err := h.chatService.Send(c.Request.Context(), userID, otherID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// MarkRead marks the messages received from a user as read
// @Summary Mark conversation read
// @Tags chats
// @Produce json
// @Param user_id path string true "Other participant"
// @Success 200 {object} map[string]int
// @Router /chats/{user_id}/read [post]
func (h *ChatHandler) MarkRead(c *gin.Context) {
	otherID := ParseStringIDParam(c, "user_id")
	if otherID == "" {
		return
	}
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	marked, err := h.chatService.MarkRead(c.Request.Context(), userID, otherID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// Stream pushes new messages and read receipts as server-sent events
// @Summary Chat event stream
// @Tags chats
// @Produce text/event-stream
// @Success 200
// @Router /chats/stream [get]
func (h *ChatHandler) Stream(c *gin.Context) {
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	live, err := h.chatService.Stream(ctx, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	h.LogRequest(c, "Chat stream opened")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, open := <-live:
			if !open {
				return false
			}
			c.SSEvent(string(event.Kind), event)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UnixMilli())
			return true
		}
	})
	h.LogRequest(c, "Chat stream closed")
}
