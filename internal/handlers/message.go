package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thereayou/converse/internal/files"
	"github.com/thereayou/converse/internal/handlers/dto"
	"github.com/thereayou/converse/internal/models"
	"github.com/thereayou/converse/internal/services"
)

type MessageHandler struct {
	messages *services.MessageService
	storage  *files.Storage
}

func NewMessageHandler(messages *services.MessageService, storage *files.Storage) *MessageHandler {
	return &MessageHandler{messages: messages, storage: storage}
}

// Send accepts JSON for text messages and multipart/form-data when files are
// attached.
func (h *MessageHandler) Send(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	var attachments []models.Attachment

	if form, err := c.MultipartForm(); err == nil && form != nil {
		req.Content = c.PostForm("content")
		req.Type = c.PostForm("type")
		req.ReplyToMessageID = c.PostForm("reply_to_message_id")

		if headers := form.File["files"]; len(headers) > 0 {
			attachments, err = h.storage.SaveAll(c, roomID, headers)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := services.SendMessageInput{
		Content:     req.Content,
		Type:        req.Type,
		Attachments: attachments,
	}
	if req.ReplyToMessageID != "" {
		replyID, err := uuid.Parse(req.ReplyToMessageID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reply id"})
			return
		}
		in.ReplyToMessageID = &replyID
	}

	msg, err := h.messages.Send(c.Request.Context(), roomID, userID, in)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *MessageHandler) List(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := parsePositive(raw); err == nil {
			limit = n
		}
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before timestamp"})
			return
		}
		before = &t
	}

	messages, err := h.messages.List(roomID, userID, limit, before)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *MessageHandler) Edit(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}
	messageID, ok := messageParam(c)
	if !ok {
		return
	}

	var req dto.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.Edit(c.Request.Context(), roomID, messageID, userID, req.Content)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *MessageHandler) Delete(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}
	messageID, ok := messageParam(c)
	if !ok {
		return
	}

	if err := h.messages.Delete(c.Request.Context(), roomID, messageID, userID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}
	messageID, ok := messageParam(c)
	if !ok {
		return
	}

	if err := h.messages.MarkRead(roomID, messageID, userID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *MessageHandler) ReadStatus(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}
	messageID, ok := messageParam(c)
	if !ok {
		return
	}

	status, err := h.messages.ReadStatusOf(roomID, messageID, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Typing broadcasts an ephemeral indicator. The X-Socket-ID header names the
// sending connection so it is excluded from delivery.
func (h *MessageHandler) Typing(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}

	var req dto.TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var socketID uuid.UUID
	if raw := c.GetHeader("X-Socket-ID"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			socketID = id
		}
	}

	if err := h.messages.Typing(c.Request.Context(), roomID, userID, req.IsTyping, socketID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func messageParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("messageID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return uuid.Nil, false
	}
	return id, true
}

func parsePositive(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
