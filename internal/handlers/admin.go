package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/converse/internal/services"
)

type AdminHandler struct {
	admin *services.AdminService
}

func NewAdminHandler(admin *services.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListRooms returns all rooms including soft-deleted ones. ?deleted=1
// narrows to deleted rooms only.
func (h *AdminHandler) ListRooms(c *gin.Context) {
	rooms, err := h.admin.ListRooms(c.Query("deleted") == "1")
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *AdminHandler) RestoreRoom(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}

	room, err := h.admin.RestoreRoom(c.Request.Context(), roomID, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *AdminHandler) ForceDeleteRoom(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}

	if err := h.admin.ForceDeleteRoom(c.Request.Context(), roomID, userID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RoomMessages is the moderation timeline: deleted rows included, original
// content visible.
func (h *AdminHandler) RoomMessages(c *gin.Context) {
	_, roomID, ok := roomRequest(c)
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

	messages, err := h.admin.RoomMessages(roomID, limit, before)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *AdminHandler) DeleteMessage(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}
	messageID, ok := messageParam(c)
	if !ok {
		return
	}

	if err := h.admin.DeleteMessage(c.Request.Context(), roomID, messageID, userID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) RestoreMessage(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}
	messageID, ok := messageParam(c)
	if !ok {
		return
	}

	msg, err := h.admin.RestoreMessage(c.Request.Context(), roomID, messageID, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *AdminHandler) ForceDeleteMessage(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}
	messageID, ok := messageParam(c)
	if !ok {
		return
	}

	if err := h.admin.ForceDeleteMessage(c.Request.Context(), roomID, messageID, userID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) Activity(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := parsePositive(raw); err == nil {
			limit = n
		}
	}

	entries, err := h.admin.RecentActivity(limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries})
}
