package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thereayou/converse/internal/files"
	"github.com/thereayou/converse/internal/handlers/dto"
	"github.com/thereayou/converse/internal/services"
)

// GroupHandler covers membership management on group rooms.
type GroupHandler struct {
	rooms   *services.RoomService
	storage *files.Storage
}

func NewGroupHandler(rooms *services.RoomService, storage *files.Storage) *GroupHandler {
	return &GroupHandler{rooms: rooms, storage: storage}
}

func (h *GroupHandler) AddMember(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}

	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.rooms.AddMember(c.Request.Context(), roomID, userID, targetID, req.Role); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *GroupHandler) RemoveMember(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}
	targetID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.rooms.RemoveMember(c.Request.Context(), roomID, userID, targetID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *GroupHandler) Leave(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}

	if err := h.rooms.Leave(c.Request.Context(), roomID, userID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *GroupHandler) ChangeRole(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}
	targetID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req dto.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.rooms.ChangeRole(c.Request.Context(), roomID, userID, targetID, req.Role); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// UpdateAvatar stores the uploaded image and narrates the change in the room.
func (h *GroupHandler) UpdateAvatar(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file required"})
		return
	}

	attachment, err := h.storage.Save(c, roomID, file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if attachment.Category != "image" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar must be an image"})
		return
	}

	room, err := h.rooms.UpdateAvatar(c.Request.Context(), roomID, userID, attachment.URL)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}
