package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thereayou/converse/internal/handlers/dto"
	"github.com/thereayou/converse/internal/middleware"
	"github.com/thereayou/converse/internal/services"
)

type RoomHandler struct {
	rooms *services.RoomService
}

func NewRoomHandler(rooms *services.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

func (h *RoomHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberIDs := make([]uuid.UUID, 0, len(req.MemberIDs))
	for _, raw := range req.MemberIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
			return
		}
		memberIDs = append(memberIDs, id)
	}

	room, created, err := h.rooms.CreateRoom(c.Request.Context(), userID, services.CreateRoomInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		MemberIDs:   memberIDs,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"room": room, "created": created})
}

func (h *RoomHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	views, err := h.rooms.ListRooms(userID, services.RoomFilter{
		Type:   c.Query("type"),
		Search: c.Query("search"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": views})
}

func (h *RoomHandler) Get(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}

	room, participants, err := h.rooms.GetRoom(roomID, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room, "participants": participants})
}

func (h *RoomHandler) Update(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}

	var req dto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.UpdateRoom(c.Request.Context(), roomID, userID, services.UpdateRoomInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *RoomHandler) Delete(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}

	if err := h.rooms.DeleteRoom(c.Request.Context(), roomID, userID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// roomRequest extracts the caller and the :roomID path parameter.
func roomRequest(c *gin.Context) (userID, roomID uuid.UUID, ok bool) {
	userID, authed := middleware.UserID(c)
	if !authed {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return uuid.Nil, uuid.Nil, false
	}

	roomID, err := uuid.Parse(c.Param("roomID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return uuid.Nil, uuid.Nil, false
	}
	return userID, roomID, true
}
