package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/converse/internal/database"
	"github.com/thereayou/converse/internal/files"
	"github.com/thereayou/converse/internal/services"
)

// FileHandler serves stored attachments back to room members.
type FileHandler struct {
	membership *services.Membership
	storage    *files.Storage
}

func NewFileHandler(db *database.Database, storage *files.Storage) *FileHandler {
	return &FileHandler{membership: services.NewMembership(db), storage: storage}
}

// Download streams a stored attachment. Only active participants of the room
// the file belongs to may fetch it.
func (h *FileHandler) Download(c *gin.Context) {
	userID, roomID, ok := roomRequest(c)
	if !ok {
		return
	}

	active, err := h.membership.IsParticipant(roomID, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !active {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this chat room"})
		return
	}

	path, err := h.storage.FilePath(roomID, c.Param("fileName"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.File(path)
}
