package server

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/thereayou/converse/internal/database"
	"github.com/thereayou/converse/internal/handlers"
	"github.com/thereayou/converse/internal/middleware"
	"github.com/thereayou/converse/pkg/auth"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Room    *handlers.RoomHandler
	Message *handlers.MessageHandler
	Group   *handlers.GroupHandler
	File    *handlers.FileHandler
	Admin   *handlers.AdminHandler
	WS      *handlers.WSHandler
}

func APIEndpoints(r *gin.Engine, h *Handlers, db *database.Database, jwtMgr *auth.JWTManager, rdb *redis.Client) {
	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", middleware.AuthMiddleware(jwtMgr, rdb), h.Auth.Logout)
	}

	// WebSocket endpoint; token comes from the query string on upgrade.
	r.GET("/ws", middleware.WSAuthMiddleware(jwtMgr, rdb), h.WS.Connect)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtMgr, rdb), middleware.IPWhitelistMiddleware(db))
	{
		api.GET("/profile", h.Auth.Profile)
		api.GET("/users/search", h.Auth.SearchUsers)
		api.GET("/online", h.WS.Online)

		api.POST("/rooms", h.Room.Create)
		api.GET("/rooms", h.Room.List)
		api.GET("/rooms/:roomID", h.Room.Get)
		api.PATCH("/rooms/:roomID", h.Room.Update)
		api.DELETE("/rooms/:roomID", h.Room.Delete)

		api.POST("/rooms/:roomID/members", h.Group.AddMember)
		api.DELETE("/rooms/:roomID/members/:userID", h.Group.RemoveMember)
		api.PATCH("/rooms/:roomID/members/:userID/role", h.Group.ChangeRole)
		api.POST("/rooms/:roomID/leave", h.Group.Leave)
		api.POST("/rooms/:roomID/avatar", h.Group.UpdateAvatar)

		api.POST("/rooms/:roomID/messages", h.Message.Send)
		api.GET("/rooms/:roomID/messages", h.Message.List)
		api.PATCH("/rooms/:roomID/messages/:messageID", h.Message.Edit)
		api.DELETE("/rooms/:roomID/messages/:messageID", h.Message.Delete)
		api.POST("/rooms/:roomID/messages/:messageID/read", h.Message.MarkRead)
		api.GET("/rooms/:roomID/messages/:messageID/read-status", h.Message.ReadStatus)
		api.POST("/rooms/:roomID/typing", h.Message.Typing)

		api.GET("/rooms/:roomID/files/:fileName", h.File.Download)
	}

	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AuthMiddleware(jwtMgr, rdb), middleware.AdminMiddleware(db))
	{
		admin.GET("/rooms", h.Admin.ListRooms)
		admin.POST("/rooms/:roomID/restore", h.Admin.RestoreRoom)
		admin.DELETE("/rooms/:roomID/force", h.Admin.ForceDeleteRoom)
		admin.GET("/rooms/:roomID/messages", h.Admin.RoomMessages)
		admin.DELETE("/rooms/:roomID/messages/:messageID", h.Admin.DeleteMessage)
		admin.POST("/rooms/:roomID/messages/:messageID/restore", h.Admin.RestoreMessage)
		admin.DELETE("/rooms/:roomID/messages/:messageID/force", h.Admin.ForceDeleteMessage)
		admin.GET("/activity", h.Admin.Activity)
	}
}
