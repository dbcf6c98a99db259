package server

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/thereayou/converse/internal/broadcast"
	"github.com/thereayou/converse/internal/database"
	"github.com/thereayou/converse/internal/files"
	"github.com/thereayou/converse/internal/handlers"
	"github.com/thereayou/converse/internal/services"
	"github.com/thereayou/converse/internal/websocket"
	"github.com/thereayou/converse/pkg/auth"
)

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Hub        *websocket.Hub

	relayCancel context.CancelFunc
}

func NewServer() *Server {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Postgres connect failed: %v", err)
	}

	redisOpts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Redis connect failed: %v", err)
	}

	jwtMgr := auth.NewJWTManager(
		os.Getenv("JWT_SECRET"),
		24*time.Hour,
	)

	storage, err := files.NewStorage(os.Getenv("UPLOAD_DIR"))
	if err != nil {
		log.Fatalf("upload storage init failed: %v", err)
	}

	// Each instance gets a fresh identity so the relay can tell its own
	// frames apart from its peers'.
	origin := uuid.New().String()

	authorizer := services.NewChannelAuthorizer(db)
	hub := websocket.NewHub(authorizer, logger)
	go hub.Run()

	fanout := broadcast.NewFanout(hub, broadcast.NewRedisPublisher(rdb, origin))

	relayCtx, relayCancel := context.WithCancel(context.Background())
	relay := broadcast.NewRelay(rdb, hub, origin, logger)
	go relay.Run(relayCtx)

	messageSvc := services.NewMessageService(db, fanout, logger)
	roomSvc := services.NewRoomService(db, messageSvc, fanout, logger)
	adminSvc := services.NewAdminService(db, fanout, logger)

	authH := handlers.NewAuthHandler(db, jwtMgr, rdb)
	roomH := handlers.NewRoomHandler(roomSvc)
	messageH := handlers.NewMessageHandler(messageSvc, storage)
	groupH := handlers.NewGroupHandler(roomSvc, storage)
	fileH := handlers.NewFileHandler(db, storage)
	adminH := handlers.NewAdminHandler(adminSvc)
	wsH := handlers.NewWSHandler(hub)

	router := gin.Default()
	APIEndpoints(router, &Handlers{
		Auth:    authH,
		Room:    roomH,
		Message: messageH,
		Group:   groupH,
		File:    fileH,
		Admin:   adminH,
		WS:      wsH,
	}, db, jwtMgr, rdb)

	return &Server{
		Router:      router,
		DB:          db,
		Redis:       rdb,
		JWTManager:  jwtMgr,
		Hub:         hub,
		relayCancel: relayCancel,
	}
}

func (s *Server) Run() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server starting on port %s", port)
	if err := s.Router.Run(":" + port); err != nil {
		log.Fatalf("Server run error: %v", err)
	}
}

func (s *Server) Shutdown() {
	s.relayCancel()
	s.Hub.Stop()
}
