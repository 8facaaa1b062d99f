package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appRedis "chat-go/internal/redis"

	"chat-go/internal/chat"
	"chat-go/internal/config"
	"chat-go/internal/handlers/chatserver"
	"chat-go/internal/storage"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	log.Println("Chat 服务器配置加载成功。")

	// 2. 初始化数据库连接（用户资料查询需要）
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("无法初始化数据库: %v", err)
	}
	log.Println("Chat 服务器数据库连接成功。")

	// 3. 自动迁移数据库表结构 (通常一个服务实例负责即可)
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatalf("无法迁移数据库表: %v", err)
	}
	log.Println("Chat 服务器数据库表迁移成功。")

	// 4. 初始化 Redis Client (令牌黑名单校验)
	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("无法连接到 Redis: %v", err)
	}
	log.Println("成功连接到 Redis")
	tokenBlacklistService := appRedis.NewRedisTokenBlacklist(redisClient)

	// 5. 初始化 Repositories
	userRepo := storage.NewGormUserRepository(db)

	// 6. 初始化聊天核心
	sessions := chat.NewSessionRegistry()
	rooms := chat.NewRoomDirectory(cfg.Chat)
	convos := chat.NewConversationStore(cfg.Chat.ReplayLimit)
	typing := chat.NewTypingCoordinator()
	presence := chat.NewPresence(sessions, userRepo)

	router := chat.NewRouter(cfg.Chat, sessions, rooms, convos, typing, presence, userRepo)
	go router.Run()
	log.Println("聊天路由器已启动。")

	// 7. 初始化 Handlers
	wsHandler := chatserver.NewWebSocketHandler(router, tokenBlacklistService, cfg)
	roomHandler := chatserver.NewRoomHandler(router)

	// 8. 配置 HTTP 服务器路由
	r := mux.NewRouter()
	r.HandleFunc(cfg.Server.WebSocketPath, wsHandler.ServeWS)
	r.HandleFunc("/api/rooms", roomHandler.ListRoomsHandler).Methods(http.MethodGet)

	// CORS 选项从配置中读取（与 API 服务器共用一套）
	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	corsHandler := handlers.CORS(corsOptions...)(r)

	// 9. 启动 HTTP 服务器
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:           serverAddr,
		Handler:        corsHandler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Printf("Chat HTTP 服务器启动于 %s, WebSocket 路径: %s", serverAddr, cfg.Server.WebSocketPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Chat 服务器启动失败: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Chat 服务器准备关闭...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Chat 服务器关闭失败: %v", err)
	}
	log.Println("Chat 服务器已优雅关闭。")
}
