package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"chatpdf/internal/ai"
	appsvc "chatpdf/internal/app"
	"chatpdf/internal/bootstrap"
	"chatpdf/internal/cache"
	"chatpdf/internal/platform/rabbitmq"
	"chatpdf/internal/repository"
	"chatpdf/internal/transport/http/handler"
	"chatpdf/internal/transport/http/middleware"
	"chatpdf/internal/vectorindex"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	sessionRepo := repository.NewChatSessionRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmq.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)
	index := vectorindex.NewQdrantIndex(app.Qdrant, app.Config.Qdrant.Collection)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	chatService := appsvc.NewChatService(
		sessionRepo,
		messageRepo,
		index,
		publisher,
		historyCache,
		ai.NewOpenAICompatibleClient(),
		ai.EmbeddingConfig{
			BaseURL:   app.Config.LLM.BaseURL,
			APIKey:    app.Config.LLM.APIKey,
			Model:     app.Config.LLM.EmbeddingModel,
			Dimension: app.Config.LLM.EmbeddingDimension,
		},
		ai.ChatConfig{
			BaseURL: app.Config.LLM.BaseURL,
			APIKey:  app.Config.LLM.APIKey,
			Model:   app.Config.LLM.Model,
		},
	)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	chatGroup.POST("/upload", chatHandler.UploadPDF)
	chatGroup.POST("/ask", chatHandler.Ask)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.GET("/sessions/:id/history", chatHandler.GetHistory)
	chatGroup.DELETE("/sessions/:id", chatHandler.DeleteSession)

	return router
}
