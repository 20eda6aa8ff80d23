package main

import (
	"fmt"
	"os"
	"time"

	"chatrelay/controller"
	"chatrelay/model"
	"chatrelay/platform"
	"chatrelay/service"

	_uuid "github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CORSMiddleware ...
// CORS (Cross-Origin Resource Sharing)
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", os.Getenv("CORS_ORIGIN"))
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, UPDATE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Origin, Authorization, Accept, Client-Security-Token, Accept-Encoding, x-access-token")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
		} else {
			c.Next()
		}
	}
}

// RequestIDMiddleware ...
// Generate a unique ID and attach it to each request for future reference or use
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uuid := _uuid.New()
		c.Writer.Header().Set("X-Request-Id", uuid.String())
		c.Set("requestId", uuid.String())
		c.Next()
	}
}

func LogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		userAgent := c.Request.UserAgent()
		requestId := c.GetString("requestId")

		logrus.Infof(
			" [%s] %d | %v | %s | %s | %s | %s ",
			requestId,
			status,
			latency,
			clientIP,
			method,
			path,
			userAgent,
		)
	}
}

var auth = new(controller.AuthController)

// TokenAuthMiddleware ...
// JWT Authentication middleware attached to each request that needs to be authenticated to
// validate the access_token in the header
func TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth.TokenValid(c)
		c.Next()
	}
}

func main() {
	fmt.Println("Server started...")

	//Load the .env file
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("failed to load the env file")
	}

	r := gin.Default()
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LogMiddleware())

	//init database
	platform.InitDB()
	model.InstallDB()

	platform.InitLLMClient()

	hub := service.NewHub()
	users := service.NewUserService(platform.DB)
	convs := service.NewConversationService(platform.DB)
	store := service.NewMessageService(platform.DB)
	completer := &service.OpenAICompleter{
		Client: platform.LLMClient,
		Model:  os.Getenv("LLM_MODEL"),
	}
	assistant := service.NewAssistantService(store, hub, completer)

	userCtrl := controller.NewUserController(users)
	chatCtrl := controller.NewChatController(convs, store, hub)
	wsCtrl := controller.NewWSController(hub, convs, store, assistant)
	aiCtrl := controller.NewAIController(completer)

	v1 := r.Group("/v1")
	{
		v1.POST("/user/register", userCtrl.Register)
		v1.POST("/user/login", userCtrl.Login)

		//Refresh the token
		v1.POST("/token/refresh", auth.Refresh)

		// Real-time relay; the socket carries its credential in the handshake
		v1.GET("/ws", wsCtrl.Serve)

		v1.GET("/ai/get-result", TokenAuthMiddleware(), aiCtrl.GetResult)

		chat := v1.Group("/chat", TokenAuthMiddleware())
		{
			chat.GET("", chatCtrl.List)
			chat.POST("/private", chatCtrl.CreatePrivate)
			chat.POST("/group", chatCtrl.CreateGroup)
			chat.GET("/:id/messages", chatCtrl.History)
			chat.POST("/:id/messages", chatCtrl.Send)
			chat.PUT("/:id/participants", chatCtrl.AddMembers)
		}
	}

	digest := service.NewDigestService(platform.DB)
	c := cron.New()
	c.AddFunc("0 8 * * *", func() {
		if err := digest.Run(); err != nil {
			platform.Logger.Warnf("digest run failed: %v", err)
		}
	})
	c.Start()

	port := os.Getenv("PORT")
	r.Run(":" + port)
}
