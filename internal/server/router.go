package server

import (
	"doc-tracker/internal/config"
	"doc-tracker/internal/document"
	"doc-tracker/internal/middleware"
	"doc-tracker/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth     *middleware.Auth
	User     *user.Handler
	Document *document.Handler
}

func NewRouter(cfg config.Config, log *zap.Logger, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
	}
	if cfg.Environment == "development" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	router.MaxMultipartMemory = document.MaxUploadSize

	router.POST("/login", h.User.Login)

	authed := router.Group("/", h.Auth.AuthMiddleWare())
	authed.DELETE("/logout", h.User.Logout)
	authed.GET("/profile", h.User.GetProfile)

	authed.GET("/documents", h.Document.ListDocuments)
	authed.GET("/documents/next-id", h.Document.NextID)
	authed.POST("/documents", h.Document.Create)
	authed.GET("/documents/:id", h.Document.ShowDocument)
	authed.GET("/documents/:id/thread", h.Document.ShowThread)
	authed.GET("/documents/:id/preview", h.Document.Preview)
	authed.POST("/documents/:id/summary", h.Document.Summarize)
	authed.DELETE("/documents/:id", h.Document.DeleteDocument)
	authed.GET("/tracking", h.Document.Tracking)
	authed.GET("/deleted", h.Document.ListDeleted)

	admin := authed.Group("/users", middleware.RequireAdmin())
	admin.GET("", h.User.ListUsers)
	admin.POST("", h.User.CreateUser)
	admin.DELETE("/:username", h.User.DeleteUser)
	admin.PUT("/:username/password", h.User.ChangePassword)

	return router
}
