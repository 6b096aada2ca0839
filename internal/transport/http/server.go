package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mindful-resolve/internal/bootstrap"
	"mindful-resolve/internal/transport/http/handler"
	"mindful-resolve/internal/transport/http/middleware"
	"mindful-resolve/internal/transport/http/response"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()

	logger := app.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	router.Use(middleware.RequestLogger(logger), gin.Recovery(), middleware.CORS(app.Config.App.AllowedOrigin))

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	secret := app.Config.Auth.TokenSecret
	sessionHandler := handler.NewSessionHandler(app.SessionService)
	solutionHandler := handler.NewSolutionHandler(app.SessionService, secret)

	v1 := router.Group("/api/v1")
	sessionGroup := v1.Group("/sessions")
	sessionGroup.POST("", sessionHandler.Create)
	sessionGroup.POST("/join", sessionHandler.Join)
	sessionGroup.POST("/:code/partner2", sessionHandler.SubmitPartner2)
	sessionGroup.GET("/:code", middleware.AuthParticipant(secret), sessionHandler.Get)

	v1.POST("/solutions", solutionHandler.Generate)

	// global middleware also runs for unmatched routes, so CORS answers OPTIONS preflights here
	router.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "not found")
	})

	return router
}
