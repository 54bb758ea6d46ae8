package api

import (
	"github.com/gin-gonic/gin"

	"mindmate/internal/api/handlers"
)

// SetupRoutes sets up the API routes. The session middleware must already be
// installed on router.
func SetupRoutes(router *gin.Engine, handler *handlers.Handler, allowedOrigins []string) {
	router.Use(RequestID())
	router.Use(RequestLogger())
	router.Use(CORSMiddleware(allowedOrigins))

	api := router.Group("/api")
	{
		api.GET("/health", handler.HandleHealth)

		api.POST("/documents", handler.HandleUploadDocument) // extract a PDF and start a fresh study session
		api.GET("/session", handler.HandleGetSession)

		api.POST("/ask", handler.HandleAsk)

		api.POST("/quiz", handler.HandleGenerateQuiz)
		api.GET("/quiz", handler.HandleGetQuiz)
		api.PUT("/quiz/answers/:index", handler.HandleSelectAnswer) // zero-based question index
		api.POST("/quiz/submit", handler.HandleSubmitQuiz)
		api.GET("/quiz/report", handler.HandleDownloadReport)
	}
}
