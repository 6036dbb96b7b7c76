package handler

import (
	"net/http"
	"time"

	"mirror-match-backend/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg *config.Config, analysisHandler *AnalysisHandler, liveHandler *LiveHandler) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(RequestID())
	router.Use(RequestLogger())
	router.Use(gin.CustomRecovery(Recovery))

	// CORS配置
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))
	router.Use(BodyLimit(cfg.Server.MaxBodyBytes))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"configured": analysisHandler.analysisService.Ready(),
			"timestamp":  time.Now().Unix(),
		})
	})

	// 前端直接调用的路径
	router.POST("/analyze-emotion", analysisHandler.AnalyzeEmotion)

	router.GET("/ws/play", liveHandler.Play)

	api := router.Group("/api")
	{
		api.POST("/analyze-emotion", analysisHandler.AnalyzeEmotion)
		api.POST("/match", analysisHandler.Match)
		api.GET("/emotions", analysisHandler.ListEmotions)
		api.GET("/emotions/next", analysisHandler.NextEmotion)
		api.GET("/stats", analysisHandler.Stats)
	}

	return router
}
