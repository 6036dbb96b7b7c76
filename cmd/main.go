package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mirror-match-backend/internal/config"
	"mirror-match-backend/internal/game"
	"mirror-match-backend/internal/handler"
	"mirror-match-backend/internal/service"
	"mirror-match-backend/internal/vision"
	"mirror-match-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	catalog, err := game.NewCatalog(cfg.Game.EmotionSet)
	if err != nil {
		logger.Fatalf("Failed to load emotion catalog: %v", err)
	}

	// 缺少密钥时服务仍然启动，分析接口返回 503
	client, err := vision.NewClient(context.Background(), cfg, catalog)
	switch {
	case errors.Is(err, vision.ErrMissingCredential):
		logger.Warnf("Vision provider not configured, /analyze-emotion will answer 503: %v", err)
		client = nil
	case err != nil:
		logger.Fatalf("Failed to create vision client: %v", err)
	default:
		logger.Infof("Vision provider: %s", client.Name())
	}

	analysisService, err := service.NewAnalysisService(client, catalog, cfg)
	if err != nil {
		logger.Fatalf("Failed to init analysis service: %v", err)
	}

	// 初始化处理器
	analysisHandler := handler.NewAnalysisHandler(analysisService)
	liveHandler := handler.NewLiveHandler(analysisService, cfg.CORS.AllowedOrigins, cfg.Server.MaxBodyBytes)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(cfg, analysisHandler, liveHandler)

	// 创建HTTP服务器
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// 启动服务器
	go func() {
		logger.Infof("服务器启动在端口 %d (emotion set: %s)", cfg.Server.Port, catalog.Name())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务器正在关闭...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Vision.Timeout+5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}
	logger.Info("服务器已关闭")
}
