package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/namanlalitnyu/RapidEdit/config"
	"github.com/namanlalitnyu/RapidEdit/handler"
	"github.com/namanlalitnyu/RapidEdit/middleware"
	"github.com/namanlalitnyu/RapidEdit/service"
	"github.com/namanlalitnyu/RapidEdit/utils"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	// 加载配置
	cfg := config.New()

	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting RapidEdit server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	// 确保上传目录存在
	if err := os.MkdirAll(cfg.Upload.UploadDir, 0755); err != nil {
		utils.Logger.Fatal("failed to create upload directory", zap.Error(err))
	}

	// 初始化Redis
	redisService := service.NewRedisService(&cfg.Redis)
	ctx := context.Background()
	if err := redisService.Ping(ctx); err != nil {
		utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
	} else {
		utils.Logger.Info("redis connected successfully")
	}
	defer redisService.Close()

	// 初始化服务
	segClient := service.NewSegmentationClient(&cfg.Segmentation)
	maskGenService := service.NewMaskGenService(&cfg.Segmentation, cfg.Upload.UploadDir, segClient, redisService)
	compositor := service.NewCompositor(cfg.Upload.UploadDir)
	inpaintService := service.NewInpaintService(&cfg.Inpainting, cfg.Upload.UploadDir)
	sessionStore := service.NewSessionStore(&cfg.Session)

	// 初始化Handler
	workflowHandler := handler.NewWorkflowHandler(cfg, sessionStore, maskGenService, compositor, inpaintService)

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 创建路由
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	// 视图模板与上传目录静态服务
	r.LoadHTMLGlob("templates/*.html")
	r.Static("/static", "./static")
	r.Static("/uploads", cfg.Upload.UploadDir)

	// 健康检查和版本信息
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": Version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	// 工作流路由
	r.GET("/", workflowHandler.Index)
	r.POST("/upload", workflowHandler.Upload)
	r.POST("/select", workflowHandler.Select)
	r.POST("/inpaint", workflowHandler.Inpaint)
	r.POST("/reuse", workflowHandler.Reuse)
	r.POST("/restart", workflowHandler.Restart)

	// 启动服务器
	utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := r.Run(cfg.Server.Port); err != nil {
		utils.Logger.Fatal("failed to start server", zap.Error(err))
	}
}
