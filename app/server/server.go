package server

import (
	"context"
	"net/http"

	"video-vault/app/config"
	"video-vault/app/database"
	"video-vault/app/filewatcher"
	"video-vault/app/handler"
	"video-vault/app/logger"
	"video-vault/app/media"
	"video-vault/app/middleware"
	"video-vault/app/service"
	"video-vault/app/storage"
	"video-vault/app/uploader"

	"github.com/gin-gonic/gin"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config *config.Config
	Logger *logger.Logger
	gin    *gin.Engine
	http   *http.Server

	uploadManager  *uploader.Manager
	ingestService  *service.UrlIngestService
	cleanupService *service.CleanupService
	dropWatcher    *filewatcher.DropWatcher
}

// New 创建一个新的 Server 实例
func New(cfg *config.Config, log *logger.Logger) *Server {
	router := gin.Default()

	extractor := media.NewExtractor(log)
	store := uploader.NewGormStore(database.GetDB())

	// 上传后端按配置选择，桶存储和办公存储走同一套管理器抽象
	var objectStorage storage.ObjectStorage
	if cfg.Storage.Backend == config.StorageBackendOffice {
		objectStorage = storage.NewOfficeStorage(cfg, cfg.Office.DriveID, log)
	} else {
		objectStorage = storage.NewBucketStorage(cfg, log)
	}
	manager := uploader.NewManager(log, store, objectStorage, extractor)

	ingestService := service.NewUrlIngestService(log, manager,
		cfg.Upload.StagingDir, cfg.Upload.ProxyBaseURL)
	cleanupService := service.NewCleanupService(log, manager, cfg.Upload.StagingDir)

	s := &Server{
		gin: router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		Config:         cfg,
		Logger:         log,
		uploadManager:  manager,
		ingestService:  ingestService,
		cleanupService: cleanupService,
	}

	// 投递目录监控是可选功能，未配置时不启用
	if cfg.Upload.DropDir != "" {
		watcher, err := filewatcher.NewDropWatcher(cfg.Upload.DropDir,
			cfg.Upload.StagingDir, manager, log)
		if err != nil {
			log.Errorf("创建投递目录监控失败: %v", err)
		} else {
			s.dropWatcher = watcher
		}
	}

	// 设置路由
	s.setupRoutes()

	return s
}

// Start 启动服务器和后台服务
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)

	if err := s.cleanupService.Start(); err != nil {
		s.Logger.Errorf("启动清理服务失败: %v", err)
	}

	if s.dropWatcher != nil {
		if err := s.dropWatcher.Start(); err != nil {
			s.Logger.Errorf("启动投递目录监控失败: %v", err)
		}
	}

	return s.http.ListenAndServe()
}

// Shutdown 优雅停机：停掉后台服务、关闭数据库，最后关 HTTP
func (s *Server) Shutdown(ctx context.Context) error {
	if s.dropWatcher != nil {
		if err := s.dropWatcher.Stop(); err != nil {
			s.Logger.Errorf("停止投递目录监控失败: %v", err)
		}
	}

	s.cleanupService.Stop()

	// 在途上传转为暂停，暂存文件保留待下次恢复
	s.uploadManager.PauseUpload()

	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return s.http.Shutdown(ctx)
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes() {
	authHandler := handler.NewAuthHandler(s.Config)
	uploadHandler := handler.NewUploadHandler(s.Config, s.uploadManager, s.Logger)
	libraryHandler := handler.NewLibraryHandler()
	subtitleHandler := handler.NewSubtitleHandler()
	ingestHandler := handler.NewIngestHandler(s.ingestService)
	proxyDownloadHandler := handler.NewProxyDownloadHandler(s.Logger)
	streamProxyHandler := handler.NewStreamProxyHandler(s.Logger)

	api := s.gin.Group("/api")

	// 认证相关路由（不需要JWT验证）
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	// 代理路由不要求登录，播放器的流量直接走这里
	api.POST("/proxy-download", proxyDownloadHandler.Download)
	api.GET("/stream-video", streamProxyHandler.Stream)

	// 需要JWT验证的路由
	protected := api.Group("/")
	protected.Use(middleware.JWTAuth(s.Config))
	{
		protected.GET("/me", authHandler.Me)

		// 上传队列相关路由
		upload := protected.Group("/upload")
		{
			upload.POST("/files", uploadHandler.AddFiles)
			upload.GET("/items", uploadHandler.Items)
			upload.GET("/tree", uploadHandler.Tree)
			upload.GET("/status", uploadHandler.Status)
			upload.POST("/start", uploadHandler.Start)
			upload.POST("/pause", uploadHandler.Pause)
			upload.POST("/resume", uploadHandler.Resume)
			upload.DELETE("/items/:id", uploadHandler.Remove)
			upload.DELETE("/items", uploadHandler.Clear)
		}

		// 媒体库相关路由
		library := protected.Group("/library")
		{
			library.GET("/folders", libraryHandler.Folders)
			library.GET("/videos", libraryHandler.Videos)
			library.GET("/videos/:id", libraryHandler.Video)
		}

		// 字幕相关路由
		subtitles := protected.Group("/subtitles")
		{
			subtitles.POST("/parse", subtitleHandler.Parse)
			subtitles.GET("/preference", subtitleHandler.GetPreference)
			subtitles.PUT("/preference", subtitleHandler.UpdatePreference)
		}

		// URL 拉取相关路由
		ingest := protected.Group("/ingest")
		{
			ingest.POST("/", ingestHandler.Create)
			ingest.GET("/", ingestHandler.List)
			ingest.GET("/:id", ingestHandler.Get)
		}

		// 办公存储浏览路由，凭据未配置时不注册
		if s.Config.Office.TenantID != "" {
			officeStorage := storage.NewOfficeStorage(s.Config, s.Config.Office.DriveID, s.Logger)
			officeHandler := handler.NewOfficeHandler(officeStorage, s.Logger)

			office := protected.Group("/office")
			{
				office.GET("/sites", officeHandler.Sites)
				office.GET("/sites/:siteId/drives", officeHandler.Drives)
				office.GET("/drives/:driveId/files", officeHandler.Files)
				office.GET("/drives/:driveId/files/:itemId/download-url", officeHandler.DownloadURL)
			}
		}
	}
}
