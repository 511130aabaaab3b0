package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/beaconhq/beacon/internal/config"
	"github.com/beaconhq/beacon/internal/credentials"
	"github.com/beaconhq/beacon/internal/platform/graph"
	"github.com/beaconhq/beacon/internal/service"
	"github.com/beaconhq/beacon/internal/store"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Store  *store.Store
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Publisher  *service.Publisher
	Campaigns  *service.CampaignScheduler
	Dispatcher *service.Dispatcher
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := store.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	st := store.NewStore(db)

	resolver, err := credentials.NewResolver(st, cfg.Crypto.Key, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential resolver: %w", err)
	}

	timeout, err := time.ParseDuration(cfg.Platform.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid platform request timeout: %w", err)
	}
	client := graph.NewClient(cfg.Platform.GraphBaseURL, cfg.Platform.APIVersion, timeout, logger)

	// Initialize services
	publisher := service.NewPublisher(&cfg.Publisher, logger, st, resolver, client)
	campaigns := service.NewCampaignScheduler(&cfg.Campaigns, logger, st, resolver, client)
	dispatcher, err := service.NewDispatcher(&cfg.Broadcast, logger, st, resolver, client)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	// Create router
	router := gin.New()

	// Create server
	srv := &Server{
		Config:     cfg,
		DB:         db,
		Store:      st,
		Router:     router,
		Logger:     logger,
		Publisher:  publisher,
		Campaigns:  campaigns,
		Dispatcher: dispatcher,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		broadcasts := api.Group("/broadcasts")
		{
			broadcasts.POST("", s.handleDispatchBroadcast)
			broadcasts.GET("/:id", s.handleGetBroadcast)
		}
	}
}

func (s *Server) handleGetBroadcast(c *gin.Context) {
	broadcast, err := s.Store.BroadcastByPublicID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Broadcast not found"})
			return
		}
		s.Logger.Error("Failed to get broadcast", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get broadcast"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"broadcast": broadcast})
}

func (s *Server) Start(ctx context.Context) error {
	// Start background workers
	if err := s.Publisher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start publish worker: %w", err)
	}
	if err := s.Campaigns.Start(ctx); err != nil {
		return fmt.Errorf("failed to start campaign scheduler: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop workers first, then wait for in-flight fan-outs to finalize
	s.Publisher.Stop()
	s.Campaigns.Stop()
	s.Dispatcher.Wait()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
