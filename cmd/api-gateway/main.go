package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/campusudc/asesorias-api/internal/backend"
	"github.com/campusudc/asesorias-api/internal/guard"
	"github.com/campusudc/asesorias-api/internal/handler"
	"github.com/campusudc/asesorias-api/internal/middleware"
	"github.com/campusudc/asesorias-api/internal/models"
	"github.com/campusudc/asesorias-api/internal/refresh"
	"github.com/campusudc/asesorias-api/internal/service"
	"github.com/campusudc/asesorias-api/internal/store"
	"github.com/campusudc/asesorias-api/pkg/cache"
	"github.com/campusudc/asesorias-api/pkg/config"
	"github.com/campusudc/asesorias-api/pkg/logger"
	corsmiddleware "github.com/campusudc/asesorias-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusudc/asesorias-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := backend.Connect(cfg.Backend)
	if err != nil {
		logr.Sugar().Fatalw("failed to reach backend data tier", "error", err)
	}
	defer db.Close()

	var catalog *store.CatalogCache
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog snapshot disabled", "error", err)
	} else {
		catalog = store.NewCatalogCache(redisClient, cfg.Redis.CatalogTTL)
		defer redisClient.Close()
	}

	metricsSvc := service.NewMetricsService()

	validate := validator.New()
	dataService := backend.NewInstrumentedData(backend.NewDataClient(db), metricsSvc)
	authClient := backend.NewAuthClient(cfg.Auth)

	registry := store.NewSessionRegistry(authClient, dataService, logr, cfg.Auth.AdminEmails, cfg.Auth.ProfessorEmails)
	courseStore := store.NewCourseStore(dataService, catalog, validate, logr)

	refresher := refresh.New(cfg.Refresh, courseStore, logr)
	if err := refresher.Start(); err != nil {
		logr.Sugar().Fatalw("failed to start refresher", "error", err)
	}
	defer refresher.Stop()

	authHandler := handler.NewAuthHandler(registry, validate)
	courseHandler := handler.NewCourseHandler(courseStore, dataService)
	requestHandler := handler.NewRequestHandler(courseStore)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "backend unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	guestOnly := guard.Route{Name: guard.RouteLogin, RequiresGuest: true}
	authed := guard.Route{Name: guard.RouteDashboard, RequiresAuth: true}
	adminOnly := guard.Route{Name: "admin", RequiresAuth: true, AllowedRoles: []models.Role{models.RoleAdmin}}

	api := r.Group("/api/v1")

	api.POST("/auth/login", guard.Middleware(registry, guestOnly), authHandler.Login)
	api.POST("/auth/logout", guard.Middleware(registry, authed), authHandler.Logout)
	api.GET("/auth/session", guard.Middleware(registry, authed), authHandler.Session)

	api.GET("/cursos", guard.Middleware(registry, authed), courseHandler.List)
	api.GET("/mis-cursos", guard.Middleware(registry, authed), courseHandler.MyCourses)
	api.GET("/cursos/:id/involucrado", guard.Middleware(registry, authed), courseHandler.Involvement)
	api.POST("/cursos", guard.Middleware(registry, adminOnly), courseHandler.Create)
	api.PUT("/cursos/:id", guard.Middleware(registry, adminOnly), courseHandler.Update)
	api.DELETE("/cursos/:id", guard.Middleware(registry, adminOnly), courseHandler.Delete)
	api.GET("/cursos/:id/roster", guard.Middleware(registry, adminOnly), courseHandler.Roster)

	api.GET("/solicitudes", guard.Middleware(registry, adminOnly), requestHandler.List)
	api.POST("/solicitudes", guard.Middleware(registry, authed), requestHandler.Create)
	api.POST("/solicitudes/:id/aprobar", guard.Middleware(registry, adminOnly), requestHandler.Approve)
	api.POST("/solicitudes/:id/rechazar", guard.Middleware(registry, adminOnly), requestHandler.Reject)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
