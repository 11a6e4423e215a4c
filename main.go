package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"banksampah/config"
	"banksampah/pkg/ledger"
	"banksampah/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel, !cfg.IsProduction()); err != nil {
		log.Fatalf("error starting logger: %v", err)
	}
	defer logger.Sync()

	db, err := openDB(cfg)
	if err != nil {
		logger.Log.Fatal("database", logger.Error(err))
	}

	// `banksampah migrate` runs AutoMigrate and seeding, then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := prepareDB(db, cfg, true); err != nil {
			logger.Log.Fatal("migrate", logger.Error(err))
		}
		fmt.Println("migration and seeding completed")
		return
	}

	if err := prepareDB(db, cfg, cfg.AutoMigrate); err != nil {
		logger.Log.Fatal("prepare database", logger.Error(err))
	}
	ensureUploadBase(cfg.UploadBase)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s := newServer(db, cfg, ledger.NewGormStore(db))
	r := newRouter(s)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		logger.Log.Info("starting server", logger.String("address", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("server error", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("error shutting down server", logger.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Log.Info("shutdown complete")
}

func prepareDB(db *gorm.DB, cfg *config.Config, migrate bool) error {
	if migrate {
		migrateDB(db)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return seedDB(ctx, db, cfg)
}

func newRouter(s *server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes()
	setupRoutes(r, s)
	return r
}
