package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"gamedex/internal/games"
	"gamedex/internal/logging"
	"gamedex/internal/metrics"
	"gamedex/pkg/database"
	"gamedex/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	addr := flag.String("addr", "", "listen address (overrides config)")
	seed := flag.Bool("seed", false, "seed the database from the configured seed file before serving")
	flag.Parse()

	cfg, err := utils.Load(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	logging.Init(cfg.LoggingConfig())
	log := logging.With("catalog-server")

	db := database.MustOpen(database.Config{Path: cfg.Server.DBPath})
	defer db.Close()

	if err := database.MigrateCatalog(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	repo := games.NewRepo(db)
	if *seed {
		recs, err := games.LoadFile(cfg.Server.SeedFile)
		if err != nil {
			log.Fatal().Err(err).Msg("read seed file")
		}
		n, err := repo.Seed(context.Background(), recs)
		if err != nil {
			log.Fatal().Err(err).Msg("seed failed")
		}
		log.Info().Int("games", n).Str("file", cfg.Server.SeedFile).Msg("database seeded")
	}

	if cfg.Logging.Level != "debug" && cfg.Logging.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), metrics.Middleware())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Server.DBPath})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "db_error": err.Error()})
			return
		}
		total, err := repo.Count(ctx, games.ListQuery{})
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "db_error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "db": "ok", "games": total})
	})

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	games.NewHandler(repo).RegisterRoutes(router.Group("/games"))

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("catalog server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	log.Info().Msg("server stopped")
}
