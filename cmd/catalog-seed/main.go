package main

import (
	"context"
	"flag"
	"time"

	"gamedex/internal/games"
	"gamedex/internal/logging"
	"gamedex/pkg/database"
	"gamedex/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file path")
		in         = flag.String("in", "", "seed JSON file (defaults to server.seed_file)")
		dbPath     = flag.String("db", "", "catalog database path (defaults to server.db_path)")
	)
	flag.Parse()

	cfg, err := utils.Load(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(cfg.LoggingConfig())
	if *in == "" {
		*in = cfg.Server.SeedFile
	}
	if *dbPath == "" {
		*dbPath = cfg.Server.DBPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.Config{Path: *dbPath})
	defer db.Close()

	if err := database.MigrateCatalog(db); err != nil {
		logging.Fatal().Err(err).Msg("db migrate failed")
	}

	recs, err := games.LoadFile(*in)
	if err != nil {
		logging.Fatal().Err(err).Msg("read seed file")
	}
	n, err := games.NewRepo(db).Seed(ctx, recs)
	if err != nil {
		logging.Fatal().Err(err).Msg("seed failed")
	}
	logging.Info().Int("games", n).Str("db", *dbPath).Msg("✅ catalog seeded")
}
