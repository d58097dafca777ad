package main

import (
	"errors"
	"flag"
	"path/filepath"

	"table-keeper/internal/config"
	"table-keeper/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration instead of applying them")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		panic(err)
	}
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)

	cfg, err := config.LoadMigrate()
	if err != nil {
		log.Fatal().Err(err).Msg("load migrate config failed")
	}
	path, err := filepath.Abs(cfg.MigrationsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve migrations path failed")
	}

	m, err := migrate.New("file://"+filepath.ToSlash(path), cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("migration setup failed")
	}
	defer m.Close()

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		log.Fatal().Err(verr).Msg("read migration version failed")
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Bool("down", *down).Msg("database migrations applied")
}
