// migrate aplica o revierte el esquema del libro sobre la base configurada (DATABASE_URL o DB_*).
//
// Uso:
//
//	go run ./cmd/migrate            # up
//	go run ./cmd/migrate -cmd version
//	go run ./cmd/migrate -cmd down
//	go run ./cmd/migrate -cmd force -version 1
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func main() {
	cmd := flag.String("cmd", "up", "up | down | version | force")
	version := flag.Int("version", -1, "versión para force")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Service: cfg.App.Name})

	m, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar migraciones")
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("cerrar migraciones")
		}
	}()

	switch *cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "force":
		if *version < 0 {
			log.Fatal().Msg("force requiere -version")
		}
		err = m.Force(*version)
	case "version":
		v, dirty, verr := m.Version()
		if verr == nil {
			log.Info().Uint("version", v).Bool("dirty", dirty).Msg("versión del esquema")
		}
		err = verr
	default:
		log.Fatal().Str("cmd", *cmd).Msg("comando desconocido")
	}
	if err != nil {
		log.Error().Err(err).Str("cmd", *cmd).Msg("migración fallida")
		os.Exit(1)
	}
}
