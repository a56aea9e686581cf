// import_stock registra productos con su saldo inicial a partir de un CSV o XLSX exportado
// de otro sistema. Los productos que ya existen se omiten.
//
// Uso: go run ./cmd/import_stock -company <uuid> -actor <uuid> [-charset iso-8859-1] saldos.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/importer"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func main() {
	companyID := flag.String("company", "", "empresa (tenant) destino")
	actorID := flag.String("actor", "", "usuario que figura como autor de los saldos")
	charset := flag.String("charset", "utf-8", "codificación del CSV: utf-8 | iso-8859-1 | windows-1252")
	flag.Parse()
	if *companyID == "" || *actorID == "" || flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "uso: import_stock -company <id> -actor <id> [-charset c] <archivo.csv|archivo.xlsx>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Service: "import_stock"})

	balances, err := importer.ReadFile(flag.Arg(0), *charset)
	if err != nil {
		log.Fatal().Err(err).Str("file", flag.Arg(0)).Msg("leer saldos")
	}
	log.Info().Int("rows", len(balances)).Msg("saldos leídos")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	engine := inventory.NewLedgerEngine(
		postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
		postgres.NewInventoryRecordRepository(pool),
		postgres.NewMovementRepository(pool),
		inventory.WithLogger(log.Zerolog()),
	)
	report, err := engine.ImportOpeningBalances(ctx, *companyID, *actorID, balances)
	if err != nil {
		log.Error().Err(err).Int("registered", report.Registered).Msg("carga interrumpida")
		os.Exit(1)
	}
	for _, f := range report.Failed {
		log.Warn().Int("line", f.Line).Str("product_id", f.ProductID).Str("reason", f.Reason).Msg("fila no registrada")
	}
	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}
