package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/internal/inventory/service"
	"github.com/brgycare/brgycare-backend/pkg/config"
	"github.com/brgycare/brgycare-backend/pkg/database"
	"github.com/brgycare/brgycare-backend/pkg/logger"
)

// migrate-batches converts legacy flat stock fields into batch records.
// It reports what it would do by default; pass -execute to write.
func main() {
	var (
		familyFlag  = flag.String("family", "all", "item family to migrate: medication, vaccine, or all")
		executeFlag = flag.Bool("execute", false, "apply the migration (default is a dry run)")
	)
	flag.Parse()

	cfg, err := config.Load("migrate-batches")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("migrate-batches", cfg.Server.Environment)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	var families []repository.Family
	if *familyFlag == "all" {
		families = repository.Families
	} else {
		f, err := repository.FamilyFor(*familyFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unknown family %q (use medication, vaccine, or all)\n", *familyFlag)
			os.Exit(1)
		}
		families = []repository.Family{f}
	}

	itemRepo := repository.NewItemRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	migrator := service.NewMigrator(itemRepo, batchRepo, movementRepo, log)
	policy := service.Policy{
		ExpiryWarningDays:   cfg.Inventory.ExpiryWarningDays,
		DefaultMinimumStock: cfg.Inventory.DefaultMinimumStock,
	}
	inventoryService := service.NewInventoryService(db, itemRepo, batchRepo, movementRepo, alertRepo, nil, policy, log)

	ctx := context.Background()
	exitCode := 0

	for _, f := range families {
		report, err := migrator.Migrate(ctx, f, *executeFlag)
		if err != nil {
			log.Fatal().Err(err).Str("family", f.Kind).Msg("migration failed")
		}

		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))

		if report.Failed > 0 {
			exitCode = 1
		}

		if *executeFlag && report.Migrated > 0 {
			reconciled, err := inventoryService.ReconcileAll(ctx, f)
			if err != nil {
				log.Error().Err(err).Str("family", f.Kind).Msg("post-migration reconciliation failed")
				exitCode = 1
				continue
			}
			log.Info().Str("family", f.Kind).Int("reconciled", reconciled).Msg("statuses reconciled")
		}
	}

	if !*executeFlag {
		fmt.Fprintln(os.Stderr, "dry run only; re-run with -execute to apply")
	}

	os.Exit(exitCode)
}
