package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/internal/inventory/service"
	"github.com/brgycare/brgycare-backend/pkg/config"
	"github.com/brgycare/brgycare-backend/pkg/database"
	"github.com/brgycare/brgycare-backend/pkg/logger"
)

// export-legacy writes a dated JSON snapshot of the whole inventory,
// kept as an offline record at the health center.
func main() {
	dirFlag := flag.String("dir", "", "output directory (defaults to the configured snapshot dir)")
	flag.Parse()

	cfg, err := config.Load("export-legacy")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("export-legacy", cfg.Server.Environment)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	dir := *dirFlag
	if dir == "" {
		dir = cfg.Inventory.SnapshotDir
	}

	itemRepo := repository.NewItemRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	policy := service.Policy{
		ExpiryWarningDays:   cfg.Inventory.ExpiryWarningDays,
		DefaultMinimumStock: cfg.Inventory.DefaultMinimumStock,
	}
	inventoryService := service.NewInventoryService(db, itemRepo, batchRepo, movementRepo, alertRepo, nil, policy, log)

	path, err := inventoryService.WriteSnapshot(context.Background(), dir)
	if err != nil {
		log.Fatal().Err(err).Msg("snapshot export failed")
	}

	fmt.Println(path)
}
