package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/inventory-service/pkg/config"
	"github.com/angelmondragon/inventory-service/pkg/db"
	"github.com/angelmondragon/inventory-service/pkg/db/models"
	"github.com/angelmondragon/inventory-service/pkg/logger"
)

// Prepare brings the schema up at startup when INVENTORY_AUTO_MIGRATE is set
// in dev. SQLite schemas come from the models. Elsewhere it only warns about
// pending Postgres migrations.
func Prepare(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	autoRun := cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate

	if cfg.FeatureFlags.UseSQLite {
		if !autoRun {
			return nil
		}
		logg.Info(ctx, "auto-migrating sqlite schema")
		if err := AutoMigrateModels(ctx, client); err != nil {
			return fmt.Errorf("auto-migrating sqlite: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	source, err := Source("")
	if err != nil {
		return err
	}
	migrator, err := NewMigrator(sqlDB, source, logg)
	if err != nil {
		return err
	}

	if autoRun {
		logg.Info(ctx, "applying embedded migrations (dev auto-run)")
		return migrator.Up(ctx)
	}

	pending, err := migrator.Pending(ctx)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "could not check schema version")
		return nil
	}
	if pending {
		logg.Warn(ctx, "database schema has pending migrations; run cmd/migrate")
	}
	return nil
}

// AutoMigrateModels creates the inventory tables through GORM.
func AutoMigrateModels(ctx context.Context, client *db.Client) error {
	return client.DB().WithContext(ctx).AutoMigrate(
		&models.InventoryItem{},
		&models.InventoryTransaction{},
		&models.StockReservation{},
	)
}
