package main

import (
	"context"
	"time"

	mongoMigration "parkslot/internal/migrations/mongo"
	postgresMigration "parkslot/internal/migrations/postgres"
	"parkslot/pkg/config"
)

const JobName = "parkslot-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	defer cfg.GracefulShutdown()

	switch cfg.StorageBackend {
	case config.StorageMongo:
		cfg.SetMongo()
		cfg.Log.Info("Starting Mongo migration job")
		if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
			cfg.Log.Fatal("Migration failed", "error", err)
		}
	case config.StoragePostgres:
		cfg.SetPostgres()
		cfg.Log.Info("Starting Postgres migration job")
		if err := postgresMigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log); err != nil {
			cfg.Log.Fatal("Migration failed", "error", err)
		}
	default:
		cfg.Log.Info("Nothing to migrate", "backend", cfg.StorageBackend)
		return
	}

	cfg.Log.Info("Migration completed successfully")
}
