package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	pgdb "parkslot/pkg/db/postgres"
	"parkslot/pkg/logger"
)

//go:embed schema.sql
var schema string

// Statements splits the embedded schema into individually executable statements.
func Statements() []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// RunMigration applies the schema in one transaction. Every statement is idempotent.
func RunMigration(ctx context.Context, db *sql.DB, log *logger.Logger) error {
	log.Info("Running Postgres migrations")

	txManager := pgdb.NewTransactionManager(db)
	err := txManager.ExecuteTransaction(ctx, func(ctx context.Context) error {
		exec := pgdb.GetExecutor(ctx, db)
		for i, stmt := range Statements() {
			if _, err := exec.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("All Postgres migrations applied")
	return nil
}
