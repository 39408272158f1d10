package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/noah-isme/course-catalog-api/internal/migrations"
	"github.com/noah-isme/course-catalog-api/pkg/config"
	"github.com/noah-isme/course-catalog-api/pkg/database"
)

type options struct {
	jsonOutput bool
	connect    func(ctx context.Context) (*sqlx.DB, error)
}

func newRootCmd() *cobra.Command {
	opts := &options{connect: connectFromEnv}

	root := &cobra.Command{
		Use:   "catalogctl",
		Short: "Course catalog administration",
		Long: `catalogctl manages the course catalog database schema.

Connection settings come from the same DB_* environment variables (or .env
file) the API server reads.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	root.AddCommand(newMigrateCmd(opts))
	return root
}

func connectFromEnv(ctx context.Context) (*sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func (o *options) migrator(ctx context.Context) (*migrations.Migrator, func(), error) {
	db, err := o.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	migrator, err := migrations.New(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return migrator, func() { _ = db.Close() }, nil
}
