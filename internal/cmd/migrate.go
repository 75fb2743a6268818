package cmd

import (
	"go.uber.org/zap"

	"github.com/foodgram/backend/internal/database"
)

type MigrateCmd struct {
	ConfigFile    string `help:"Path to config file" short:"c"`
	MigrationsDir string `default:"migrations" help:"Directory with SQL migrations (postgres only)"`
}

func (m *MigrateCmd) Run(ctx *Context) error {
	logger := developmentLogger(ctx.Debug)
	defer logger.Sync() //nolint:errcheck // we don't care about logger sync errors

	_, db, err := setup(m.ConfigFile, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.RunMigrations(db, m.MigrationsDir, logger); err != nil {
		logger.Error("migration failed", zap.Error(err))
		return err
	}

	logger.Info("Migrations complete")
	return nil
}
