package cmd

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/database"
)

type Context struct {
	Debug bool
}

var CLI struct {
	Debug bool `help:"Enable debug mode"`

	Serve           ServeCmd           `cmd:"" default:"1" help:"Run the API server"`
	Migrate         MigrateCmd         `cmd:"" help:"Run database migrations"`
	LoadIngredients LoadIngredientsCmd `cmd:"" help:"Load ingredients from a JSON file"`
	LoadTags        LoadTagsCmd        `cmd:"" help:"Load tags from a JSON file"`
	CreateAdmin     CreateAdminCmd     `cmd:"" help:"Create an administrator account"`
	SeedDemo        SeedDemoCmd        `cmd:"" help:"Create demo accounts and recipes"`
}

func developmentLogger(debug bool) *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.DisableStacktrace = !debug

	logger, _ := logConfig.Build()
	return logger
}

// setup loads the config and opens the database for the one-shot commands.
func setup(configFile string, logger *zap.Logger) (*config.Config, *gorm.DB, error) {
	conf, err := config.GetConfig(configFile, logger)
	if err != nil {
		logger.Error("error loading config", zap.Error(err))
		return nil, nil, err
	}

	db, err := database.Open(conf.DB, logger)
	if err != nil {
		logger.Error("error connecting to database", zap.Error(err))
		return nil, nil, err
	}
	return conf, db, nil
}
