package cmd

import (
	"context"

	"go.uber.org/zap"

	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/types"
)

type CreateAdminCmd struct {
	ConfigFile string `help:"Path to config file" short:"c"`
	Username   string `required:"" help:"Login name"`
	Email      string `required:"" help:"Email address used to log in"`
	FirstName  string `default:"Admin" help:"First name"`
	LastName   string `default:"Admin" help:"Last name"`
	Password   string `required:"" env:"FOODGRAM_ADMIN_PASSWORD" help:"Password (at least 8 characters)"`
}

func (a *CreateAdminCmd) Run(ctx *Context) error {
	logger := developmentLogger(ctx.Debug)
	defer logger.Sync() //nolint:errcheck // we don't care about logger sync errors

	conf, db, err := setup(a.ConfigFile, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	auth := service.NewAuthService(db, conf.Auth.SecretKey, conf.Auth.TokenTTL, service.NewDBRevoker(db), logger)
	user, err := auth.CreateAdmin(context.Background(), types.RegisterRequest{
		Email:     a.Email,
		Username:  a.Username,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Password:  a.Password,
	})
	if err != nil {
		logger.Error("failed to create admin", zap.Error(err))
		return err
	}

	logger.Info("Created admin", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return nil
}
