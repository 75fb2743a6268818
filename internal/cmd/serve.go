package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/api"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/server"
	"github.com/foodgram/backend/internal/service"
)

type ServeCmd struct {
	ConfigFile    string `help:"Path to config file" short:"c"`
	Migrate       bool   `help:"Run migrations before serving"`
	MigrationsDir string `default:"migrations" help:"Directory with SQL migrations (postgres only)"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	logConfig := zap.NewProductionConfig()
	if ctx.Debug {
		logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, _ := logConfig.Build()
	defer logger.Sync() //nolint:errcheck // we don't care about logger sync errors

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conf, db, err := setup(s.ConfigFile, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if s.Migrate {
		if err := database.RunMigrations(db, s.MigrationsDir, logger); err != nil {
			logger.Error("migration failed", zap.Error(err))
			return err
		}
	}

	deps := api.Deps{DB: db, Logger: logger, Revoker: service.NewDBRevoker(db)}

	if conf.Redis.URL != "" {
		client, err := database.NewRedisClient(runCtx, conf.Redis, logger)
		if err != nil {
			logger.Error("error connecting to redis", zap.Error(err))
			return err
		}
		defer client.Close() //nolint:errcheck // closing on shutdown
		deps.Redis = client
		deps.Revoker = service.NewRedisRevoker(client)
	}

	if deps.Images, err = imageStore(runCtx, conf.Storage, logger); err != nil {
		return err
	}

	deps.Registry = prometheus.NewRegistry()
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := server.New(conf.Server, api.NewRouter(conf, deps), logger)
	return srv.Run(runCtx)
}

func imageStore(ctx context.Context, st config.Storage, logger *zap.Logger) (service.ImageStore, error) {
	if st.Backend != "s3" {
		logger.Info("Storing images on disk", zap.String("dir", st.Dir))
		return service.NewDiskImageStore(st.Dir, st.PublicURL), nil
	}

	s3Config, err := config.NewS3Config(ctx, st)
	if err != nil {
		logger.Error("error configuring S3", zap.Error(err))
		return nil, err
	}
	if st.PublicPolicy {
		if err := s3Config.SetupBucketPolicy(ctx); err != nil {
			logger.Warn("Failed to apply public bucket policy", zap.String("bucket", st.Bucket), zap.Error(err))
		}
	}

	logger.Info("Storing images in S3", zap.String("bucket", st.Bucket))
	return service.NewS3ImageStoreFromConfig(s3Config, st.PublicURL, logger), nil
}
