package config

import (
	"fmt"

	"go.uber.org/multierr"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks if the configuration meets the requirements for the given environment
func ValidateConfig(cfg *Config, env Environment) error {
	var err error

	switch cfg.DB.Driver {
	case "postgres":
		if cfg.DB.Host == "" {
			err = multierr.Append(err, ValidationError{"db.host", "required for postgres"})
		}
	case "sqlite":
		if cfg.DB.Path == "" {
			err = multierr.Append(err, ValidationError{"db.path", "required for sqlite"})
		}
	default:
		err = multierr.Append(err, ValidationError{"db.driver", fmt.Sprintf("unsupported driver %q", cfg.DB.Driver)})
	}

	switch cfg.Storage.Backend {
	case "disk", "s3":
	default:
		err = multierr.Append(err, ValidationError{"storage.backend", fmt.Sprintf("unsupported backend %q", cfg.Storage.Backend)})
	}
	if cfg.Storage.Backend == "s3" && cfg.Storage.Bucket == "" {
		err = multierr.Append(err, ValidationError{"storage.bucket", "required for s3"})
	}

	if cfg.Pagination.DefaultLimit < 1 || cfg.Pagination.DefaultLimit > cfg.Pagination.MaxLimit {
		err = multierr.Append(err, ValidationError{"pagination.default_limit", "must be between 1 and pagination.max_limit"})
	}
	if cfg.Recipes.DefaultRecipesLimit < 0 || cfg.Recipes.DefaultRecipesLimit > cfg.Recipes.MaxRecipesLimit {
		err = multierr.Append(err, ValidationError{"recipes.default_recipes_limit", "must be between 0 and recipes.max_recipes_limit"})
	}
	if cfg.Auth.TokenTTL <= 0 {
		err = multierr.Append(err, ValidationError{"auth.token_ttl", "must be positive"})
	}

	if env == Production {
		if cfg.Auth.SecretKey == "" || cfg.Auth.SecretKey == devSecretKey {
			err = multierr.Append(err, ValidationError{"auth.secret_key", "jwt_secret secret is required"})
		}
		if cfg.DB.Driver == "sqlite" {
			err = multierr.Append(err, ValidationError{"db.driver", "sqlite is not allowed in production"})
		}
		if cfg.DB.Driver == "postgres" && cfg.DB.Password == "" {
			err = multierr.Append(err, ValidationError{"db.password", "db_password secret is required"})
		}
		if cfg.Storage.Backend != "s3" {
			err = multierr.Append(err, ValidationError{"storage.backend", "s3 is required in production"})
		}
	}

	return err
}
