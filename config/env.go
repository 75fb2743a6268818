package config

import (
	"os"
)

// Environment represents the current runtime environment
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	CI          Environment = "ci"
	Production  Environment = "production"
)

// GetEnvironment determines the current environment
func GetEnvironment() Environment {
	// CI environment is automatically detected
	if os.Getenv("CI") == "true" {
		return CI
	}

	env := os.Getenv(envPrefix + "_ENV")
	if env == "" {
		env = os.Getenv("ENV")
	}

	switch env {
	case "production":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}
