package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/LeeChanHyuk/lightning/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	LogLevel string `validate:"omitempty,oneof=ERROR WARN INFO DEBUG TRACE"`
	Profiler ProfilerConfig
	Trainer  TrainerConfig
}

// ProfilerConfig selects and configures the profiler attached to the training loop
type ProfilerConfig struct {
	Name     string `validate:"omitempty,oneof=passthrough simple base"`
	Dirpath  string
	Filename string `validate:"excludes=/"`
	Extended bool
	Export   string `validate:"omitempty,exportext"`
}

// TrainerConfig holds training loop settings
type TrainerConfig struct {
	Epochs  int `validate:"gte=1"`
	Batches int `validate:"gte=1"`
	LogDir  string
}

var validate = newValidator()

// exportExtensions are matched case-insensitively, like the exporter does
var exportExtensions = map[string]bool{".csv": true, ".xlsx": true}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("exportext", func(fl validator.FieldLevel) bool {
		return exportExtensions[strings.ToLower(filepath.Ext(fl.Field().String()))]
	})
	return v
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		LogLevel: strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "")),
		Profiler: *loadProfilerConfig(),
		Trainer:  *loadTrainerConfig(),
	}

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadProfilerConfig() *ProfilerConfig {
	return &ProfilerConfig{
		Name:     getEnvOrDefault("PROFILER", ""),
		Dirpath:  getEnvOrDefault("PROFILER_DIRPATH", ""),
		Filename: getEnvOrDefault("PROFILER_FILENAME", ""),
		Extended: getEnvBoolOrDefault("PROFILER_EXTENDED", true),
		Export:   getEnvOrDefault("PROFILER_EXPORT", ""),
	}
}

func loadTrainerConfig() *TrainerConfig {
	return &TrainerConfig{
		Epochs:  getEnvIntOrDefault("TRAINER_EPOCHS", 1),
		Batches: getEnvIntOrDefault("TRAINER_BATCHES", 10),
		LogDir:  getEnvOrDefault("LOG_DIR", "lightning_logs"),
	}
}

// Validate checks struct constraints and reports the first violation as CONFIG_INVALID
func Validate(config *Config) error {
	if err := validate.Struct(config); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return errors.ConfigInvalid(fmt.Sprintf("%s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
