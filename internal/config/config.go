package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Layout struct {
		// ConfigFile is a YAML layout configuration. Empty selects the built-in qwerty setup.
		ConfigFile       string `env:"LAYOUT_CONFIG"`
		EvaluationParams string `env:"EVALUATION_PARAMS"`
		UnigramFile      string `env:"NGRAM_UNIGRAMS"`
		BigramFile       string `env:"NGRAM_BIGRAMS"`
		TrigramFile      string `env:"NGRAM_TRIGRAMS"`
		// CorpusFile is used when no frequency files are given.
		CorpusFile string `env:"NGRAM_CORPUS"`
	}
	Optimization struct {
		MaxJobs       int           `env:"OPT_MAX_JOBS" envDefault:"4"`
		StepPause     time.Duration `env:"OPT_STEP_PAUSE" envDefault:"0s"`
		DefaultSeeded bool          `env:"OPT_START_WITH_LAYOUT" envDefault:"true"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if cfg.Optimization.MaxJobs < 1 {
		cfg.Optimization.MaxJobs = 1
	}

	return cfg, nil
}

// GetEnv returns the value of the environment variable or the default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
