package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	App struct {
		Name     string `envconfig:"NAME" default:"quickassist-client"`
		Env      string `envconfig:"ENV" default:"development"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	} `envconfig:"APP"`

	API struct {
		BaseURL        string `envconfig:"BASE_URL" default:"http://127.0.0.1:8000/api"`
		TimeoutSeconds int    `envconfig:"TIMEOUT_SECONDS" default:"15"`
	} `envconfig:"API"`

	WS struct {
		BaseURL   string `envconfig:"BASE_URL" default:"ws://127.0.0.1:8000/ws"`
		Reconnect struct {
			InitialIntervalMS int64 `envconfig:"INITIAL_INTERVAL_MS" default:"500"`
			MaxIntervalMS     int64 `envconfig:"MAX_INTERVAL_MS" default:"30000"`
			MaxRetries        int   `envconfig:"MAX_RETRIES" default:"10"`
		} `envconfig:"RECONNECT"`
	} `envconfig:"WS"`

	Auth struct {
		CredentialsFile string `envconfig:"CREDENTIALS_FILE" default:".quickassist/credentials.json"`
	} `envconfig:"AUTH"`

	Geo struct {
		SampleIntervalMS int64 `envconfig:"SAMPLE_INTERVAL_MS" default:"3000"`
	} `envconfig:"GEO"`

	External struct {
		Otel struct {
			Endpoint string `envconfig:"ENDPOINT"`
		} `envconfig:"OTEL"`
	}
}

var (
	conf        Config
	once        sync.Once
	initialized bool
)

func Init() error {
	var err error

	once.Do(func() {
		err = godotenv.Load(".env")
		if err != nil {
			log.Warn().Err(err).Msg("Could not load .env file, continuing with existing environment variables")
		} else {
			log.Info().Msg("Successfully loaded variables from .env file into environment")
		}

		err = envconfig.Process("", &conf)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to process environment variables")
		}

		initialized = true

		log.Info().Msg("Client configuration initialized successfully")
	})

	if err != nil {
		return fmt.Errorf("loading .env file: %w", err)
	}

	return nil
}

func Get() *Config {
	if !initialized {
		if err := Init(); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize configuration")
		}
	}

	return &conf
}
