package relay

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	// Port is the port number to listen on. The default is 8080.
	Port int `validate:"required,port"`
	// Hostname is the hostname to listen on. The default is 0.0.0.0.
	Hostname string `validate:"required"`
	Relay    struct {
		// TokenSecret verifies the signed identity tokens presented at the
		// websocket handshake. Base64 encoded.
		TokenSecret Base64Encoded `mapstructure:"token_secret" validate:"required"`
		// EventTimeout bounds the store and directory work done for one
		// inbound event.
		EventTimeout time.Duration `mapstructure:"event_timeout" validate:"required"`
	}
	SQLite struct {
		// File is the path to the SQLite database file.
		File string `validate:"required"`
		// Migrations is the directory holding the goose migration files.
		Migrations string `validate:"required"`
	}
	// AllowedOrigins lists the origins allowed to open a connection.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// LogLevel is one of debug | info | warn | error.
	LogLevel string `mapstructure:"log_level"`
}

type Base64Encoded []byte

func (b *Base64Encoded) UnmarshalText(text []byte) error {
	dec, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("base64 decode: %w", err)
	}
	*b = dec
	return nil
}

// LoadConfig reads the configuration from config.yaml and environment
// variables, environment taking precedence. A .env file is honored when
// present.
func LoadConfig() (*Config, error) {
	godotenv.Load()

	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("port", 8080)
	viper.SetDefault("hostname", "0.0.0.0")
	// generate a random secret when none is configured
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	viper.SetDefault("relay.token_secret", base64.StdEncoding.EncodeToString(secret))
	viper.SetDefault("relay.event_timeout", "10s")
	viper.SetDefault("sqlite.file", "./relay.db")
	viper.SetDefault("sqlite.migrations", "./migrations")
	viper.SetDefault("allowed_origins", "*")
	viper.SetDefault("log_level", "info")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)),
	); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	return validate.Struct(c)
}
