package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type Config struct {
	Log    logConfig    `toml:"log" mapstructure:"log" json:"log"`
	Client clientConfig `toml:"client" mapstructure:"client" json:"client"`
	Agent  agentConfig  `toml:"agent" mapstructure:"agent" json:"agent"`
}

type logConfig struct {
	Level string `toml:"level" mapstructure:"level" json:"level"`
}

type clientConfig struct {
	// Endpoint is the agent's upload URL.
	Endpoint   string `toml:"endpoint" mapstructure:"endpoint" json:"endpoint"`
	NoProgress bool   `toml:"no_progress" mapstructure:"no_progress" json:"no_progress"`
}

var cfg *Config

// C returns the loaded config. Init must have been called.
func C() *Config {
	if cfg == nil {
		panic("config: not initialized")
	}
	return cfg
}

// Init loads the config from configFile, or from config.toml in the working
// directory or /etc/fileopener/ when configFile is empty. A missing default
// file is not an error: every key has a default.
func Init(ctx context.Context, configFile string) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/fileopener/")
		viper.SetConfigType("toml")
	}
	viper.SetEnvPrefix("FILEOPENER")
	viper.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.SetDefault("log.level", "info")

	viper.SetDefault("client.endpoint", "http://localhost:8080/upload")
	viper.SetDefault("client.no_progress", false)

	setAgentDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		log.FromContext(ctx).Debug("Loaded config", "file", viper.ConfigFileUsed())
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := c.validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

func (c *Config) validate() error {
	if c.Client.Endpoint == "" {
		return errors.New("client.endpoint must not be empty")
	}
	if c.Agent.Port < 1 || c.Agent.Port > 65535 {
		return fmt.Errorf("agent.port must be between 1 and 65535, got %d", c.Agent.Port)
	}
	if c.Agent.UploadDir == "" {
		return errors.New("agent.upload_dir must not be empty")
	}
	if c.Agent.MaxUploadSize <= 0 {
		return fmt.Errorf("agent.max_upload_size must be positive, got %d", c.Agent.MaxUploadSize)
	}
	return nil
}
