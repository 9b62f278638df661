package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel        string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort        string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort      string        `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	TurnTimeout     time.Duration `yaml:"turn-timeout" env:"TURN_TIMEOUT" env-default:"30s"`
	DisconnectGrace time.Duration `yaml:"disconnect-grace" env:"DISCONNECT_GRACE" env-default:"15s"`
	Redis           Redis         `yaml:"redis"`
}

// Redis is optional: with no host configured the match archive is disabled.
type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// MustLoad - loads the configuration from the given yml file, falling back
// to environment variables alone when the file does not exist.
func MustLoad(path string) *Config {
	config := &Config{}

	if _, err := os.Stat(path); err != nil {
		if err = cleanenv.ReadEnv(config); err != nil {
			panic(fmt.Errorf("unable to read config from environment: %w", err))
		}

		return config
	}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	if that.Host == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
