package runner

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIKey    string `envconfig:"BINANCE_API_KEY"`
	APISecret string `envconfig:"BINANCE_API_SECRET"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
