package connectors

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

const DefaultBaseURL = "https://testnet.binancefuture.com"

type Config struct {
	BaseURL         string        `envconfig:"BINANCE_FUTURES_BASE_URL" default:"https://testnet.binancefuture.com"`
	RecvWindow      int64         `envconfig:"BINANCE_RECV_WINDOW" default:"5000"`
	TimeSyncTimeout time.Duration `envconfig:"BINANCE_TIME_SYNC_TIMEOUT" default:"5s"`
	RequestTimeout  time.Duration `envconfig:"BINANCE_REQUEST_TIMEOUT" default:"10s"`
	// 0 fetches the server time before every signed call.
	TimeSyncInterval time.Duration `envconfig:"BINANCE_TIME_SYNC_INTERVAL" default:"0s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// DefaultConfig returns the tag defaults without reading the environment.
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		RecvWindow:      5000,
		TimeSyncTimeout: 5 * time.Second,
		RequestTimeout:  10 * time.Second,
	}
}

func (c Config) Validate() error {
	var err error

	if strings.TrimSpace(c.BaseURL) == "" {
		err = multierr.Append(err, errors.New("base url is required"))
	}
	if c.RecvWindow <= 0 || c.RecvWindow > 60000 {
		err = multierr.Append(err, fmt.Errorf("recv window must be in (0, 60000] ms, got %d", c.RecvWindow))
	}
	if c.TimeSyncTimeout <= 0 {
		err = multierr.Append(err, errors.New("time sync timeout must be > 0"))
	}
	if c.RequestTimeout <= 0 {
		err = multierr.Append(err, errors.New("request timeout must be > 0"))
	}
	if c.TimeSyncInterval < 0 {
		err = multierr.Append(err, errors.New("time sync interval must be >= 0"))
	}

	if err != nil {
		return fmt.Errorf("invalid connector config: %w", err)
	}
	return nil
}
