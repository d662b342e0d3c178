package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	OCOPollInterval time.Duration `envconfig:"OCO_POLL_INTERVAL" default:"2s"`
	OCOTimeout      time.Duration `envconfig:"OCO_TIMEOUT" default:"300s"`
	// false keeps polling after a lone take-profit fill until the stop fills or the session times out.
	OCOResolveOnLimitFill bool          `envconfig:"OCO_RESOLVE_ON_LIMIT_FILL" default:"true"`
	OCOCancelTimeout      time.Duration `envconfig:"OCO_CANCEL_TIMEOUT" default:"10s"`
	TWAPSlices            int           `envconfig:"TWAP_SLICES" default:"5"`
	TWAPInterval          time.Duration `envconfig:"TWAP_INTERVAL" default:"60s"`
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
		OCOPollInterval:       2 * time.Second,
		OCOTimeout:            300 * time.Second,
		OCOResolveOnLimitFill: true,
		OCOCancelTimeout:      10 * time.Second,
		TWAPSlices:            5,
		TWAPInterval:          60 * time.Second,
	}
}

func (c Config) Validate() error {
	var err error

	if c.OCOPollInterval <= 0 {
		err = multierr.Append(err, errors.New("oco poll interval must be > 0"))
	}
	if c.OCOTimeout <= 0 {
		err = multierr.Append(err, errors.New("oco timeout must be > 0"))
	}
	if c.OCOCancelTimeout <= 0 {
		err = multierr.Append(err, errors.New("oco cancel timeout must be > 0"))
	}
	if c.TWAPSlices < 1 {
		err = multierr.Append(err, fmt.Errorf("twap slices must be >= 1, got %d", c.TWAPSlices))
	}
	if c.TWAPInterval < 0 {
		err = multierr.Append(err, errors.New("twap interval must be >= 0"))
	}

	if err != nil {
		return fmt.Errorf("invalid strategy config: %w", err)
	}
	return nil
}
