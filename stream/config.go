package stream

import (
	"github.com/kbukum/streamkit/validation"
)

// Config describes a transform in a service configuration file.
//
//	stream:
//	  name: "normalize"
//	  writable:
//	    high_water_mark: 4
//	  readable:
//	    high_water_mark: 0
type Config struct {
	Name string `yaml:"name" mapstructure:"name"`
	// ID is an optional UUID; a random one is used when empty.
	ID       string         `yaml:"id" mapstructure:"id" validate:"omitempty,uuid"`
	Writable StrategyConfig `yaml:"writable" mapstructure:"writable"`
	Readable StrategyConfig `yaml:"readable" mapstructure:"readable"`
}

// StrategyConfig is the configurable part of a Strategy.
type StrategyConfig struct {
	HighWaterMark *float64 `yaml:"high_water_mark" mapstructure:"high_water_mark" validate:"omitempty,gte=0"`
}

// ApplyDefaults fills unset high-water marks with the transform defaults.
func (c *Config) ApplyDefaults() {
	if c.Writable.HighWaterMark == nil {
		hwm := float64(DefaultWritableHighWaterMark)
		c.Writable.HighWaterMark = &hwm
	}
	if c.Readable.HighWaterMark == nil {
		hwm := float64(DefaultReadableHighWaterMark)
		c.Readable.HighWaterMark = &hwm
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
