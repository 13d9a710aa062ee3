package netsock

import (
	"errors"

	"github.com/cykyes/netsock/log"
	"github.com/cykyes/netsock/metrics"
)

// Config configures a Network.
type Config struct {
	// EventQueueSize is the fixed capacity of the lifecycle event
	// queue. Events posted to a full queue are dropped.
	EventQueueSize int

	// MaxSockets caps the number of live sockets. 0 means the default.
	MaxSockets int

	// Backlog is the listen(2) backlog for TCP sockets.
	Backlog int

	// Logger receives socket diagnostics. Defaults to log.Nop().
	Logger log.Logger

	// Metrics receives counters. Defaults to metrics.Global.
	Metrics *metrics.Collector
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		EventQueueSize: 256,
		MaxSockets:     512,
		Backlog:        128,
		Logger:         log.Nop(),
		Metrics:        metrics.Global,
	}
}

// Validate checks configuration values.
func (c *Config) Validate() error {
	var errs []error

	if c.EventQueueSize <= 0 {
		errs = append(errs, errors.New("EventQueueSize must be positive"))
	}
	if c.MaxSockets <= 0 {
		errs = append(errs, errors.New("MaxSockets must be positive"))
	}
	if c.Backlog <= 0 {
		errs = append(errs, errors.New("Backlog must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) withDefaults() *Config {
	out := *c
	def := DefaultConfig()
	if out.EventQueueSize == 0 {
		out.EventQueueSize = def.EventQueueSize
	}
	if out.MaxSockets == 0 {
		out.MaxSockets = def.MaxSockets
	}
	if out.Backlog == 0 {
		out.Backlog = def.Backlog
	}
	if out.Logger == nil {
		out.Logger = def.Logger
	}
	if out.Metrics == nil {
		out.Metrics = def.Metrics
	}
	return &out
}
