package config

import "fmt"

// DeviceBackend selects which device.Executor a Manager uses.
type DeviceBackend int

const (
	DeviceHost DeviceBackend = iota
	DeviceGPU
)

func (d DeviceBackend) String() string {
	switch d {
	case DeviceHost:
		return "host"
	case DeviceGPU:
		return "gpu"
	default:
		return "unknown"
	}
}

// Config holds the knobs that govern how an evaluation engine is
// built and run, separate from the physics model itself (reaction,
// terms, factors), which is assembled directly through the
// amplitude.Manager API.
type Config struct {
	DeviceBackend DeviceBackend

	// LegacyLnLikScaling turns off the default division of every
	// V_i*conj(V_j) entry by the buffer's true event count (see
	// amplitude.Manager.LegacyLnLikScaling), matching an older
	// normalization convention some comparison fits still rely on.
	LegacyLnLikScaling bool

	// ForceUserVarRecalculation disables the per-buffer user-variable
	// cache; useful when validating a factor implementation whose
	// user variables are suspected not to be purely four-vector
	// derived.
	ForceUserVarRecalculation bool

	// EventPadding is the event-count block size for buffers. Validate
	// requires a positive power of two. amplitude.NewEventBuffer does
	// not read it: it always pads to a multiple of 8.
	EventPadding int

	// MaxEventsPerBuffer is a per-buffer event limit. Validate requires
	// it to be positive; nothing in this module checks buffer sizes
	// against it.
	MaxEventsPerBuffer int

	// ProfilerMarkers is a switch for per-stage profiling events. No
	// pipeline stage reads it, so setting it emits nothing extra.
	ProfilerMarkers bool

	// CoordinatorListenAddr is an address for a coordinator's Arrow
	// Flight server. No binary reads it: in this module the follower
	// is the side that listens (cmd/ampfollower's -listen flag).
	CoordinatorListenAddr string

	// CoordinatorDialAddr is an address for a coordinator to dial. No
	// binary reads it: in this module the leader dials its followers
	// (cmd/ampleader's -follower flag).
	CoordinatorDialAddr string
}

// Validate reports the first configuration problem found, if any.
func (c *Config) Validate() error {
	if c.EventPadding <= 0 {
		return fmt.Errorf("invalid event_padding: %d (must be positive)", c.EventPadding)
	}
	if c.EventPadding&(c.EventPadding-1) != 0 {
		return fmt.Errorf("invalid event_padding: %d (must be a power of two)", c.EventPadding)
	}
	if c.MaxEventsPerBuffer <= 0 {
		return fmt.Errorf("invalid max_events_per_buffer: %d (must be positive)", c.MaxEventsPerBuffer)
	}
	if c.DeviceBackend != DeviceHost && c.DeviceBackend != DeviceGPU {
		return fmt.Errorf("invalid device_backend: %d", c.DeviceBackend)
	}
	if c.DeviceBackend == DeviceGPU {
		return c.validateGPU()
	}
	return nil
}

func (c *Config) validateGPU() error {
	// The GPU backend only specifies a host-side contract today; any
	// config built with it is accepted but will panic on first use.
	return nil
}

// Default returns a host-backed configuration with the settings a
// single-process fit would use out of the box.
func Default() Config {
	return Config{
		DeviceBackend:      DeviceHost,
		EventPadding:       8,
		MaxEventsPerBuffer: 1 << 24,
	}
}
