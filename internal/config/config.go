// Package config defines rig configuration and its loading hooks.
//
// Conventions:
// - New returns a Config holding every default.
// - Load layers a YAML file and RIG_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig; source failures wrap ErrLoadConfig.
package config

import (
	"time"

	"github.com/okian/markerrig/internal/domain/marker"
	"github.com/okian/markerrig/internal/domain/model"
	"github.com/okian/markerrig/internal/domain/reaction"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the status HTTP listen address, e.g. ":9180".
	// Empty disables the HTTP server.
	Addr string `koanf:"addr"`

	// MarkerHost and MarkerPort address the recording equipment.
	MarkerHost string `koanf:"marker_host"`
	MarkerPort int    `koanf:"marker_port"`

	// MarkerTable selects the built-in protocol table.
	MarkerTable string `koanf:"marker_table"`

	// MarkerOverrides adds or replaces table entries at startup.
	MarkerOverrides map[string]int `koanf:"marker_overrides"`

	// LSLEnabled mirrors markers to the sync-stream placeholder.
	LSLEnabled bool `koanf:"lsl_enabled"`

	// MQTTBroker (host:port) enables the MQTT mirror when set.
	MQTTBroker   string `koanf:"mqtt_broker"`
	MQTTTopic    string `koanf:"mqtt_topic"`
	MQTTClientID string `koanf:"mqtt_client_id"`

	// BCI ingestion.
	BCIEnabled   bool   `koanf:"bci_enabled"`
	BCIURL       string `koanf:"bci_url"`
	BCIQueueSize int    `koanf:"bci_queue_size"`
	BCITickMS    int    `koanf:"bci_tick_ms"`

	// Reactive driver.
	ReactionCooldownMS int     `koanf:"reaction_cooldown_ms"`
	ReactionEpsilon    float64 `koanf:"reaction_epsilon"`

	// Session timing.
	OpenRestSec       int `koanf:"open_rest_sec"`
	CloseRestSec      int `koanf:"close_rest_sec"`
	InterTrialDelayMS int `koanf:"inter_trial_delay_ms"`
	FinishDelayMS     int `koanf:"finish_delay_ms"`

	// MediaDir is where trial media files are resolved.
	MediaDir string `koanf:"media_dir"`

	// PlayerCommand runs one video; "{media}" is replaced by the file path.
	// Empty selects the timed player, which ends after PlayerFixedMS.
	PlayerCommand string `koanf:"player_command"`
	PlayerFixedMS int    `koanf:"player_fixed_ms"`

	// Trials lists the videos in presentation order.
	Trials []model.Trial `koanf:"trials"`

	// StorePath selects the SQLite journal. Empty keeps the journal in memory.
	StorePath string `koanf:"store_path"`

	// StdinInput reads keypad ratings from standard input.
	StdinInput bool `koanf:"stdin_input"`

	// RatingDedupeSize bounds how many remote rating ids are remembered.
	RatingDedupeSize int `koanf:"rating_dedupe_size"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9180",
		MarkerHost:         "192.168.1.11",
		MarkerPort:         9999,
		MarkerTable:        marker.ProtocolVideoRating,
		MQTTTopic:          "markerrig",
		MQTTClientID:       "markerrig",
		BCIEnabled:         true,
		BCIURL:             "ws://127.0.0.1:8765/ws",
		BCIQueueSize:       256,
		BCITickMS:          50,
		ReactionCooldownMS: int(reaction.DefaultCooldown / time.Millisecond),
		ReactionEpsilon:    reaction.DefaultEpsilon,
		OpenRestSec:        60,
		CloseRestSec:       60,
		InterTrialDelayMS:  1000,
		FinishDelayMS:      2000,
		MediaDir:           "media",
		PlayerFixedMS:      30_000,
		Trials: []model.Trial{
			{Media: "video1.mp4", Category: "Happy"},
			{Media: "video2.mp4", Category: "Sad"},
			{Media: "video3.mp4", Category: "Calm"},
		},
		StdinInput:       true,
		RatingDedupeSize: 1024,
	}
}

// OpenRest returns the eyes-open rest duration.
func (c *Config) OpenRest() time.Duration { return time.Duration(c.OpenRestSec) * time.Second }

// CloseRest returns the eyes-closed rest duration.
func (c *Config) CloseRest() time.Duration { return time.Duration(c.CloseRestSec) * time.Second }

// InterTrialDelay returns the pause between a trial's last rating and the next video.
func (c *Config) InterTrialDelay() time.Duration {
	return time.Duration(c.InterTrialDelayMS) * time.Millisecond
}

// FinishDelay returns the pause between "Exp End" and exit.
func (c *Config) FinishDelay() time.Duration {
	return time.Duration(c.FinishDelayMS) * time.Millisecond
}

// BCITick returns the pump interval.
func (c *Config) BCITick() time.Duration { return time.Duration(c.BCITickMS) * time.Millisecond }

// ReactionCooldown returns the minimum gap between reactions.
func (c *Config) ReactionCooldown() time.Duration {
	return time.Duration(c.ReactionCooldownMS) * time.Millisecond
}

// PlayerFixed returns the timed player's clip length.
func (c *Config) PlayerFixed() time.Duration {
	return time.Duration(c.PlayerFixedMS) * time.Millisecond
}

// Overrides converts MarkerOverrides to table entries. Validate has already
// checked every value fits a byte.
func (c *Config) Overrides() map[string]marker.Code {
	if len(c.MarkerOverrides) == 0 {
		return nil
	}
	out := make(map[string]marker.Code, len(c.MarkerOverrides))
	for name, v := range c.MarkerOverrides {
		out[name] = marker.Code(v) //nolint:gosec // range checked in Validate
	}
	return out
}
