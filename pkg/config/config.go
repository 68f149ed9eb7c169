// Package config loads handler configuration from the Lambda environment.
//
// Every key has a default so a handler can start with only the variables it
// needs. Keys map to upper-cased environment variables (capture_table ->
// CAPTURE_TABLE). Durations accept Go duration strings ("15m"), lists are
// comma separated.
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/vignesh-goutham/artemis-capture/pkg/timewindow"
)

// Config is the full handler configuration
type Config struct {
	CaptureTable      string        `mapstructure:"capture_table"`
	EventsTable       string        `mapstructure:"events_table"`
	Categories        []string      `mapstructure:"capture_categories"`
	Lookback          time.Duration `mapstructure:"lookback"`
	Lookahead         time.Duration `mapstructure:"lookahead"`
	DueSoon           time.Duration `mapstructure:"due_soon"`
	LivenessTimeout   time.Duration `mapstructure:"liveness_timeout"`
	EstimatedDuration time.Duration `mapstructure:"estimated_duration"`
	StaleAfter        time.Duration `mapstructure:"stale_after"`

	WorkerFunction string        `mapstructure:"worker_function"`
	LaunchTimeout  time.Duration `mapstructure:"launch_timeout"`

	InstanceID        string        `mapstructure:"instance_id"`
	InstanceSchedule  string        `mapstructure:"instance_schedule"`
	ScheduleTimezone  string        `mapstructure:"schedule_timezone"`
	ScheduleTolerance time.Duration `mapstructure:"schedule_tolerance"`
	RequireMarketDay  bool          `mapstructure:"require_market_day"`
	ComputeTimeout    time.Duration `mapstructure:"compute_timeout"`

	ExportBucket   string        `mapstructure:"export_bucket"`
	ExportDatabase string        `mapstructure:"export_database"`
	ExportTable    string        `mapstructure:"export_table"`
	ExportURLTTL   time.Duration `mapstructure:"export_url_ttl"`

	AlpacaSecretID string `mapstructure:"alpaca_secret_id"`
	AlpacaPaper    bool   `mapstructure:"alpaca_paper"`
	CORSOrigin     string `mapstructure:"cors_origin"`
}

// SetDefaults registers the default for every known key
func SetDefaults(v *viper.Viper) {
	w := timewindow.DefaultWindows()

	v.SetDefault("capture_table", "capture_state")
	v.SetDefault("events_table", "capture_events")
	v.SetDefault("capture_categories", []string{})
	v.SetDefault("lookback", w.Lookback)
	v.SetDefault("lookahead", w.Lookahead)
	v.SetDefault("due_soon", w.DueSoon)
	v.SetDefault("liveness_timeout", w.LivenessTimeout)
	v.SetDefault("estimated_duration", w.EstimatedDuration)
	v.SetDefault("stale_after", w.Stale)

	v.SetDefault("worker_function", "capture-worker")
	v.SetDefault("launch_timeout", 5*time.Second)

	v.SetDefault("instance_id", "")
	v.SetDefault("instance_schedule", "")
	v.SetDefault("schedule_timezone", "America/New_York")
	v.SetDefault("schedule_tolerance", 10*time.Minute)
	v.SetDefault("require_market_day", true)
	v.SetDefault("compute_timeout", 10*time.Second)

	v.SetDefault("export_bucket", "")
	v.SetDefault("export_database", "trading")
	v.SetDefault("export_table", "ticks")
	v.SetDefault("export_url_ttl", 15*time.Minute)

	v.SetDefault("alpaca_secret_id", "")
	v.SetDefault("alpaca_paper", true)
	v.SetDefault("cors_origin", "*")
}

// New returns a viper instance bound to the environment with defaults applied
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	return LoadWithViper(New())
}

// LoadWithViper unmarshals and validates configuration from v
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	cfg.Categories = normalizeList(cfg.Categories)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the jobs cannot run with
func (c *Config) Validate() error {
	if c.CaptureTable == "" {
		return errors.New("capture_table must not be empty")
	}
	durations := map[string]time.Duration{
		"lookback":           c.Lookback,
		"lookahead":          c.Lookahead,
		"due_soon":           c.DueSoon,
		"liveness_timeout":   c.LivenessTimeout,
		"estimated_duration": c.EstimatedDuration,
		"stale_after":        c.StaleAfter,
		"launch_timeout":     c.LaunchTimeout,
		"compute_timeout":    c.ComputeTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return errors.Newf("%s must be positive, got %s", name, d)
		}
	}
	if c.ScheduleTolerance < 0 {
		return errors.Newf("schedule_tolerance must not be negative, got %s", c.ScheduleTolerance)
	}
	return nil
}

// Windows returns the capture time windows
func (c *Config) Windows() timewindow.Windows {
	return timewindow.Windows{
		Lookback:          c.Lookback,
		Lookahead:         c.Lookahead,
		DueSoon:           c.DueSoon,
		LivenessTimeout:   c.LivenessTimeout,
		EstimatedDuration: c.EstimatedDuration,
		Stale:             c.StaleAfter,
	}
}

// normalizeList trims entries and drops empties. An env value of "A, B" and a
// single-element slice holding "A,B" both become [A B].
func normalizeList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
