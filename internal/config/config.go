// Package config defines process configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log records.
	LogFormat string `koanf:"log_format"`

	// StoreDriver picks the game log backend: sqlite or badger.
	StoreDriver string `koanf:"store_driver"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// BadgerDir is the badger data directory.
	BadgerDir string `koanf:"badger_dir"`

	// LineupSize is the number of distinct starters `new` requires.
	LineupSize int `koanf:"lineup_size"`

	// RosterDelimiter separates fields in roster files.
	RosterDelimiter string `koanf:"roster_delimiter"`

	// MetricsFile, when set, receives a Prometheus textfile after each command.
	MetricsFile string `koanf:"metrics_file"`

	// MetricsEnabled turns recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsBuckets overrides the latency histogram buckets (milliseconds).
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// MetricsLabels are constant labels added to every metric, e.g. team or venue.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		StoreDriver:      DriverSQLite,
		DBPath:           "courttime.db",
		BadgerDir:        "courttime.badger",
		LineupSize:       5,
		RosterDelimiter:  ",",
		MetricsEnabled:   true,
		MetricsNamespace: "courttime",
		MetricsSubsystem: "ledger",
	}
}
