// Package config provides configuration management for camera-timing-analyzer.
package config

// Config holds all configuration options for one analysis run.
//
// Fields tagged for YAML can also be set from a --config file; command-line
// flags win over the file.
type Config struct {
	// Input
	LogPath    string `yaml:"-"`
	ConfigFile string `yaml:"-"`

	// Analysis thresholds
	GrabCauseMs    int     `yaml:"grab_cause_ms"`    // delays with grab time above this are grab-caused
	GrabCauseRatio float64 `yaml:"grab_cause_ratio"` // fraction of grab-caused delays that blames the camera
	DelayRateRatio float64 `yaml:"delay_rate_ratio"` // delays/frames above this suggests resource trouble
	WorstDelays    int     `yaml:"worst_delays"`     // how many worst delays to list

	// Report
	Color       bool `yaml:"color"`
	ShowSkipped bool `yaml:"show_skipped"`
	Interactive bool `yaml:"interactive"`

	// Outputs
	MetricsTextfile string `yaml:"metrics_textfile"`

	// Observability
	LogFormat string `yaml:"log_format"` // json, text
	LogLevel  string `yaml:"log_level"`
	Verbose   bool   `yaml:"verbose"`
}

// DefaultConfig returns a Config with the analyzer's standard thresholds.
func DefaultConfig() *Config {
	return &Config{
		// Thresholds
		GrabCauseMs:    100,
		GrabCauseRatio: 0.7,
		DelayRateRatio: 0.1,
		WorstDelays:    5,

		// Observability
		LogFormat: "text",
		LogLevel:  "warn",
	}
}
