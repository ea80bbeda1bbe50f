package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// flagCategories groups flags for the usage text.
var flagCategories = []struct {
	title string
	names []string
}{
	{"Analysis", []string{"grab-cause-ms", "grab-cause-ratio", "delay-rate-ratio", "worst-delays"}},
	{"Report", []string{"color", "show-skipped", "interactive"}},
	{"Outputs", []string{"metrics-textfile"}},
	{"Observability", []string{"log-format", "log-level", "verbose"}},
	{"Configuration", []string{"config"}},
}

// BindFlags registers every option on fs, writing into cfg.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	// Analysis
	fs.IntVar(&cfg.GrabCauseMs, "grab-cause-ms", cfg.GrabCauseMs, "Grab time (ms) above which a long delay counts as grab-caused")
	fs.Float64Var(&cfg.GrabCauseRatio, "grab-cause-ratio", cfg.GrabCauseRatio, "Fraction of grab-caused delays that points at camera/USB")
	fs.Float64Var(&cfg.DelayRateRatio, "delay-rate-ratio", cfg.DelayRateRatio, "Delay events per frame above which resources are suspected")
	fs.IntVar(&cfg.WorstDelays, "worst-delays", cfg.WorstDelays, "Number of worst delays to list")

	// Report
	fs.BoolVar(&cfg.Color, "color", cfg.Color, "Style the report with terminal colors")
	fs.BoolVar(&cfg.ShowSkipped, "show-skipped", cfg.ShowSkipped, "List malformed marker lines in the report footnotes")
	fs.BoolVar(&cfg.Interactive, "interactive", cfg.Interactive, "Open the report in a scrollable pager")

	// Outputs
	fs.StringVar(&cfg.MetricsTextfile, "metrics-textfile", cfg.MetricsTextfile,
		"Write analysis gauges to this file in node_exporter textfile format")

	// Observability
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, `Log level: "debug", "info", "warn", "error"`)
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose logging (debug level)")

	// Configuration
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML file with option defaults")
}

// ApplyFile loads cfg.ConfigFile, if set, underneath the flags already parsed
// into fs. Flags given on the command line keep their values.
func ApplyFile(fs *pflag.FlagSet, cfg *Config) error {
	if cfg.ConfigFile == "" {
		return nil
	}

	changed := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	if err := LoadFile(cfg.ConfigFile, cfg); err != nil {
		return err
	}

	for name, value := range changed {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("reapply --%s: %w", name, err)
		}
	}
	return nil
}

// PrintFlagCategories writes the grouped flag help to w.
func PrintFlagCategories(w io.Writer, fs *pflag.FlagSet) {
	for _, cat := range flagCategories {
		fmt.Fprintf(w, "\n%s Flags:\n", cat.title)
		for _, name := range cat.names {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			fmt.Fprintf(w, "  %s\n    \t%s", flagName(f), f.Usage)
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
				fmt.Fprintf(w, " (default %s)", f.DefValue)
			}
			fmt.Fprintln(w)
		}
	}
}

// flagName renders "--name type" with the shorthand when there is one.
func flagName(f *pflag.Flag) string {
	var b strings.Builder
	if f.Shorthand != "" {
		fmt.Fprintf(&b, "-%s, ", f.Shorthand)
	}
	fmt.Fprintf(&b, "--%s", f.Name)
	if t := f.Value.Type(); t != "bool" {
		fmt.Fprintf(&b, " %s", t)
	}
	return b.String()
}
