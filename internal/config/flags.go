package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "workmill",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Batch flags
	flags.StringP("batch", "b", "", "Path to the YAML batch file of tasks to run")

	// Execution flags
	flags.IntP("concurrency", "c", 5, "Max tasks in flight at once")
	flags.Int("tolerance", 0, "Max task failures before the run aborts (negative means never abort)")
	flags.IntP("rate", "r", 0, "Task starts per second (0 means unpaced)")
	flags.Duration("timeout", 30*time.Second, "Per-task HTTP timeout")
	flags.Int("retries", 0, "Number of retries per task")

	// Output flags
	flags.BoolP("verbose", "v", false, "Log each task completion/failure line")
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.StringP("output-file", "o", "", "Write the JSON report to the given file")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("trace-endpoint", "", "OTLP endpoint to export task spans to")
	flags.String("trace-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.String("trace-service-name", "", "Service name reported on spans")
	flags.Float64("trace-sample-rate", 1.0, "Span sample rate between 0.0 and 1.0")
	flags.Bool("trace-insecure", false, "Skip TLS for the OTLP exporter")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	override := func(name string, apply func() error) {
		if err == nil && fs.Changed(name) {
			err = apply()
		}
	}

	override("batch", func() error {
		v, e := fs.GetString("batch")
		cfg.BatchFile = v
		return e
	})
	override("concurrency", func() error {
		v, e := fs.GetInt("concurrency")
		cfg.Concurrency = v
		return e
	})
	override("tolerance", func() error {
		v, e := fs.GetInt("tolerance")
		cfg.Tolerance = v
		return e
	})
	override("rate", func() error {
		v, e := fs.GetInt("rate")
		cfg.Rate = v
		return e
	})
	override("timeout", func() error {
		v, e := fs.GetDuration("timeout")
		cfg.Timeout = v
		return e
	})
	override("retries", func() error {
		v, e := fs.GetInt("retries")
		cfg.Retries = v
		return e
	})
	override("verbose", func() error {
		v, e := fs.GetBool("verbose")
		cfg.Verbose = v
		return e
	})
	override("json-output", func() error {
		v, e := fs.GetBool("json-output")
		cfg.JSONOutput = v
		return e
	})
	override("output-file", func() error {
		v, e := fs.GetString("output-file")
		cfg.OutputFile = v
		return e
	})
	override("trace-endpoint", func() error {
		v, e := fs.GetString("trace-endpoint")
		cfg.Tracing.Endpoint = v
		return e
	})
	override("trace-protocol", func() error {
		v, e := fs.GetString("trace-protocol")
		cfg.Tracing.Protocol = v
		return e
	})
	override("trace-service-name", func() error {
		v, e := fs.GetString("trace-service-name")
		cfg.Tracing.ServiceName = v
		return e
	})
	override("trace-sample-rate", func() error {
		v, e := fs.GetFloat64("trace-sample-rate")
		cfg.Tracing.SampleRate = v
		return e
	})
	override("trace-insecure", func() error {
		v, e := fs.GetBool("trace-insecure")
		cfg.Tracing.Insecure = v
		return e
	})
	return err
}
