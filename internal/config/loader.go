package config

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a
// Config. Flag values override config file values.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	// With no arguments at all there is nothing to run; show usage.
	if len(args) == 0 {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfg := &Config{
		Concurrency: 5,
		Timeout:     30 * time.Second,
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1.0,
		},
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfg.ConfigFile = configPath
	if configPath != "" {
		cfgViper := viper.New()
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
		applyConfigSettings(cfg, cfgViper)
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config.
func applyConfigSettings(cfg *Config, v *viper.Viper) {
	if v.IsSet("batch") {
		cfg.BatchFile = v.GetString("batch")
	}
	if v.IsSet("concurrency") {
		cfg.Concurrency = v.GetInt("concurrency")
	}
	if v.IsSet("tolerance") {
		cfg.Tolerance = v.GetInt("tolerance")
	}
	if v.IsSet("rate") {
		cfg.Rate = v.GetInt("rate")
	}
	if v.IsSet("timeout") {
		cfg.Timeout = v.GetDuration("timeout")
	}
	if v.IsSet("retries") {
		cfg.Retries = v.GetInt("retries")
	}
	if v.IsSet("verbose") {
		cfg.Verbose = v.GetBool("verbose")
	}
	if v.IsSet("json_output") {
		cfg.JSONOutput = v.GetBool("json_output")
	}
	if v.IsSet("output_file") {
		cfg.OutputFile = v.GetString("output_file")
	}
	if v.IsSet("tracing.endpoint") {
		cfg.Tracing.Endpoint = v.GetString("tracing.endpoint")
	}
	if v.IsSet("tracing.protocol") {
		cfg.Tracing.Protocol = v.GetString("tracing.protocol")
	}
	if v.IsSet("tracing.service_name") {
		cfg.Tracing.ServiceName = v.GetString("tracing.service_name")
	}
	if v.IsSet("tracing.sample_rate") {
		cfg.Tracing.SampleRate = v.GetFloat64("tracing.sample_rate")
	}
	if v.IsSet("tracing.insecure") {
		cfg.Tracing.Insecure = v.GetBool("tracing.insecure")
	}
}
