package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"obesityweb/config"
	"obesityweb/logging"
)

var (
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
)

func main() {
	root := &cobra.Command{
		Use:           "obesityweb",
		Short:         "Obesity level prediction web service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default $CONFIG_FILE or config.yaml)")
	root.PersistentFlags().StringVarP(&envFile, "env-file", "", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVarP(&logLevel, "log-level", "", "", "logging level: debug, info, warn or error")
	root.PersistentFlags().StringVarP(&logFormat, "log-format", "", "", "logging format: json or console")

	root.AddCommand(ServeCommand())
	root.AddCommand(TrainCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves settings as defaults < config file < environment < flags.
// Command specific flags are applied by the caller.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	path, required := configFile, configFile != ""
	if path == "" {
		path, required = os.Getenv("CONFIG_FILE"), os.Getenv("CONFIG_FILE") != ""
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}
