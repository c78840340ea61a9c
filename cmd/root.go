package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rarepdftool/pdftools/internal/config"
)

// rootOptions carries the settings shared by every subcommand. cfg and
// logger are populated before any subcommand runs.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pdftools",
		Short: "PDF and image toolkit: merge, compress, rasterize and convert",
		Long: `pdftools assembles PDFs and images into a single document and wraps
common conversions behind an HTTP API and a CLI.

Settings come from defaults, an optional YAML file (--config), PDFTOOLS_*
environment variables (a .env file is loaded if present) and flags, in
increasing order of priority.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMergeCmd(opts))
	cmd.AddCommand(newCompressCmd(opts))
	cmd.AddCommand(newRasterizeCmd(opts))
	cmd.AddCommand(newConvertImageCmd(opts))

	return cmd
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	o.cfg = cfg
	o.logger = logger
	return nil
}
