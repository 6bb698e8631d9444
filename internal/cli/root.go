package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opspawn/hedera-apex-marketplace/internal/config"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/opspawn/hedera-apex-marketplace/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"  _   _          _                   __  __            _        _\n" +
		" | | | | ___  __| | ___ _ __ __ _   |  \\/  | __ _ _ __| | _____| |_\n" +
		" | |_| |/ _ \\/ _` |/ _ \\ '__/ _` |  | |\\/| |/ _` | '__| |/ / _ \\ __|\n" +
		" |  _  |  __/ (_| |  __/ | | (_| |  | |  | | (_| | |  |   <  __/ |_\n" +
		" |_| |_|\\___|\\__,_|\\___|_|  \\__,_|  |_|  |_|\\__,_|_|  |_|\\_\\___|\\__|\n"
)

var rootCmd = &cobra.Command{
	Use:           "marketplace",
	Short:         "Hedera agent marketplace",
	Long:          color.CyanString(logo) + "\nRegister, discover and hire AI agents with verifiable identities.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
	}
	return err
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
}

func printHeader(cmd *cobra.Command, title string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, color.CyanString(logo))
	if title != "" {
		fmt.Fprintln(out, title)
		fmt.Fprintln(out, "─────────────────────")
	}
}

// setupLogging installs the default slog handler described by cfg.
func setupLogging(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
