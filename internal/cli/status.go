package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opspawn/hedera-apex-marketplace/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader(cmd, "🏷️ Marketplace Version")
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and transport status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		printHeader(cmd, "📊 Marketplace Status")
		fmt.Fprintf(out, "Version:   %s\n", version)

		if path, err := config.ConfigPath(); err == nil && fileExists(path) {
			fmt.Fprintln(out, "Config:    "+color.GreenString("✓")+" Found ("+path+")")
		} else {
			fmt.Fprintln(out, "Config:    "+color.YellowString("✗")+" Not found (using defaults)")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Network:   %s (issuer %s)\n", cfg.Network.Name, cfg.Network.IssuerDID)
		fmt.Fprintf(out, "Transport: %s (prefix %s)\n", cfg.Messaging.Transport, cfg.Messaging.TopicPrefix)
		switch cfg.Messaging.Transport {
		case "kafka":
			fmt.Fprintf(out, "Brokers:   %s\n", cfg.Messaging.KafkaBrokers)
		case "nats":
			fmt.Fprintf(out, "NATS:      %s\n", cfg.Messaging.NATSURL)
		}
		if !cfg.Journal.Enabled {
			fmt.Fprintln(out, "Journal:   "+color.YellowString("disabled"))
		} else if fileExists(cfg.Journal.Path) {
			fmt.Fprintln(out, "Journal:   "+color.GreenString("✓")+" "+cfg.Journal.Path)
		} else {
			fmt.Fprintln(out, "Journal:   "+color.YellowString("✗")+" Not created yet ("+cfg.Journal.Path+")")
		}
		fmt.Fprintf(out, "Log:       %s/%s\n", cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}
