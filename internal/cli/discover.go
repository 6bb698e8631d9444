package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opspawn/hedera-apex-marketplace/internal/marketplace"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Search the agent catalog",
	RunE:  runDiscover,
}

func init() {
	f := discoverCmd.Flags()
	f.String("catalog", "", "Catalog YAML to seed (default: built-in demo catalog)")
	f.String("query", "", "Free-text search over names, descriptions and skills")
	f.String("category", "", "Skill category")
	f.StringSlice("tag", nil, "Skill tag (repeatable)")
	f.String("skill", "", "Skill id or name")
	f.String("protocol", "", "Supported protocol")
	f.String("name", "", "Agent name substring")
	f.String("status", "", "Agent status (online, offline, suspended)")
	f.Int("min-reputation", 0, "Minimum reputation score")
	f.Bool("verified-only", false, "Only agents with a verified identity")
	f.Int("offset", 0, "Results to skip")
	f.Int("limit", 0, "Page size (0 = configured default, negative = all)")
	f.Bool("json", false, "Output machine-readable JSON")
	rootCmd.AddCommand(discoverCmd)
}

func criteriaFromFlags(cmd *cobra.Command) marketplace.Criteria {
	f := cmd.Flags()
	var c marketplace.Criteria
	c.Query, _ = f.GetString("query")
	c.Category, _ = f.GetString("category")
	c.Tags, _ = f.GetStringSlice("tag")
	c.Skill, _ = f.GetString("skill")
	c.Protocol, _ = f.GetString("protocol")
	c.Name, _ = f.GetString("name")
	status, _ := f.GetString("status")
	c.Status = marketplace.AgentStatus(strings.ToLower(strings.TrimSpace(status)))
	c.MinReputation, _ = f.GetInt("min-reputation")
	c.VerifiedOnly, _ = f.GetBool("verified-only")
	c.Offset, _ = f.GetInt("offset")
	c.Limit, _ = f.GetInt("limit")
	return c
}

func runDiscover(cmd *cobra.Command, args []string) error {
	criteria := criteriaFromFlags(cmd)
	if criteria.Status != "" && !criteria.Status.Valid() {
		return fmt.Errorf("invalid --status %q", criteria.Status)
	}
	catalogPath, _ := cmd.Flags().GetString("catalog")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if _, err := rt.seedCatalog(ctx, catalogPath); err != nil {
		return err
	}
	res, err := rt.orch.Discover(ctx, criteria)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(out, "%d of %d agents\n", len(res.Agents), res.Total)
	for _, v := range res.Agents {
		printView(cmd, v)
	}
	return nil
}

func printView(cmd *cobra.Command, v marketplace.MarketplaceView) {
	out := cmd.OutOrStdout()
	badge := color.GreenString(string(v.VerificationStatus))
	if v.VerificationStatus != marketplace.Verified {
		badge = color.RedString(string(v.VerificationStatus))
	}
	fmt.Fprintf(out, "\n%s (%s) [%s] rep=%d\n", color.New(color.Bold).Sprint(v.Agent.Name), v.Agent.AgentID, badge, v.ReputationPoints)
	if v.DecentralizedID != "" {
		fmt.Fprintf(out, "  DID:    %s\n", v.DecentralizedID)
	}
	for _, s := range v.Agent.Skills {
		fmt.Fprintf(out, "  Skill:  %-12s %-18s %g %s/%s\n", s.ID, s.Name, s.Pricing.Amount, s.Pricing.Token, s.Pricing.Unit)
	}
}
