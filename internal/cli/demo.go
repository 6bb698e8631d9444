package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opspawn/hedera-apex-marketplace/internal/marketplace"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Seed the demo catalog, hire an agent, revoke its identity and hire again",
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().String("catalog", "", "Catalog YAML to seed (default: built-in demo catalog)")
	demoCmd.Flags().String("agent", "code-reviewer", "Agent to hire")
	demoCmd.Flags().String("skill", "review", "Skill to hire for")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	catalogPath, _ := cmd.Flags().GetString("catalog")
	agentID, _ := cmd.Flags().GetString("agent")
	skillRef, _ := cmd.Flags().GetString("skill")

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
	out := cmd.OutOrStdout()
	printHeader(cmd, "🤝 Marketplace Demo")

	fmt.Fprintln(out, color.New(color.Bold).Sprint("1. Register catalog"))
	results, err := rt.seedCatalog(ctx, catalogPath)
	if err != nil {
		return err
	}
	for _, res := range results {
		mark := color.GreenString("✓")
		if !res.Complete() {
			mark = color.YellowString("~ %v", res.FailedSteps())
		}
		fmt.Fprintf(out, "  %s %-18s %s %s\n", mark, res.AgentID, res.IdentityHandle, res.DecentralizedID)
	}
	fmt.Fprintf(out, "  Skill topics: %v\n", rt.topics.SkillNames())

	fmt.Fprintln(out, color.New(color.Bold).Sprint("\n2. Discover verified agents"))
	found, err := rt.orch.Discover(ctx, marketplace.Criteria{VerifiedOnly: true, Limit: -1})
	if err != nil {
		return err
	}
	for _, v := range found.Agents {
		printView(cmd, v)
	}

	fmt.Fprintln(out, color.New(color.Bold).Sprint("\n3. Hire "+agentID))
	req := marketplace.HireRequest{ClientID: "demo-client", AgentID: agentID, SkillID: skillRef}
	first, err := rt.orch.Hire(ctx, req)
	if err != nil {
		return err
	}
	printTask(cmd, first)

	fmt.Fprintln(out, color.New(color.Bold).Sprint("\n4. Revoke identity"))
	handle, err := rt.orch.IdentityOf(agentID)
	if err != nil {
		return err
	}
	revoked, err := rt.registry.Revoke(handle)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  %s %s revoked (sequence %d)\n", color.RedString("✗"), handle, revoked.SequenceNumber)

	fmt.Fprintln(out, color.New(color.Bold).Sprint("\n5. Hire again"))
	second, err := rt.orch.Hire(ctx, req)
	if err != nil {
		return err
	}
	printTask(cmd, second)

	view, err := rt.orch.GetProfile(ctx, agentID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nVerification status now: %s\n", view.VerificationStatus)
	return nil
}
