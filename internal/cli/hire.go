package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opspawn/hedera-apex-marketplace/internal/marketplace"
)

var hireCmd = &cobra.Command{
	Use:   "hire",
	Short: "Hire an agent for one of its skills",
	RunE:  runHire,
}

func init() {
	f := hireCmd.Flags()
	f.String("catalog", "", "Catalog YAML to seed (default: built-in demo catalog)")
	f.String("agent", "", "Agent ID")
	f.String("skill", "", "Skill id or name")
	f.String("client", "cli", "Client ID")
	f.String("payer", "", "Payer account (default: client ID)")
	f.StringToString("input", nil, "Task input as key=value pairs")
	f.Bool("json", false, "Output machine-readable JSON")
	rootCmd.AddCommand(hireCmd)
}

func runHire(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	agentID, _ := f.GetString("agent")
	skillRef, _ := f.GetString("skill")
	agentID = strings.TrimSpace(agentID)
	skillRef = strings.TrimSpace(skillRef)
	if agentID == "" || skillRef == "" {
		return fmt.Errorf("--agent and --skill are required")
	}
	catalogPath, _ := f.GetString("catalog")
	clientID, _ := f.GetString("client")
	payer, _ := f.GetString("payer")
	input, _ := f.GetStringToString("input")
	asJSON, _ := f.GetBool("json")

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

	req := marketplace.HireRequest{
		ClientID:     clientID,
		AgentID:      agentID,
		SkillID:      skillRef,
		PayerAccount: payer,
	}
	if len(input) > 0 {
		req.Input = make(map[string]any, len(input))
		for k, v := range input {
			req.Input[k] = v
		}
	}
	task, err := rt.orch.Hire(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(task)
	}
	printTask(cmd, task)
	return nil
}

func printTask(cmd *cobra.Command, task marketplace.HireTask) {
	out := cmd.OutOrStdout()
	status := color.GreenString(string(task.Status))
	if task.Status == marketplace.TaskFailed {
		status = color.RedString(string(task.Status))
	}
	fmt.Fprintf(out, "Task %s: %s -> %s/%s [%s]\n", task.TaskID, task.ClientID, task.AgentID, task.SkillID, status)
	if code := task.ErrorCode(); code != "" {
		fmt.Fprintf(out, "  Error:      %s\n", code)
	}
	if topic, ok := task.Output["task_topic"].(string); ok {
		fmt.Fprintf(out, "  Task topic: %s\n", topic)
	}
	if s := task.Settlement; s != nil {
		fmt.Fprintf(out, "  Settlement: %g %s %s -> %s (%s)\n", s.Amount, s.Token, s.Payer, s.Payee, s.Status)
	}
}
