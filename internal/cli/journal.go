package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	journalCmd = &cobra.Command{
		Use:   "journal",
		Short: "Inspect the audit journal",
		RunE:  runJournalEvents,
	}

	journalTasksCmd = &cobra.Command{
		Use:   "tasks",
		Short: "List recorded hire tasks",
		RunE:  runJournalTasks,
	}
)

func init() {
	journalCmd.Flags().String("kind", "", "Only events of this kind (e.g. identity.revoked)")
	journalCmd.Flags().Int("limit", 50, "Maximum events to show")
	journalCmd.Flags().Bool("json", false, "Output machine-readable JSON")

	journalTasksCmd.Flags().String("agent", "", "Only tasks for this agent")
	journalTasksCmd.Flags().Int("limit", 50, "Maximum tasks to show")
	journalTasksCmd.Flags().Bool("json", false, "Output machine-readable JSON")

	journalCmd.AddCommand(journalTasksCmd)
	rootCmd.AddCommand(journalCmd)
}

func runJournalEvents(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		return fmt.Errorf("journal is disabled (set MARKETPLACE_JOURNAL_ENABLED=true)")
	}
	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	events, err := j.ListEvents(kind, limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "No events recorded.")
		return nil
	}
	for _, e := range events {
		details, _ := json.Marshal(e.Details)
		fmt.Fprintf(out, "%s  %-22s %-20s %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), color.CyanString(e.Kind), e.Subject, details)
	}
	return nil
}

func runJournalTasks(cmd *cobra.Command, args []string) error {
	agentID, _ := cmd.Flags().GetString("agent")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		return fmt.Errorf("journal is disabled (set MARKETPLACE_JOURNAL_ENABLED=true)")
	}
	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	tasks, err := j.ListHireTasks(agentID, limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No hire tasks recorded.")
		return nil
	}
	for _, t := range tasks {
		status := color.GreenString(t.Status)
		if t.ErrorCode != "" {
			status = color.RedString(t.Status + " " + t.ErrorCode)
		}
		fmt.Fprintf(out, "%s  %s  %s/%s  %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"), t.TaskID, t.AgentID, t.SkillID, status)
	}
	return nil
}
