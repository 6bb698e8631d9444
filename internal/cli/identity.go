package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/opspawn/hedera-apex-marketplace/internal/identity"
	"github.com/opspawn/hedera-apex-marketplace/internal/marketplace"
)

var (
	identityCmd = &cobra.Command{
		Use:   "identity",
		Short: "Agent identity utilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	identityQRCmd = &cobra.Command{
		Use:   "qr",
		Short: "Write an agent's DID as a QR code PNG",
		RunE:  runIdentityQR,
	}

	identityDiscloseCmd = &cobra.Command{
		Use:   "disclose",
		Short: "Request selected profile fields from an agent identity",
		RunE:  runIdentityDisclose,
	}
)

func init() {
	identityQRCmd.Flags().String("catalog", "", "Catalog YAML to seed (default: built-in demo catalog)")
	identityQRCmd.Flags().String("agent", "", "Agent ID")
	identityQRCmd.Flags().String("out", "", "Output PNG path (default: <agent>-did.png)")
	identityQRCmd.Flags().Int("size", 256, "Image size in pixels")

	identityDiscloseCmd.Flags().String("catalog", "", "Catalog YAML to seed (default: built-in demo catalog)")
	identityDiscloseCmd.Flags().String("agent", "", "Agent ID")
	identityDiscloseCmd.Flags().StringSlice("field", []string{identity.FieldName, identity.FieldCapabilities}, "Field to disclose (repeatable)")
	identityDiscloseCmd.Flags().String("requester", "cli", "Requester ID")
	identityDiscloseCmd.Flags().String("purpose", "verification", "Purpose of the request")
	identityDiscloseCmd.Flags().String("nonce", "", "Request nonce (default: random)")

	identityCmd.AddCommand(identityQRCmd)
	identityCmd.AddCommand(identityDiscloseCmd)
	rootCmd.AddCommand(identityCmd)
}

// seededView seeds a runtime and returns the view of agentID.
func seededView(cmd *cobra.Command, rt *marketRuntime, agentID string) (marketplace.MarketplaceView, error) {
	catalogPath, _ := cmd.Flags().GetString("catalog")
	if _, err := rt.seedCatalog(cmd.Context(), catalogPath); err != nil {
		return marketplace.MarketplaceView{}, err
	}
	return rt.orch.GetProfile(cmd.Context(), agentID)
}

func runIdentityQR(cmd *cobra.Command, args []string) error {
	agentID, _ := cmd.Flags().GetString("agent")
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return fmt.Errorf("--agent is required")
	}
	outPath, _ := cmd.Flags().GetString("out")
	if outPath == "" {
		outPath = agentID + "-did.png"
	}
	size, _ := cmd.Flags().GetInt("size")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	view, err := seededView(cmd, rt, agentID)
	if err != nil {
		return err
	}
	if view.DecentralizedID == "" {
		return fmt.Errorf("agent %s has no decentralized id", agentID)
	}
	if err := qrcode.WriteFile(view.DecentralizedID, qrcode.Medium, size, outPath); err != nil {
		return fmt.Errorf("write qr code: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n  DID: %s\n", color.GreenString("✓"), outPath, view.DecentralizedID)
	return nil
}

func runIdentityDisclose(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	agentID, _ := f.GetString("agent")
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return fmt.Errorf("--agent is required")
	}
	fields, _ := f.GetStringSlice("field")
	requester, _ := f.GetString("requester")
	purpose, _ := f.GetString("purpose")
	nonce, _ := f.GetString("nonce")
	if nonce == "" {
		nonce = uuid.NewString()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	view, err := seededView(cmd, rt, agentID)
	if err != nil {
		return err
	}
	resp, err := rt.registry.HandleDisclosure(identity.DisclosureRequest{
		Requester:       requester,
		SubjectDID:      view.DecentralizedID,
		RequestedFields: fields,
		Purpose:         purpose,
		Nonce:           nonce,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
