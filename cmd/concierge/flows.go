package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aretw0/concierge/internal/cli"
	"github.com/aretw0/concierge/internal/presentation/graph"
	"github.com/aretw0/concierge/pkg/adapters/file"
)

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "Inspect the flow catalog",
}

var flowsListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the flows the assistant can run",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		app, err := loadApp(cmd.Context(), cmd, quietLogs())
		if err != nil {
			return err
		}
		defer app.Close()

		list := app.Assistant.Catalog().List()
		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tSTEPS\tKEYWORDS")
		for _, f := range list {
			kw := ""
			if len(f.Keywords) > 0 {
				kw = f.Keywords[0]
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", f.ID, f.Title, len(f.Steps), kw)
		}
		return tw.Flush()
	},
}

var flowsGraphCmd = &cobra.Command{
	Use:   "graph <flow-id>",
	Short: "Export a flow as a Mermaid diagram",
	Long: `Outputs a Mermaid flowchart of the flow's steps, conditional branches and card.
With --session, the steps that session already went through are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		app, err := loadApp(cmd.Context(), cmd, quietLogs())
		if err != nil {
			return err
		}
		defer app.Close()

		flow, err := app.Assistant.Catalog().Get(args[0])
		if err != nil {
			return err
		}
		var overlay *graph.Overlay
		if sessionID != "" {
			turns, err := app.Assistant.Manager().Turns(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFromTurns(flow.ID, turns)
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(flow, overlay))
		return nil
	},
}

var flowsValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a flow definitions file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := file.LoadFlows(args[0])
		if err != nil {
			return err
		}
		if len(fs) == 0 {
			return fmt.Errorf("%s: no flows found", args[0])
		}
		for _, f := range fs {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s (%d steps)\n", f.ID, len(f.Steps))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(flowsCmd)
	flowsCmd.AddCommand(flowsListCmd, flowsGraphCmd, flowsValidateCmd)
	flowsListCmd.Flags().Bool("json", false, "Print the catalog as JSON")
	flowsGraphCmd.Flags().String("session", "", "Highlight the progress of this session")
}

func quietLogs() cli.AppOption {
	return cli.WithLogOutput(io.Discard)
}
