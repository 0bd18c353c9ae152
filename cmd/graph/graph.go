package graph

import (
	"encoding/json"
	"fmt"
	"io"

	"apphost/cmd/root"
	"apphost/internal/config"

	"github.com/spf13/cobra"
)

var format string

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the resource graph of the configuration",
	Long:  "Print the declared resources and references as Graphviz DOT, Mermaid or JSON, without starting anything.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printGraph(cmd.OutOrStdout(), &config.Config, format)
	},
}

func printGraph(out io.Writer, cfg *config.AppConfig, format string) error {
	g, err := cfg.BuildTopology()
	if err != nil {
		return err
	}
	snap, err := g.Snapshot()
	if err != nil {
		return err
	}
	switch format {
	case "dot":
		fmt.Fprint(out, snap.DOT())
	case "mermaid":
		fmt.Fprint(out, snap.Mermaid())
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	default:
		return fmt.Errorf("unsupported format %q, use dot, mermaid or json", format)
	}
	return nil
}

func init() {
	root.RootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringVarP(&format, "format", "f", "dot", "Output format: dot, mermaid or json")

	graphCmd.Example = `  apphost graph | dot -Tsvg > apphost.svg
  apphost graph --format mermaid`
}
