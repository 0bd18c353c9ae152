package control

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"apphost/cmd/root"
	"apphost/internal/models"
	"apphost/internal/rpc"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [resource]",
	Short: "Show the state of a running launch",
	Long:  "查看正在运行的启动中所有资源的状态，如果指定了资源名称，则只显示该资源的详细信息。",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := rpc.NewHTTPClient(nil)
		defer client.Close()
		if len(args) == 0 {
			return showAllResources(client, cmd.OutOrStdout())
		}
		return showResource(client, cmd.OutOrStdout(), args[0])
	},
}

/**
 * Show every resource of the running launch
 * @param {rpc.HTTPClient} client - Control API client
 * @param {io.Writer} out - Destination of the table
 * @returns {error} Connection or API error
 */
func showAllResources(client rpc.HTTPClient, out io.Writer) error {
	resp, err := client.Get("/apphost/api/v1/resources", nil)
	if err != nil {
		return fmt.Errorf("no launch is reachable: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("list resources: %s", resp.Error)
	}
	var host models.HostStatus
	if err := resp.Decode(&host); err != nil {
		return err
	}

	fmt.Fprintf(out, "Run %s: %s\n", host.RunID, host.State)
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Kind", "State", "PID", "Endpoint"})
	for _, r := range host.Resources {
		t.AppendRow(table.Row{r.Name, r.Kind, r.State, dash(pidString(r.Pid)), dash(r.Endpoint)})
	}
	t.Render()
	return nil
}

func showResource(client rpc.HTTPClient, out io.Writer, name string) error {
	resp, err := client.Get("/apphost/api/v1/resources/"+name, nil)
	if err != nil {
		return fmt.Errorf("no launch is reachable: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("%s", resp.Error)
	}
	var r models.ResourceStatus
	if err := resp.Decode(&r); err != nil {
		return err
	}

	fmt.Fprintf(out, "=== %s ===\n", r.Name)
	fmt.Fprintf(out, "Kind: %s\n", r.Kind)
	fmt.Fprintf(out, "State: %s\n", r.State)
	fmt.Fprintf(out, "PID: %s\n", dash(pidString(r.Pid)))
	fmt.Fprintf(out, "Endpoint: %s\n", dash(r.Endpoint))
	if len(r.DependsOn) > 0 {
		fmt.Fprintf(out, "Depends on: %v\n", r.DependsOn)
	}
	if !r.StartTime.IsZero() {
		fmt.Fprintf(out, "Started: %s\n", r.StartTime.Format("2006-01-02 15:04:05"))
	}
	if r.LastError != "" {
		fmt.Fprintf(out, "Last error: %s\n", r.LastError)
	}
	if len(r.Env) > 0 {
		fmt.Fprintln(out, "Environment:")
		keys := make([]string, 0, len(r.Env))
		for k := range r.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %s=%s\n", k, r.Env[k])
		}
	}
	return nil
}

func pidString(pid int) string {
	if pid == 0 {
		return ""
	}
	return strconv.Itoa(pid)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	root.RootCmd.AddCommand(statusCmd)
}
