package control

import (
	"fmt"
	"io"

	"apphost/cmd/root"
	"apphost/internal/rpc"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask a running launch to shut down",
	Long:  "停止正在运行的启动，所有资源按依赖的逆序关闭。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := rpc.NewHTTPClient(nil)
		defer client.Close()
		return requestStop(client, cmd.OutOrStdout())
	},
}

func requestStop(client rpc.HTTPClient, out io.Writer) error {
	resp, err := client.Post("/apphost/api/v1/stop", nil)
	if err != nil {
		return fmt.Errorf("no launch is reachable: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("stop: %s", resp.Error)
	}
	var body struct {
		RunID string `json:"runId"`
	}
	if err := resp.Decode(&body); err != nil {
		return err
	}
	fmt.Fprintf(out, "Stopping run %s\n", body.RunID)
	return nil
}

func init() {
	root.RootCmd.AddCommand(stopCmd)
}
