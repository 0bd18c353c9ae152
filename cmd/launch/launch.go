package launch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apphost/cmd/root"
	"apphost/controllers"
	"apphost/internal/backend"
	"apphost/internal/binding"
	"apphost/internal/config"
	"apphost/internal/logger"
	"apphost/internal/topology"
	"apphost/internal/utils"
	"apphost/services"

	"github.com/spf13/cobra"
)

var (
	dryRun         bool
	timeoutSeconds int
	parallel       bool
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Start every resource in dependency order",
	Long: `Start every declared resource in dependency order, inject connection
settings into dependents, and wait for SIGINT/SIGTERM or "apphost stop".
Resources are then torn down in reverse order.

Exit codes: 0 success or clean shutdown, 1 invalid topology or config,
2 a resource failed to start.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Config
		if cmd.Flags().Changed("timeout-seconds") {
			cfg.Launch.TimeoutSeconds = timeoutSeconds
		}
		if cmd.Flags().Changed("parallel") {
			cfg.Launch.Parallel = parallel
		}
		return runLaunch(cmd.Context(), &cfg, dryRun, cmd.OutOrStdout())
	},
}

/**
 * Validate the topology and launch it, or print the launch order
 * @param {context.Context} ctx - Parent context, SIGINT/SIGTERM are added to it
 * @param {*config.AppConfig} cfg - Configuration with flag overrides applied
 * @param {bool} dry - Print the order one name per line and return
 * @param {io.Writer} out - Destination of the dry-run output
 * @returns {error} Structural error, services.StartError, or nil after a clean shutdown
 */
func runLaunch(ctx context.Context, cfg *config.AppConfig, dry bool, out io.Writer) error {
	if cfg.Launch.TimeoutSeconds <= 0 {
		return topology.ValidationError{Field: "timeout-seconds", Reason: "must be a positive number of seconds"}
	}
	g, err := cfg.BuildTopology()
	if err != nil {
		return err
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return err
	}
	if dry {
		for _, name := range order {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	grace := time.Duration(cfg.Launch.TimeoutSeconds) * time.Second
	registry := backend.NewDefaultRegistry(backend.Options{
		ContainerRuntime: cfg.Launch.ContainerRuntime,
		DefaultGrace:     grace,
	})
	launcher := services.NewLauncher(g, registry, binding.NewBinder(utils.AllocatePort), services.LaunchOptions{
		Grace:    grace,
		Parallel: cfg.Launch.Parallel,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Enabled {
		server := services.NewServer(cfg, launcher)
		if err := server.Listen(controllers.NewRouter(server)); err != nil {
			return fmt.Errorf("control API: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Close(closeCtx); err != nil {
				logger.Warnf("Close control API: %v", err)
			}
		}()
	}

	logger.Infof("Launching %d resources, run id %s", len(order), launcher.RunID())
	return launcher.Run(ctx)
}

func init() {
	root.RootCmd.AddCommand(launchCmd)

	launchCmd.Flags().SortFlags = false
	launchCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the launch order and exit")
	launchCmd.Flags().IntVar(&timeoutSeconds, "timeout-seconds", config.DefaultTimeoutSeconds,
		"Grace period per resource at shutdown before it is killed")
	launchCmd.Flags().BoolVar(&parallel, "parallel", false, "Start independent resources concurrently")

	launchCmd.Example = `  apphost launch --dry-run
  apphost launch --config ./apphost.yaml --timeout-seconds 20`
}
