package root

import (
	"apphost/internal/config"
	"apphost/internal/logger"

	"github.com/spf13/cobra"
)

var configFile string

var RootCmd = &cobra.Command{
	Use:   "apphost",
	Short: "本地多服务拓扑启动器",
	Long: `apphost declares a set of resources (databases, processes) and the references
between them, then starts them in dependency order with connection settings
injected, and tears them down in reverse order on exit.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// loadConfig 在执行任何子命令前加载配置并初始化日志
func loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	config.Config = *cfg
	logger.InitLogger(&config.Config.Log)
	return nil
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file (default: ./apphost.yaml or ~/.apphost/apphost.yaml)")
}
