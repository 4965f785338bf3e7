package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/curtisgray/wingman-sub001/internal/config"
	"github.com/curtisgray/wingman-sub001/internal/dispatch"
)

var (
	configPath     string
	serverOverride string
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wingman",
		Short:         "Observe and control Wingman downloads and inference sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to wingman.toml (default ~/.wingman/wingman.toml)")
	cmd.PersistentFlags().StringVar(&serverOverride, "server", "", "backend host:port override")

	cmd.AddCommand(
		newWatchCommand(),
		newDownloadCommand(),
		newInferenceCommand(),
		newSettingsCommand(),
		newShutdownCommand(),
		newVersionCommand(),
	)
	return cmd
}

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = config.GetAppPaths().Config
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if serverOverride != "" {
		host, portRaw, ok := strings.Cut(serverOverride, ":")
		if !ok || host == "" {
			return cfg, fmt.Errorf("invalid --server value %q, expected host:port", serverOverride)
		}
		port, err := strconv.Atoi(portRaw)
		if err != nil || port <= 0 {
			return cfg, fmt.Errorf("invalid --server port %q", portRaw)
		}
		cfg.Server.Host = host
		cfg.Server.Port = port
	}

	return cfg, nil
}

func newDispatcher() (*dispatch.Dispatcher, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return dispatch.New(cfg.BaseURL()), nil
}
