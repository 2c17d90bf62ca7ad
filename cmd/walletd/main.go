package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abcfe/hive-wallet/app"
	"github.com/abcfe/hive-wallet/common/logger"
	"github.com/abcfe/hive-wallet/common/utils"
	conf "github.com/abcfe/hive-wallet/config"
	"github.com/spf13/cobra"
)

// Version info (Injected from Makefile)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// PID file management - Use user home directory
func getPidFilePath() string {
	return filepath.Join(utils.AppDir(), "walletd.pid")
}

// loadConfig reads --config. Only a missing default file falls back to
// built-in defaults; an explicit path must exist and every file must parse.
func loadConfig() (*conf.Config, error) {
	cfg, err := conf.NewConfig(configFile)
	if err == nil {
		return cfg, nil
	}
	if configFile == "" && os.IsNotExist(err) {
		return conf.Default(), nil
	}
	return nil, fmt.Errorf("load config: %w", err)
}

var (
	pidFile    = getPidFilePath()
	configFile string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:     "walletd",
		Short:   "Hive wallet daemon",
		Long:    `Derives Hive account keys, detects how a credential maps to an account, and signs broadcasts with whichever credential a user has stored.`,
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
	}

	// Register global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(keysCmd())
	rootCmd.AddCommand(credentialsCmd())
	rootCmd.AddCommand(broadcastCmd())
	rootCmd.AddCommand(remoteCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Failed to execute command:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API in the foreground",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

func runServer() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Println("Failed to initialize application:", err)
		os.Exit(1)
	}
	application, err := app.NewFromConfig(cfg)
	if err != nil {
		fmt.Println("Failed to initialize application:", err)
		os.Exit(1)
	}

	application.SigHandler()
	logger.Info("walletd start.")

	if err := application.NewRest(); err != nil {
		logger.Error("Failed to start services:", err)
		application.Terminate()
		os.Exit(1)
	}

	application.Wait()
	logger.Info("walletd terminated.")
}
