package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/nbgen/cmd"
	"github.com/mattsolo1/nbgen/cmd/config"
	"github.com/mattsolo1/nbgen/pkg/service"
)

var svc *service.Service

func main() {
	rootCmd := &cobra.Command{
		Use:           "nbgen",
		Short:         "Generate Jupyter notebooks with a local Ollama model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.AddGlobalFlags(rootCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// This runs once before any subcommand
		logger := logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.WarnLevel)
		if config.Verbose {
			logger.SetLevel(logrus.DebugLevel)
		}

		config.InitConfig()

		var err error
		svc, err = config.InitService(logger)
		return err
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if svc != nil {
			svc.Close()
		}
	}

	rootCmd.AddCommand(cmd.NewNewCmd(&svc))
	rootCmd.AddCommand(cmd.NewGenCmd(&svc))
	rootCmd.AddCommand(cmd.NewDeriveCmd(&svc))
	rootCmd.AddCommand(cmd.NewCellCmd(&svc))
	rootCmd.AddCommand(cmd.NewModelsCmd(&svc))
	rootCmd.AddCommand(cmd.NewRunCmd(&svc))
	rootCmd.AddCommand(cmd.NewHistoryCmd(&svc))
	rootCmd.AddCommand(cmd.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		logrus.StandardLogger().SetOutput(os.Stderr)
		logrus.Error(err)
		os.Exit(1)
	}
}
