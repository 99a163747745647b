package config

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/nbgen/pkg/service"
)

var (
	cfgFile string
	Verbose bool
)

// InitConfig wires viper: config file, NBGEN_* environment variables,
// then built-in defaults, in that precedence order.
func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "nbgen")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("NBGEN")

	viper.SetDefault("ollama_host", "http://localhost:11434")
	viper.SetDefault("model", "llama3:latest")
	viper.SetDefault("data_dir", filepath.Join(os.Getenv("HOME"), ".local", "share", "nbgen"))
	viper.SetDefault("use_context", true)
	viper.SetDefault("jupyter_command", "jupyter notebook")
	viper.SetDefault("prompts_file", "")

	// Missing config file is fine, defaults and env cover everything.
	_ = viper.ReadInConfig()
}

// InitService builds the generation service from the resolved config
func InitService(logger *logrus.Logger) (*service.Service, error) {
	config := &service.Config{
		OllamaHost:     viper.GetString("ollama_host"),
		Model:          viper.GetString("model"),
		DataDir:        viper.GetString("data_dir"),
		UseContext:     viper.GetBool("use_context"),
		JupyterCommand: viper.GetString("jupyter_command"),
		PromptsPath:    viper.GetString("prompts_file"),
	}

	return service.New(config, service.WithLogger(logger))
}

// AddGlobalFlags attaches the flags every subcommand shares
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/nbgen/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "Enable debug logging")
}
