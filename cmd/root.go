package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shipmate",
	Short: "Conversational EC2 deployment agent",
	Long: `Shipmate is a conversational agent that turns natural-language requests
into EC2 deployments. Describe what you need, refine the suggested
configuration turn by turn, and confirm when it looks right.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.shipmate.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output (shows progress + internal diagnostics)")
	rootCmd.PersistentFlags().String("provider", "", "LLM provider: raven or gemini (or set in config)")
	rootCmd.PersistentFlags().String("endpoint", "", "LLM endpoint URL, overrides config")

	// TODO: add error return here
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("llm.endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))

	viper.SetDefault("llm.provider", "raven")
	viper.SetDefault("catalog.path", "shipmate_catalog.db")
	viper.SetDefault("catalog.pool_size", 5)
	viper.SetDefault("log.file", "shipmate.log")
	viper.SetDefault("log.max_bytes", 1<<20)
	viper.SetDefault("log.backups", 5)
	viper.SetDefault("aws.region", "us-east-1")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".shipmate")
	}

	viper.SetEnvPrefix("SHIPMATE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("debug") {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}
}
