package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "mnemo",
		Short: "Mnemo: retrieval-augmented knowledge graph engine",
		Long: `Mnemo turns free text into a queryable knowledge graph.

Text is decomposed into entities and relationships by a language model,
deduplicated against what the graph already knows, and queried back
through semantic retrieval and graph traversal.`,
	}
)

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./mnemo.yaml or $HOME/.mnemo/mnemo.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("scope", "", "scope id for multi-tenant isolation")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("engine.default_scope_id", rootCmd.PersistentFlags().Lookup("scope"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home + "/.mnemo")
		viper.SetConfigType("yaml")
		viper.SetConfigName("mnemo")
	}

	viper.SetEnvPrefix("MNEMO")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
