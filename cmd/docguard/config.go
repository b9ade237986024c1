package main

import (
	"fmt"

	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/presenter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the docguard configuration",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Prints the configuration after defaults, the config file, DOCGUARD_*
environment variables, flags and the audit rules file are applied.`,
	Run: func(_ *cobra.Command, _ []string) {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		out, err := cfg.YAML()
		if err != nil {
			fatal(err, "Failed to render configuration")
			return
		}
		fmt.Print(string(out))
	},
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	Run: func(_ *cobra.Command, _ []string) {
		out, err := config.Schema()
		if err != nil {
			fatal(err, "Failed to generate schema")
			return
		}
		fmt.Println(string(out))
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and exit",
	Run: func(_ *cobra.Command, _ []string) {
		if _, err := config.Load(viper.GetViper()); err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		presenter.Success("configuration is valid")
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSchemaCmd)
	configCmd.AddCommand(configValidateCmd)
}
