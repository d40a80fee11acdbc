package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vicomannen/winfade/internal/config"
)

var checkconfigCmd = &cobra.Command{
	Use:   "checkconfig",
	Short: "Validate the settings file and print the effective values",
	RunE:  runCheckconfig,
}

func init() {
	rootCmd.AddCommand(checkconfigCmd)
}

func runCheckconfig(cmd *cobra.Command, args []string) error {
	configPath, _ := rootCmd.PersistentFlags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n%s", configPath, out)
	return nil
}
