package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a parameter file without building geometry",
	Long:  `Loads the parameter file and reports every violated constraint and every warning.`,
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, res, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d primary, %d secondary branches, adapter %s, %d warning(s)\n",
		configPath, len(cfg.Primary), len(cfg.Secondary), onOff(cfg.AdapterEnabled), len(res.Warnings))
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
