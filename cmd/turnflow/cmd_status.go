package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"turnflow/config"
	"turnflow/turn"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which capabilities the current configuration enables",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "region:  %s\n", cfg.Region)
	fmt.Fprintf(out, "model:   %s\n", cfg.ModelID)
	fmt.Fprintf(out, "listen:  %s\n", cfg.HTTPAddr)

	status := cfg.Status()
	for _, kind := range turn.Kinds() {
		marker := "disabled"
		if status[string(kind)] {
			marker = "enabled"
		}
		fmt.Fprintf(out, "%-12s %s\n", string(kind)+":", marker)
	}
	return nil
}
