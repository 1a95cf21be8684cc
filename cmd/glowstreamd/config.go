package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seiftnesse/glowstream/pkg/config"
)

func configCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if err := config.SaveConfig(cfg, out); err != nil {
				return err
			}
			fmt.Printf("Wrote default configuration to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "glowstream.json", "Output file path")

	return cmd
}
