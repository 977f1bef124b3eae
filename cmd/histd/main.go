package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ehrlich-b/histd/internal/daemon"
	"github.com/ehrlich-b/histd/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:   "histd",
		Short: "shell history recording daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			if err := logger.Init(level, ""); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			return daemon.Run(logger.Log)
		},
	}

	root.Flags().String("log-level", "info", "debug, info, warn, or error")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
