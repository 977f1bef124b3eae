package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ehrlich-b/histd/internal/config"
	"github.com/ehrlich-b/histd/internal/importer"
	"github.com/ehrlich-b/histd/internal/indexstore"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "import entries recorded by another history tool",
	}
	cmd.AddCommand(importHistdbCmd(), importHistfileCmd())
	return cmd
}

func importHistdbCmd() *cobra.Command {
	var importFile string
	cmd := &cobra.Command{
		Use:   "histdb",
		Short: "import entries from an existing histdb sqlite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := config.ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}
			store := indexstore.New(paths.DataDir)

			n, err := importer.Histdb(importFile, store)
			if err != nil {
				return fmt.Errorf("import histdb: %w", err)
			}
			fmt.Printf("imported %d entries\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&importFile, "import-file", "i", defaultHistdbPath(), "path to the existing histdb sqlite file")
	return cmd
}

func importHistfileCmd() *cobra.Command {
	var importFile string
	cmd := &cobra.Command{
		Use:   "histfile",
		Short: "import entries from an existing zsh histfile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := config.ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}
			store := indexstore.New(paths.DataDir)

			hostname, err := resolveHostname()
			if err != nil {
				return fmt.Errorf("resolve hostname: %w", err)
			}
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolve home directory: %w", err)
			}

			n, err := importer.Histfile(importFile, hostname, os.Getenv("USER"), home, store)
			if err != nil {
				return fmt.Errorf("import histfile: %w", err)
			}
			fmt.Printf("imported %d entries\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&importFile, "import-file", "i", defaultHistfilePath(), "path to the existing zsh histfile")
	return cmd
}

func defaultHistdbPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.histdb/zsh-history.db"
}

func defaultHistfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.histfile"
}
