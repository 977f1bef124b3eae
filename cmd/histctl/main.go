package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ehrlich-b/histd/internal/config"
	"github.com/ehrlich-b/histd/internal/transport"
)

func main() {
	show := showCmd()
	root := &cobra.Command{
		Use:   "histctl",
		Short: "shell history recorder control and query CLI",
		// With no subcommand, histctl runs the show query.
		RunE: show.RunE,
	}
	root.Flags().AddFlagSet(show.Flags())

	root.AddCommand(
		zshaddhistoryCmd(),
		precmdCmd(),
		sessionIDCmd(),
		serverCmd(),
		stopCmd(),
		disableCmd(),
		enableCmd(),
		show,
		importCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func clientFromConfig() (*transport.Client, error) {
	paths, err := config.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	return transport.NewClient(paths.SocketPath), nil
}
