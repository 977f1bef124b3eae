package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ehrlich-b/histd/internal/daemon"
	"github.com/ehrlich-b/histd/internal/logger"
	"github.com/ehrlich-b/histd/internal/sessionid"
	"github.com/ehrlich-b/histd/internal/wire"
)

func serverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "run the daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			if err := logger.Init(level, ""); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return daemon.Run(logger.Log)
		},
	}
	cmd.Flags().String("log-level", "info", "debug, info, warn, or error")
	return cmd
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "shut down the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFromConfig()
			if err != nil {
				return err
			}
			return client.Send(wire.Stop())
		},
	}
}

func disableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <session-id>",
		Short: "stop recording commands for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, err := sessionid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse session id: %w", err)
			}
			client, err := clientFromConfig()
			if err != nil {
				return err
			}
			return client.Send(wire.Disable(sid))
		},
	}
}

func enableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <session-id>",
		Short: "resume recording commands for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, err := sessionid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse session id: %w", err)
			}
			client, err := clientFromConfig()
			if err != nil {
				return err
			}
			return client.Send(wire.Enable(sid))
		},
	}
}
