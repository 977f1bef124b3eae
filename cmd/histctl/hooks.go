package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehrlich-b/histd/internal/config"
	"github.com/ehrlich-b/histd/internal/sessionid"
	"github.com/ehrlich-b/histd/internal/wire"
)

func sessionIDFromEnv() (sessionid.ID, error) {
	raw := os.Getenv("HISTDB_RS_SESSION_ID")
	if raw == "" {
		return sessionid.ID{}, fmt.Errorf("HISTDB_RS_SESSION_ID is not set")
	}
	return sessionid.Parse(raw)
}

func resolveHostname() (string, error) {
	paths, err := config.ResolvePaths()
	if err != nil {
		return "", err
	}
	cfg, err := config.Load(paths.ConfigPath)
	if err != nil {
		return "", err
	}
	if cfg.Hostname != nil {
		return *cfg.Hostname, nil
	}
	return os.Hostname()
}

func zshaddhistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "zshaddhistory <command>",
		Short: "record that a command has started executing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, err := sessionIDFromEnv()
			if err != nil {
				return err
			}
			hostname, err := resolveHostname()
			if err != nil {
				return fmt.Errorf("resolve hostname: %w", err)
			}
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}

			cs := wire.CommandStart{
				SessionID: sid,
				Timestamp: time.Now().UTC(),
				Command:   args[0],
				Cwd:       cwd,
				User:      os.Getenv("USER"),
				Hostname:  hostname,
			}

			client, err := clientFromConfig()
			if err != nil {
				return err
			}
			return client.Send(wire.NewCommandStart(cs))
		},
	}
}

func precmdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "precmd",
		Short: "record that the most recent command has finished",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, err := sessionIDFromEnv()
			if err != nil {
				return err
			}

			retval := os.Getenv("HISTDB_RS_RETVAL")
			if retval == "" {
				return fmt.Errorf("HISTDB_RS_RETVAL is not set")
			}
			code, err := strconv.ParseUint(retval, 10, 16)
			if err != nil {
				return fmt.Errorf("parse HISTDB_RS_RETVAL: %w", err)
			}

			cf := wire.CommandFinished{
				SessionID:  sid,
				Timestamp:  time.Now().UTC(),
				ResultCode: uint16(code),
			}

			client, err := clientFromConfig()
			if err != nil {
				return err
			}
			return client.Send(wire.NewCommandFinished(cf))
		},
	}
}

func sessionIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session-id",
		Short: "print a fresh session id for a new interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(sessionid.New().String())
			return nil
		},
	}
}
