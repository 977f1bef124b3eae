package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ehrlich-b/histd/internal/config"
	"github.com/ehrlich-b/histd/internal/filter"
	"github.com/ehrlich-b/histd/internal/indexstore"
)

func showCmd() *cobra.Command {
	var (
		hostFlag         string
		allHosts         bool
		dirFlag          string
		noSubdirs        bool
		commandFlag      string
		textFlag         string
		textExcludedFlag string
		sessionFlag      string
		failedFlag       bool
		statusFlag       int
		countFlag        int
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "query recorded history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := config.ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}

			f := filter.Filter{
				Directory: dirFlag,
				NoSubdirs: noSubdirs,
				Command:   commandFlag,
				Failed:    failedFlag,
				Count:     countFlag,
			}
			if !allHosts {
				if hostFlag == "" {
					hostname, err := resolveHostname()
					if err != nil {
						return fmt.Errorf("resolve hostname: %w", err)
					}
					hostFlag = hostname
				}
				f.Hostname = hostFlag
			}
			if textFlag != "" {
				re, err := regexp.Compile(textFlag)
				if err != nil {
					return fmt.Errorf("compile --text regex: %w", err)
				}
				f.CommandText = re
			}
			if textExcludedFlag != "" {
				re, err := regexp.Compile(textExcludedFlag)
				if err != nil {
					return fmt.Errorf("compile --text-excluded regex: %w", err)
				}
				f.CommandTextExcluded = re
			}
			if sessionFlag != "" {
				re, err := regexp.Compile(sessionFlag)
				if err != nil {
					return fmt.Errorf("compile --session regex: %w", err)
				}
				f.Session = re
			}
			if statusFlag >= 0 {
				status := uint16(statusFlag)
				f.FindStatus = &status
			}

			store := indexstore.New(paths.DataDir)
			entries, err := store.GetEntries(f)
			if err != nil {
				return fmt.Errorf("query entries: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, e := range entries {
				if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					e.TimeFinished.Format("2006-01-02 15:04:05"), e.Hostname, e.Pwd, e.Command, e.Result); err != nil {
					return swallowBrokenPipe(err)
				}
			}
			if err := w.Flush(); err != nil {
				return swallowBrokenPipe(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hostFlag, "host", "", "only entries from this hostname (default: current host)")
	cmd.Flags().BoolVar(&allHosts, "all-hosts", false, "include entries from every hostname")
	cmd.Flags().StringVar(&dirFlag, "dir", "", "only entries run under this directory")
	cmd.Flags().BoolVar(&noSubdirs, "no-subdirs", false, "with --dir, match the directory exactly")
	cmd.Flags().StringVar(&commandFlag, "command", "", "only entries whose first pipeline token equals this")
	cmd.Flags().StringVar(&textFlag, "text", "", "only entries whose command matches this regex")
	cmd.Flags().StringVar(&textExcludedFlag, "text-excluded", "", "exclude entries whose command matches this regex")
	cmd.Flags().StringVar(&sessionFlag, "session", "", "only entries whose session id matches this regex")
	cmd.Flags().BoolVar(&failedFlag, "failed", false, "only entries with result == 0")
	cmd.Flags().IntVar(&statusFlag, "status", -1, "only entries with this exact result code")
	cmd.Flags().IntVar(&countFlag, "count", 25, "number of entries to show, 0 for unlimited")

	return cmd
}

// swallowBrokenPipe reports success when the failure is just the
// reader on the far end of a pipe (e.g. `| head`) having gone away.
func swallowBrokenPipe(err error) error {
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}
