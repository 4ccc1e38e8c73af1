package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/AndrewLester/sntpal/internal/rpc"
	"github.com/AndrewLester/sntpal/internal/ui"
	"github.com/AndrewLester/sntpal/pkg/sntpal"
)

func socketPath() string {
	if cfg.Socket == "" {
		return sntpal.DefaultSocketPath
	}
	return cfg.Socket
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the daemon's last sync result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rpc.Dial(socketPath())
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := client.FetchStatus()
			if err != nil {
				return fmt.Errorf("error getting status from daemon: %w", err)
			}

			printStatus(cmd.OutOrStdout(), status, time.Now())

			return nil
		},
	}
}

func newResyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Ask the daemon to sync now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rpc.Dial(socketPath())
			if err != nil {
				return err
			}
			defer client.Close()

			return client.Resync()
		},
	}
}

type statusRow struct {
	Field, Value string
}

func statusRows(status rpc.Status, now time.Time) []statusRow {
	synced := "no"
	if status.Synced {
		synced = "yes"
	}

	rows := []statusRow{
		{"Server", status.Server},
		{"Timezone", status.Timezone},
		{"Synced", synced},
	}

	if status.Synced {
		rows = append(rows,
			statusRow{"Local time", status.LocalTime},
			statusRow{"UTC", status.UTC.Format(time.RFC3339)},
			statusRow{"Last sync", fmt.Sprintf("%s ago", now.Sub(status.SyncedAt).Truncate(time.Second))},
		)
	}

	rows = append(rows,
		statusRow{"Attempts", fmt.Sprint(status.Attempts)},
		statusRow{"Failures", fmt.Sprint(status.Failures)},
	)

	if !status.NextAttempt.IsZero() {
		rows = append(rows, statusRow{"Next attempt", fmt.Sprintf("in %s", status.NextAttempt.Sub(now).Truncate(time.Second))})
	}

	if status.LastError != "" {
		rows = append(rows, statusRow{"Last error", status.LastError})
	}

	return rows
}

func printStatus(out io.Writer, status rpc.Status, now time.Time) {
	for _, row := range statusRows(status, now) {
		value := row.Value

		if row.Field == "Synced" {
			if status.Synced {
				value = ui.Good(value)
			} else {
				value = ui.Bad(value)
			}
		}

		fmt.Fprintf(out, "%-14s %s\n", row.Field+":", value)
	}
}
