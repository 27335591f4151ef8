package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"stepwise/internal/daemonctl"
	"stepwise/internal/logging"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var limit int
	var sessionID string
	var component string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log events",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			query := daemonctl.LogQuery{
				Limit:     limit,
				SessionID: strings.TrimSpace(sessionID),
				Component: strings.TrimSpace(component),
			}
			out := cmd.OutOrStdout()
			printed := false
			for {
				resp, err := client.Logs(cmd.Context(), query)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				for _, evt := range resp.Events {
					fmt.Fprintln(out, formatLogEvent(evt))
					printed = true
				}
				if !follow {
					if !printed {
						fmt.Fprintln(out, "No log entries available")
					}
					return nil
				}
				if resp.Next > query.Since {
					query.Since = resp.Next
				}
				query.Follow = true
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep waiting for new events")
	cmd.Flags().IntVarP(&limit, "limit", "n", 200, "Maximum events per fetch")
	cmd.Flags().StringVar(&sessionID, "session", "", "Only show events for this session id")
	cmd.Flags().StringVar(&component, "component", "", "Only show events from this component")
	return cmd
}

func formatLogEvent(evt logging.LogEvent) string {
	parts := []string{evt.Timestamp.Local().Format("2006-01-02 15:04:05")}
	level := strings.ToUpper(strings.TrimSpace(evt.Level))
	if level == "" {
		level = "INFO"
	}
	parts = append(parts, level)
	if c := strings.TrimSpace(evt.Component); c != "" {
		parts = append(parts, "["+c+"]")
	}
	if subject := logSubject(evt); subject != "" {
		parts = append(parts, subject)
	}
	line := strings.Join(parts, " ")
	if msg := strings.TrimSpace(evt.Message); msg != "" {
		line += " - " + msg
	}
	if len(evt.Fields) == 0 {
		return line
	}
	keys := make([]string, 0, len(evt.Fields))
	for k := range evt.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(line)
	for _, k := range keys {
		v := strings.TrimSpace(evt.Fields[k])
		if v == "" {
			continue
		}
		b.WriteString("\n    - ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
	}
	return b.String()
}

func logSubject(evt logging.LogEvent) string {
	var parts []string
	if evt.Task != "" {
		parts = append(parts, evt.Task)
	}
	if id := evt.SessionID; id != "" {
		if len(id) > 8 {
			id = id[:8]
		}
		parts = append(parts, id)
	}
	if evt.Step != "" {
		parts = append(parts, evt.Step)
	}
	return strings.Join(parts, " · ")
}
