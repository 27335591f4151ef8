package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHandoffCommand(ctx *commandContext) *cobra.Command {
	handoffCmd := &cobra.Command{
		Use:     "handoff",
		Aliases: []string{"handoffs"},
		Short:   "Inspect and answer remote-expert hand-offs",
	}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions waiting for an expert",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			tickets, err := client.Handoffs(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, tickets)
			}
			out := cmd.OutOrStdout()
			if len(tickets) == 0 {
				fmt.Fprintln(out, "No pending hand-offs")
				return nil
			}
			rows := make([][]string, 0, len(tickets))
			for _, t := range tickets {
				rows = append(rows, []string{t.Token, t.Task, t.Step, t.SessionID, t.OpenedAt})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Token", "Task", "Suspended at", "Session", "Opened"},
				rows,
				nil,
			))
			return nil
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	resumeCmd := &cobra.Command{
		Use:   "resume <token> <step>",
		Short: "Resume a suspended session at the given step",
		Long: `Resume reports the step the expert left the user at. The session
continues from that step with fresh counters. Use "start" to send the
user back to the beginning.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			ack, err := client.Resume(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Hand-off %s resumes at %s\n", ack.Token, ack.Step)
			return nil
		},
	}

	handoffCmd.AddCommand(listCmd, resumeCmd)
	return handoffCmd
}
