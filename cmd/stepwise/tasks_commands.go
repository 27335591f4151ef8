package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stepwise/internal/api"
	"stepwise/internal/tasks"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	tasksCmd := &cobra.Command{
		Use:         "tasks",
		Short:       "List built-in task variants",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := tasks.Builtin()
			summaries := make([]api.TaskSummary, 0, len(reg.Names()))
			for _, v := range reg.All() {
				summaries = append(summaries, api.SummarizeVariant(v))
			}
			if asJSON {
				return writeJSON(cmd, api.TaskListResponse{Tasks: summaries})
			}
			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				rows = append(rows, []string{s.Name, strconv.Itoa(s.Steps), s.Initial, s.Final})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Task", "Steps", "First", "Last"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	tasksCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Output as JSON")

	showCmd := &cobra.Command{
		Use:   "show <task>",
		Short: "Show the step catalog and detector classes of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := tasks.Builtin().Get(args[0])
			if err != nil {
				return err
			}
			detail := api.FromVariant(v)
			if asJSON {
				return writeJSON(cmd, detail)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			printSection(out, "Steps of "+detail.Name, colorize)
			rows := make([][]string, 0, len(detail.Steps))
			for _, step := range detail.Steps {
				rows = append(rows, []string{strconv.Itoa(step.ID), step.Name, step.Image, step.Text})
			}
			fmt.Fprint(out, renderTableSpec(tableSpec{
				headers:   []string{"#", "Step", "Image", "Instruction"},
				aligns:    []columnAlignment{alignRight},
				highlight: len(rows) - 1,
				colorize:  colorize,
			}, rows))

			fmt.Fprintln(out)
			printSection(out, "Detector classes", colorize)
			classRows := make([][]string, 0, len(detail.Classes))
			for _, c := range detail.Classes {
				classRows = append(classRows, []string{strconv.Itoa(c.ID), c.Name})
			}
			fmt.Fprint(out, renderTable([]string{"Class", "Label"}, classRows, []columnAlignment{alignRight}))
			return nil
		},
	}
	tasksCmd.AddCommand(showCmd)
	return tasksCmd
}
