package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stepwise/internal/api"
	"stepwise/internal/tasks"
)

func newEvaluateCommand(ctx *commandContext) *cobra.Command {
	var taskName string
	var state api.StateTuple
	var remote bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "evaluate <detections.json>",
		Short: "Evaluate one frame of detections against a stored state",
		Long: `Evaluate runs the step rule for --step against a JSON list of detections
and prints the outcome and the resulting state. Each detection is
{"label": "base", "box": [x1, y1, x2, y2], "score": 0.9}. Use - to read
from stdin. By default the evaluation runs locally; --remote asks the
daemon instead.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dets, err := readDetections(cmd, args[0])
			if err != nil {
				return err
			}
			req := api.EvaluateRequest{State: state, Detections: dets}

			var resp api.EvaluateResponse
			if remote {
				client, err := ctx.client()
				if err != nil {
					return err
				}
				resp, err = client.Evaluate(cmd.Context(), taskName, req)
				if err != nil {
					return err
				}
			} else {
				v, err := tasks.Builtin().Get(taskName)
				if err != nil {
					return err
				}
				resp, err = api.Evaluate(v, req)
				if err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderTable(
				[]string{"Outcome", "Step", "Revision", "One", "Two", "Done"},
				[][]string{{
					resp.Outcome,
					resp.State.Step,
					strconv.FormatInt(resp.State.Revision, 10),
					strconv.Itoa(resp.State.FramesWithOneConfirmation),
					strconv.Itoa(resp.State.FramesWithTwoConfirmations),
					yesNo(resp.Done),
				}},
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			for _, item := range resp.Results {
				if item.Type == api.PayloadText {
					fmt.Fprintf(out, "  > %s\n", item.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&taskName, "task", "t", "lamp", "Task variant")
	cmd.Flags().StringVarP(&state.Step, "step", "s", "start", "Current step name")
	cmd.Flags().Int64Var(&state.Revision, "revision", 0, "Current revision")
	cmd.Flags().IntVar(&state.FramesWithOneConfirmation, "one", 0, "Frames with one confirmation so far")
	cmd.Flags().IntVar(&state.FramesWithTwoConfirmations, "two", 0, "Frames with two confirmations so far")
	cmd.Flags().BoolVar(&remote, "remote", false, "Evaluate on the running daemon")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func readDetections(cmd *cobra.Command, path string) ([]api.Detection, error) {
	var r io.Reader
	if strings.TrimSpace(path) == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open detections: %w", err)
		}
		defer f.Close()
		r = f
	}
	var dets []api.Detection
	if err := json.NewDecoder(r).Decode(&dets); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	return dets, nil
}
