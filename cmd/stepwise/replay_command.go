package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stepwise/internal/api"
	"stepwise/internal/session"
	"stepwise/internal/tasks"
)

type replayRow struct {
	Line       int            `json:"line"`
	Event      string         `json:"event"`
	Seen       []string       `json:"seen,omitempty"`
	Outcome    string         `json:"outcome"`
	State      api.StateTuple `json:"state"`
	Supplement string         `json:"supplement,omitempty"`
	Done       bool           `json:"done"`
}

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var taskName string
	var threshold float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "replay <frames.jsonl>",
		Short: "Replay recorded detections through a session",
		Long: `Replay feeds a recorded session through a fresh controller. Each line
is either a JSON list of detections (one frame) or a control message such
as {"type":"start"} or {"type":"restore","state":{"step":"BUCKLE"}}.
Blank lines and lines starting with # are skipped.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := tasks.Builtin().Get(taskName)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open replay: %w", err)
			}
			defer f.Close()

			rows, err := replay(v, f, threshold)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, rows)
			}
			out := cmd.OutOrStdout()
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{
					strconv.Itoa(r.Line),
					r.Event,
					strings.Join(r.Seen, " "),
					r.Outcome,
					r.State.Step,
					strconv.FormatInt(r.State.Revision, 10),
					strconv.Itoa(r.State.FramesWithOneConfirmation),
					strconv.Itoa(r.State.FramesWithTwoConfirmations),
					r.Supplement,
				})
			}
			fmt.Fprint(out, renderTableSpec(tableSpec{
				headers:   []string{"Line", "Event", "Seen", "Outcome", "Step", "Rev", "One", "Two", "Note"},
				aligns:    []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
				highlight: len(table) - 1,
				colorize:  shouldColorize(out),
			}, table))
			if n := len(rows); n > 0 && rows[n-1].Done {
				fmt.Fprintln(out, "Task complete")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&taskName, "task", "t", "lamp", "Task variant")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.5, "Drop boxes scoring below this confidence")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// replay runs every line of r through a controller for v.
func replay(v *tasks.Variant, r io.Reader, threshold float64) ([]replayRow, error) {
	ctrl := session.New(v, nil, session.WithID("replay"))
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 4<<20)

	var rows []replayRow
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		var (
			res   session.Result
			event string
			seen  []string
			err   error
		)
		if raw[0] == '[' {
			var dets []api.Detection
			if err := json.Unmarshal(raw, &dets); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			set, convErr := api.ToDetectionSet(v, dets)
			if convErr != nil {
				return nil, fmt.Errorf("line %d: %w", line, convErr)
			}
			filtered := set.Filter(threshold)
			event = "frame"
			if filtered.Empty() {
				event = "empty_frame"
			}
			for _, c := range filtered.Classes() {
				seen = append(seen, v.ClassName(c))
			}
			res, err = ctrl.Apply(filtered)
		} else {
			var msg api.ToServer
			if err := json.Unmarshal(raw, &msg); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			event = strings.TrimSpace(msg.Type)
			switch event {
			case api.MessageStart:
				res = ctrl.Restart()
			case api.MessageRestore:
				if msg.State == nil {
					return nil, fmt.Errorf("line %d: restore requires a state", line)
				}
				st, convErr := api.ToState(v.Catalog, *msg.State)
				if convErr != nil {
					return nil, fmt.Errorf("line %d: %w", line, convErr)
				}
				res, err = ctrl.Restore(st)
			default:
				return nil, fmt.Errorf("line %d: unsupported replay event %q", line, msg.Type)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, replayRow{
			Line:       line,
			Event:      event,
			Seen:       seen,
			Outcome:    res.Outcome.Kind.String(),
			State:      api.FromState(v.Catalog, res.State),
			Supplement: res.Supplement,
			Done:       res.Done,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	return rows, nil
}
