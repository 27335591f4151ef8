package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stepwise/internal/api"
	"stepwise/internal/daemonctl"
	"stepwise/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the stepwise daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&development, "dev", false, "Include source locations in log output")
	return cmd
}

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the stepwise daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.client()
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			state, err := daemonctl.EnsureStarted(cmd.Context(), client, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath,
				LogLevel:   startLogLevel,
			}, 10*time.Second)
			if err != nil {
				return err
			}
			switch state {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			default:
				fmt.Fprintf(stdout, "Daemon started on %s\n", client.BaseURL())
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override logging.level for the launched daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the stepwise daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.client()
			if err != nil {
				return err
			}
			stopped, err := daemonctl.Stop(cmd.Context(), client, ctx.configValue(), 5*time.Second)
			if err != nil {
				return err
			}
			if !stopped {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, detector and hand-off status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if errors.Is(err, daemonctl.ErrUnavailable) {
				if statusJSON {
					return writeJSON(cmd, api.DaemonStatus{})
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusError, "not running", shouldColorize(stdout)))
				return nil
			}
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, status)
			}
			for _, line := range statusLines(status, shouldColorize(stdout)) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func statusLines(status api.DaemonStatus, colorize bool) []string {
	lines := renderSectionHeader("Daemon", colorize)
	daemonKind, daemonMsg := statusWarn, "lock not held"
	if status.Running {
		daemonKind = statusOK
		daemonMsg = "running (pid " + strconv.Itoa(status.PID) + ")"
		if status.StartedAt != "" {
			daemonMsg += " since " + status.StartedAt
		}
	}
	lines = append(lines,
		renderStatusLine("Daemon", daemonKind, daemonMsg, colorize),
		renderStatusLine("Detector", statusInfo, status.DetectorKind+" "+status.DetectorURL, colorize),
		renderStatusLine("Tasks", statusInfo, strings.Join(status.Tasks, ", ")+" (default "+status.DefaultTask+")", colorize),
		"",
	)
	lines = append(lines, renderSectionHeader("Sessions", colorize)...)
	lines = append(lines, renderStatusLine("Connected", statusInfo, strconv.Itoa(status.Sessions), colorize))
	handoffKind := statusOK
	if status.PendingHandoffs > 0 {
		handoffKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Pending hand-offs", handoffKind, strconv.Itoa(status.PendingHandoffs), colorize))
	imagesKind, imagesMsg := statusOK, "all present"
	if len(status.MissingImages) > 0 {
		imagesKind = statusWarn
		imagesMsg = "missing " + strings.Join(status.MissingImages, ", ")
	}
	lines = append(lines, renderStatusLine("Images", imagesKind, imagesMsg, colorize))
	return lines
}
