package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stepwise/internal/assets"
	"stepwise/internal/tasks"
)

func newImagesCommand(ctx *commandContext) *cobra.Command {
	imagesCmd := &cobra.Command{
		Use:   "images",
		Short: "List instruction images and whether they are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := assets.NewStore(cfg.Paths.ImageDir)
			names := tasks.Builtin().Images()
			missing := make(map[string]struct{})
			for _, name := range store.Missing(names) {
				missing[name] = struct{}{}
			}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				_, absent := missing[name]
				rows = append(rows, []string{name, yesNo(!absent)})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Image directory: %s\n", store.Dir())
			fmt.Fprint(out, renderTable([]string{"Image", "Installed"}, rows, nil))
			return nil
		},
	}

	var overwrite bool
	installCmd := &cobra.Command{
		Use:   "install <dir>",
		Short: "Copy instruction images from a directory into paths.image_dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := assets.NewStore(cfg.Paths.ImageDir)
			result, err := store.Install(args[0], tasks.Builtin().Images(), overwrite)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Installed %d image(s) into %s\n", len(result.Copied), store.Dir())
			if len(result.Skipped) > 0 {
				fmt.Fprintf(out, "Kept existing: %s (use --overwrite to replace)\n", strings.Join(result.Skipped, ", "))
			}
			if len(result.Missing) > 0 {
				fmt.Fprintf(out, "Not found in %s: %s\n", args[0], strings.Join(result.Missing, ", "))
			}
			return nil
		},
	}
	installCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace images that are already installed")
	imagesCmd.AddCommand(installCmd)
	return imagesCmd
}
