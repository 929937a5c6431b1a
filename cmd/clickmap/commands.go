package main

import (
	"clickmap/internal/bootstrap"
	"clickmap/internal/console"
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var overrides bootstrap.Overrides

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clickmap",
		Short: "Map the clickable elements of a list of web pages",
		Long: `clickmap visits every URL listed in the input file, records each element a
user could meaningfully click and writes <stem>.json plus a <stem>.png screenshot
per page into the output directory.

Settings come from the environment (see .env); flags override them.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runScan,
	}

	root.PersistentFlags().StringVar(&overrides.Engine, "engine", "", "Browser engine: playwright or rod (default from BROWSER_ENGINE)")

	scan := &cobra.Command{
		Use:   "scan",
		Short: "Scan every URL in the input file",
		Args:  cobra.NoArgs,
		RunE:  runScan,
	}

	for _, cmd := range []*cobra.Command{root, scan} {
		cmd.Flags().StringVarP(&overrides.URLFile, "urls", "u", "", "URL list file (default from SCAN_URL_FILE)")
		cmd.Flags().BoolVar(&overrides.Annotate, "annotate", false, "Also write annotated screenshots to the vis directory")
	}

	clean := &cobra.Command{
		Use:   "clean",
		Short: "Delete and recreate the output and vis directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(console.Request{Command: console.CommandClean})
		},
	}

	annotate := &cobra.Command{
		Use:   "annotate [stem...]",
		Short: "Draw report boxes onto screenshots",
		Long: `annotate outlines every recorded element of a report on its screenshot and
writes the result into the vis directory. With no stems, every report is drawn.

Example:
  clickmap annotate example.com github.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(console.Request{Command: console.CommandAnnotate, Stems: args})
		},
	}

	root.AddCommand(scan, clean, annotate)

	return root
}

func runScan(cmd *cobra.Command, args []string) error {
	return runApp(console.Request{Command: console.CommandScan})
}

// runApp starts the application for req, blocks until the request finishes
// or a termination signal arrives, then stops it.
func runApp(req console.Request) error {
	app := bootstrap.NewApp(req, overrides)

	startCtx, cancelStart := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancelStart()

	if err := app.Start(startCtx); err != nil {
		return err
	}

	sig := <-app.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()

	if err := app.Stop(stopCtx); err != nil {
		return err
	}

	if sig.ExitCode != console.ExitOK {
		return fmt.Errorf("%s failed with exit code %d", req.Command, sig.ExitCode)
	}

	return nil
}
