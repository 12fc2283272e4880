package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commitpipe/internal/core/version"
	"commitpipe/internal/modkit"
	"commitpipe/internal/modkit/module"
	"commitpipe/internal/platform/config"
	perr "commitpipe/internal/platform/errors"
	"commitpipe/internal/platform/logger"
	"commitpipe/internal/services/commits/domain"
	"commitpipe/internal/services/commits/ingest"
	commitsmod "commitpipe/internal/services/commits/module"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "pipeline_conf/pipeline_config.yaml"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "commitpipe",
		Short:         "Load a repository's recent commit history into a SQL sink",
		Version:       version.Info().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd())
	root.AddCommand(windowsCmd())
	root.AddCommand(versionCmd())
	return root
}

func runCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, stage, adapt and reconcile one run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, path)
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c",
		config.New().Prefix("COMMITPIPE_").MayString("CONFIG", defaultConfigPath),
		"settings file (env COMMITPIPE_CONFIG)")
	return cmd
}

func run(ctx context.Context, path string) error {
	l := logger.Get()

	settings, err := config.LoadSettings(path)
	if err != nil {
		return err
	}
	env := config.New()
	deps := modkit.Deps{
		Log:      *l,
		Cfg:      env,
		Settings: settings.WithEnvOverrides(env.Prefix("COMMITPIPE_")),
	}

	m, err := commitsmod.New(deps)
	if err != nil {
		return perr.WithOp(err, "configure")
	}
	opts := m.Options()
	l.Info().
		Str("settings", settings.Path()).
		Str("repo", opts.Owner+"/"+opts.Repo).
		Str("driver", opts.Driver).
		Str("table", opts.Table).
		Str("validation", string(opts.Mode)).
		Bool("token", opts.Token != "").
		Msg("configured")

	if _, err := module.MustPortsOf[domain.RunnerPort](m).Run(ctx); err != nil {
		return err
	}
	return nil
}

func windowsCmd() *cobra.Command {
	var (
		nowFlag string
		count   int
	)
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Print the trailing month windows a run would fetch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			if nowFlag != "" {
				t, err := parseNow(nowFlag)
				if err != nil {
					return err
				}
				now = t
			}
			printWindows(cmd.OutOrStdout(), ingest.TrailingWindows(now, count))
			return nil
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "reference instant, RFC3339 or YYYY-MM-DD (default current time)")
	cmd.Flags().IntVarP(&count, "count", "n", ingest.DefaultWindows, "number of windows")
	return cmd
}

func parseNow(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(domain.RunTagLayout, s)
	if err != nil {
		return time.Time{}, perr.InvalidArgf("--now %q: want RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func printWindows(w io.Writer, ws []domain.Window) {
	for _, win := range ws {
		fmt.Fprintf(w, "%s  %s  %s\n", win.Key, win.Start.Format(time.RFC3339), win.End.Format(time.RFC3339))
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}
