package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type flags struct {
	configPath string
	envFiles   []string
	fixture    string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:           "uptime-probe",
		Short:         "Probe one endpoint, compare it with a fixture and record the outcome",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "path to YAML config")
	cmd.Flags().StringSliceVar(&f.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the environment is read")
	cmd.Flags().StringVar(&f.fixture, "fixture", "", "expected response JSON (overrides fixture.path)")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("uptime-probe: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
