package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/4406arthur/copilot/domain"
	"github.com/spf13/cobra"
)

// Execute runs the command line. Dependencies are built by build after flags
// are parsed, so every subcommand sees the same App.
func Execute(version string, build Builder) {
	app := &App{}
	var configDir string

	rootCmd := &cobra.Command{
		Use:           "copilot",
		Short:         "Course Copilot client: follow generation tasks and grade answer sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["bare"] == "true" {
				return nil
			}
			built, err := build(configDir)
			if err != nil {
				return err
			}
			*app = *built
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "", "Configuration file directory")

	rootCmd.AddCommand(VersionCmd(version))
	rootCmd.AddCommand(SessionCmd(app))
	rootCmd.AddCommand(CourseCmd(app))
	rootCmd.AddCommand(TaskCmd(app))
	rootCmd.AddCommand(EvaluationCmd(app))
	rootCmd.AddCommand(LMSCmd(app))
	rootCmd.AddCommand(WorkerCmd(app))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if cerr := app.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", domain.Message(err))
		os.Exit(1)
	}
}

// VersionCmd ...
func VersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version",
		Annotations: map[string]string{"bare": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Copilot client %s, Compiler: %s %s\n",
				version,
				runtime.Compiler,
				runtime.Version())
		},
	}
}
