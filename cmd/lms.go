package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// LMSCmd talks to the learning management system through the backend.
func LMSCmd(app *App) *cobra.Command {
	lmsCmd := &cobra.Command{
		Use:   "lms",
		Short: "Connect to the LMS and manage course modules",
	}

	var lmsURL, username, password string
	connectCmd := &cobra.Command{
		Use:   "connect",
		Short: "Log in to the LMS and remember the connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := app.LMS.Connect(cmd.Context(), lmsURL, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connected as %s.\n", l.User)
			return nil
		},
	}
	connectCmd.Flags().StringVar(&lmsURL, "url", "", "LMS base URL")
	connectCmd.Flags().StringVarP(&username, "username", "u", "", "LMS username")
	connectCmd.Flags().StringVarP(&password, "password", "p", "", "LMS password")
	connectCmd.MarkFlagRequired("url")
	connectCmd.MarkFlagRequired("username")
	connectCmd.MarkFlagRequired("password")

	coursesCmd := &cobra.Command{
		Use:   "courses",
		Short: "List LMS courses",
		RunE: func(cmd *cobra.Command, args []string) error {
			courses, err := app.LMS.Courses(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range courses {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", c.ID, c.Name)
			}
			return nil
		},
	}

	modulesCmd := &cobra.Command{
		Use:   "modules <course_id>",
		Short: "List modules of an LMS course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modules, err := app.LMS.Modules(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, m := range modules {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", m.ID, m.Name)
			}
			return nil
		},
	}

	createModuleCmd := &cobra.Command{
		Use:   "create-module <course_id> <name>",
		Short: "Create a module in an LMS course",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.LMS.CreateModule(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Module %s created.\n", m.ID)
			return nil
		},
	}

	lmsCmd.AddCommand(connectCmd, coursesCmd, modulesCmd, createModuleCmd)
	return lmsCmd
}
