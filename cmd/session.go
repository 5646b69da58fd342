package cmd

import (
	"fmt"
	"time"

	"github.com/4406arthur/copilot/domain"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// SessionCmd manages the stored backend credentials. Signing in happens in
// the web app; its tokens are imported here.
func SessionCmd(app *App) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage stored credentials",
	}

	var (
		token, refreshToken string
		user                domain.User
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Store an access token, refresh token and user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" || user.ID == "" {
				return errors.New("--token and --user-id are required")
			}
			ctx := cmd.Context()
			if err := app.Session.SetTokens(ctx, domain.TokenPair{AccessToken: token, RefreshToken: refreshToken}); err != nil {
				return err
			}
			if err := app.Session.SetUser(ctx, user); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session stored.")
			return nil
		},
	}
	importCmd.Flags().StringVar(&token, "token", "", "Access token")
	importCmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token")
	importCmd.Flags().StringVar(&user.ID, "user-id", "", "User id")
	importCmd.Flags().StringVar(&user.Email, "email", "", "User email")
	importCmd.Flags().StringVar(&user.Name, "name", "", "User name")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in and when the token expires",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			u, err := app.Session.User(ctx)
			if errors.Is(err, domain.ErrNotFound) {
				fmt.Fprintln(out, "Not signed in.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "User:    %s %s <%s>\n", u.ID, u.Name, u.Email)
			exp, err := app.Session.AccessTokenExpiry(ctx)
			switch {
			case err != nil:
				fmt.Fprintln(out, "Token:   expiry unknown")
			case time.Now().After(exp):
				fmt.Fprintf(out, "Token:   expired at %s (refreshed on next call)\n", exp.Format(time.RFC3339))
			default:
				fmt.Fprintf(out, "Token:   valid until %s\n", exp.Format(time.RFC3339))
			}
			if id, title, err := app.Session.CurrentCourse(ctx); err == nil {
				fmt.Fprintf(out, "Course:  %s %s\n", id, title)
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget all stored state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Session.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session cleared.")
			return nil
		},
	}

	sessionCmd.AddCommand(importCmd, statusCmd, clearCmd)
	return sessionCmd
}

// CourseCmd selects the course that task commands act on.
func CourseCmd(app *App) *cobra.Command {
	courseCmd := &cobra.Command{
		Use:   "course",
		Short: "Select the current course",
	}
	useCmd := &cobra.Command{
		Use:   "use <course_id> [title]",
		Short: "Make a course current",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := ""
			if len(args) == 2 {
				title = args[1]
			}
			if err := app.Session.SetCurrentCourse(cmd.Context(), args[0], title); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Current course: %s\n", args[0])
			return nil
		},
	}
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current course",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, title, err := app.Session.CurrentCourse(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, title)
			return nil
		},
	}
	courseCmd.AddCommand(useCmd, showCmd)
	return courseCmd
}
