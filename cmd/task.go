package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// TaskCmd drives asset generation tasks on the current course.
func TaskCmd(app *App) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Create, follow and cancel generation tasks",
	}

	var payload string
	var wait bool

	createCmd := &cobra.Command{
		Use:   "create <asset_type>",
		Short: "Start generating a new asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			body, err := parsePayload(payload)
			if err != nil {
				return err
			}
			courseID, _, err := app.Session.CurrentCourse(ctx)
			if err != nil {
				return err
			}
			if wait {
				result, err := app.Tasks.Run(ctx, courseID, args[0], body, app.PollOptions())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			}
			id, err := app.Tasks.Create(ctx, courseID, args[0], body)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	createCmd.Flags().StringVarP(&payload, "payload", "p", "{}", "Request body as JSON")
	createCmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the task settles")

	updateCmd := &cobra.Command{
		Use:   "update <asset_name>",
		Short: "Regenerate an existing asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			body, err := parsePayload(payload)
			if err != nil {
				return err
			}
			courseID, _, err := app.Session.CurrentCourse(ctx)
			if err != nil {
				return err
			}
			id, err := app.Tasks.Update(ctx, courseID, args[0], body)
			if err != nil {
				return err
			}
			if !wait {
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}
			result, err := app.Tasks.PollUntilComplete(ctx, id, app.PollOptions())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	updateCmd.Flags().StringVarP(&payload, "payload", "p", "{}", "Request body as JSON")
	updateCmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the task settles")

	pollCmd := &cobra.Command{
		Use:   "poll <task_id>",
		Short: "Wait for a task and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Tasks.PollUntilComplete(cmd.Context(), args[0], app.PollOptions())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel <task_id>",
		Short: "Ask the backend to stop a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Tasks.Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cancel requested.")
			return nil
		},
	}

	taskCmd.AddCommand(createCmd, updateCmd, pollCmd, cancelCmd)
	return taskCmd
}

func parsePayload(s string) (json.RawMessage, error) {
	if !json.Valid([]byte(s)) {
		return nil, errors.New("invalid payload JSON")
	}
	return json.RawMessage(s), nil
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		fmt.Fprintln(w, "{}")
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
