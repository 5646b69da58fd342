package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/4406arthur/copilot/domain"
	"github.com/4406arthur/copilot/future"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// EvaluationCmd grades answer sheets against a mark scheme.
func EvaluationCmd(app *App) *cobra.Command {
	evalCmd := &cobra.Command{
		Use:     "evaluation",
		Aliases: []string{"eval"},
		Short:   "Upload, grade, review and save evaluations",
	}

	var (
		markScheme  string
		answers     []string
		handwritten bool
		reportName  string
	)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Upload a mark scheme and answer sheets, then grade them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if markScheme == "" || len(answers) == 0 {
				return errors.New("--mark-scheme and at least one --answer are required")
			}
			ms, err := readUpload(markScheme)
			if err != nil {
				return err
			}
			sheets := make([]domain.UploadedFile, 0, len(answers))
			for _, p := range answers {
				f, err := readUpload(p)
				if err != nil {
					return err
				}
				sheets = append(sheets, f)
			}
			id, err := app.Evaluations.CreateEvaluationJob(ctx, ms, sheets, handwritten)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Evaluation %s created.\n", id)
			return runEvaluation(cmd, app, id, len(sheets), reportName)
		},
	}
	createCmd.Flags().StringVarP(&markScheme, "mark-scheme", "m", "", "Mark scheme file")
	createCmd.Flags().StringSliceVarP(&answers, "answer", "a", nil, "Answer sheet file (repeatable)")
	createCmd.Flags().BoolVar(&handwritten, "handwritten", false, "Files are scanned handwriting")
	createCmd.Flags().StringVar(&reportName, "save-as", "", "Save the results under this name when grading completes")

	var fileCount int
	runCmd := &cobra.Command{
		Use:   "run <evaluation_id>",
		Short: "Grade an evaluation whose files are already uploaded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluation(cmd, app, args[0], fileCount, reportName)
		},
	}
	runCmd.Flags().IntVarP(&fileCount, "files", "n", 1, "Number of answer sheets, used for the progress estimate")
	runCmd.Flags().StringVar(&reportName, "save-as", "", "Save the results under this name when grading completes")

	resumeCmd := &cobra.Command{
		Use:   "resume <evaluation_id>",
		Short: "Follow an evaluation started earlier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := app.Evaluations.Resume(cmd.Context(), args[0], progressPrinter(cmd.OutOrStdout()))
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), ev)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status <evaluation_id>",
		Short: "Read an evaluation once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := app.Evaluations.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", ev.Status)
			return printResults(cmd.OutOrStdout(), ev)
		},
	}

	var (
		question int
		score    string
		feedback string
	)
	editCmd := &cobra.Command{
		Use:   "edit <evaluation_id> <file_id>",
		Short: "Change the score and feedback of one question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ev, err := app.Evaluations.Status(ctx, args[0])
			if err != nil {
				return err
			}
			review, err := app.Evaluations.Review(ev, args[1])
			if err != nil {
				return err
			}
			if err := review.Stage(question-1, score, feedback); err != nil {
				return err
			}
			if _, err := review.Save(ctx); err != nil {
				return err
			}
			st := review.Student()
			fmt.Fprintf(cmd.OutOrStdout(), "Saved. %s total %s/%s (%s)\n", st.FileID,
				formatScore(st.TotalScore), formatScore(st.MaxTotalScore), st.Status)
			return nil
		},
	}
	editCmd.Flags().IntVarP(&question, "question", "q", 1, "Question position, starting at 1")
	editCmd.Flags().StringVarP(&score, "score", "s", "", "New score")
	editCmd.Flags().StringVarP(&feedback, "feedback", "f", "", "New feedback")

	saveCmd := &cobra.Command{
		Use:   "save <evaluation_id> [asset_name]",
		Short: "Save the results as a course asset",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			app.Evaluations.SaveReport(cmd.Context(), args[0], name)
			return leave(cmd, app)
		},
	}

	evalCmd.AddCommand(createCmd, runCmd, resumeCmd, statusCmd, editCmd, saveCmd)
	return evalCmd
}

func runEvaluation(cmd *cobra.Command, app *App, id string, fileCount int, reportName string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if reportName != "" {
		if err := app.Session.SetPendingEvaluationAssetName(ctx, reportName); err != nil {
			return err
		}
	}
	ev, err := app.Evaluations.Evaluate(ctx, id, fileCount, progressPrinter(out))
	fmt.Fprintln(out)
	if err != nil {
		return err
	}
	if err := printResults(out, ev); err != nil {
		return err
	}
	if reportName == "" {
		return nil
	}
	app.Evaluations.SaveReport(ctx, id, "")
	return leave(cmd, app)
}

// leave gives background saves their grace period before the process exits.
func leave(cmd *cobra.Command, app *App) error {
	err := app.Evaluations.Leave()
	if errors.Is(err, future.ErrAbandoned) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Report save still running; check the course assets later.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Report saved.")
	return nil
}

func progressPrinter(w io.Writer) func(domain.Progress) {
	return func(p domain.Progress) {
		fmt.Fprintf(w, "\r[%3d%%] %-32s", p.Percent, p.Stage)
	}
}

func printResults(w io.Writer, ev domain.Evaluation) error {
	if ev.Result == nil {
		return nil
	}
	for _, st := range ev.Result.Students {
		fmt.Fprintf(w, "%-24s %6s / %-6s %s\n", st.FileID,
			formatScore(st.TotalScore), formatScore(st.MaxTotalScore), st.Status)
	}
	return nil
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func readUpload(path string) (domain.UploadedFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.UploadedFile{}, errors.Wrapf(err, "read %s", path)
	}
	return domain.UploadedFile{Name: filepath.Base(path), Content: b}, nil
}
