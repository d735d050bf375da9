package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formbuilder/pkg/renderers/tui"
	"github.com/goliatone/go-formbuilder/pkg/session"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

func (a *App) fillCommand() *cobra.Command {
	var (
		output    string
		maxRounds int
	)
	cmd := &cobra.Command{
		Use:   "fill <form-id>",
		Short: "Fill a stored form in the terminal",
		Long: `Fill prompts for every editable field, showing derived values as they
change, then submits. Fields that fail validation are asked again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, ok := tui.ParseOutputFormat(output)
			if !ok {
				return fmt.Errorf("unknown output format %q (want json, form or pretty)", output)
			}
			form, err := store.Find(cmd.Context(), a.store, args[0])
			if err != nil {
				return err
			}
			driver := a.driver
			if driver == nil {
				driver = tui.NewSurveyDriver(a.stderr)
			}
			filler, err := tui.New(
				tui.WithPromptDriver(driver),
				tui.WithOutputFormat(format),
				tui.WithMaxRounds(maxRounds),
				tui.WithSessionOptions(
					session.WithEvaluator(a.evaluator),
					session.WithLogger(a.logger),
					session.WithEvalTimeout(a.cfg.Eval.Timeout),
				),
			)
			if err != nil {
				return err
			}
			out, err := filler.Render(cmd.Context(), form)
			if len(out) > 0 {
				if _, werr := a.stdout.Write(out); werr != nil {
					return werr
				}
			}
			if errors.Is(err, tui.ErrAborted) {
				fmt.Fprintln(a.stderr, "Aborted.")
				return errSilent
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(tui.OutputFormatJSON), "json, form or pretty")
	cmd.Flags().IntVar(&maxRounds, "max-rounds", tui.DefaultMaxRounds, "submit attempts before giving up")
	return cmd
}
