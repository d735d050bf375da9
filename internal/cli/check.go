package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formbuilder/pkg/openapi"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

func (a *App) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file|->...",
		Short: "Report structural problems in schema or OpenAPI documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := false
			for _, path := range args {
				src, raw, err := readInput(cmd.InOrStdin(), path)
				if err != nil {
					return err
				}
				opts := validation.CheckOptions{Checker: a.evaluator}
				var result validation.SchemaValidationResult
				if isOpenAPI(raw) {
					result = a.checkOpenAPI(cmd.Context(), raw, opts)
				} else {
					result = validation.CheckDocument(raw, opts)
				}
				if result.Valid {
					fmt.Fprintf(a.stdout, "%s: ok\n", src.Location())
					continue
				}
				failed = true
				printIssues(a.stdout, src.Location(), result)
			}
			if failed {
				return errSilent
			}
			return nil
		},
	}
}

// checkOpenAPI imports every component schema and checks it, prefixing
// issue paths with the component's form id.
func (a *App) checkOpenAPI(ctx context.Context, raw []byte, opts validation.CheckOptions) validation.SchemaValidationResult {
	forms, err := openapi.Parse(ctx, raw)
	if err != nil {
		return validation.SchemaValidationResult{Issues: []validation.SchemaIssue{{Message: err.Error()}}}
	}
	result := validation.SchemaValidationResult{Valid: true}
	for _, form := range forms {
		for _, issue := range validation.CheckSchema(form, opts).Issues {
			if issue.Path == "" {
				issue.Path = form.ID
			} else {
				issue.Path = form.ID + "." + issue.Path
			}
			result.Issues = append(result.Issues, issue)
		}
	}
	result.Valid = len(result.Issues) == 0
	return result
}

func printIssues(w io.Writer, subject string, result validation.SchemaValidationResult) {
	fmt.Fprintf(w, "%s: %d issue(s)\n", subject, len(result.Issues))
	for _, issue := range result.Issues {
		location := issue.Path
		if location == "" {
			location = "(form)"
		}
		fmt.Fprintf(w, "  %s: %s\n", location, issue.Message)
	}
}
