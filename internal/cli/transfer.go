package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder"
	"github.com/goliatone/go-formbuilder/pkg/openapi"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

func (a *App) importCommand() *cobra.Command {
	var (
		asOpenAPI bool
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "import <file|->...",
		Short: "Check and save form schemas from JSON, YAML or OpenAPI files",
		Long: `Import reads every form in the given files, checks each one and saves
the lot only when all of them pass. OpenAPI documents are detected from
their top-level "openapi" key; --openapi forces that reading. A file named
"-" is read from standard input.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var forms []schema.FormSchema
			for _, path := range args {
				loaded, err := readForms(ctx, cmd.InOrStdin(), path, asOpenAPI)
				if err != nil {
					return err
				}
				forms = append(forms, loaded...)
			}

			now := time.Now()
			failed := false
			for i := range forms {
				forms[i] = formbuilder.Prepare(forms[i], now)
				result := formbuilder.CheckSchema(forms[i], a.evaluator)
				if !result.Valid {
					failed = true
					printIssues(a.stderr, forms[i].ID, result)
				}
			}
			if failed {
				return errSilent
			}
			if dryRun {
				fmt.Fprintf(a.stdout, "%d form(s) valid\n", len(forms))
				return nil
			}
			for _, form := range forms {
				if err := a.store.Save(ctx, form); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "Saved %s (%s)\n", form.ID, form.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asOpenAPI, "openapi", false, "read files as OpenAPI documents")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "check without saving")
	return cmd
}

func readForms(ctx context.Context, stdin io.Reader, path string, asOpenAPI bool) ([]schema.FormSchema, error) {
	src, raw, err := readInput(stdin, path)
	if err != nil {
		return nil, err
	}
	if asOpenAPI || isOpenAPI(raw) {
		forms, err := openapi.Parse(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.Location(), err)
		}
		return forms, nil
	}
	return schema.Decode(src, raw)
}

// readInput reads path, or stdin when path is "-".
func readInput(stdin io.Reader, path string) (schema.Source, []byte, error) {
	if path == "-" {
		src := schema.SourceInline("stdin")
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, nil, fmt.Errorf("read stdin: %w", err)
		}
		return src, raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return schema.SourceFromFile(path), raw, nil
}

// isOpenAPI sniffs the top-level keys of a JSON or YAML mapping.
func isOpenAPI(raw []byte) bool {
	var top map[string]any
	if err := yaml.Unmarshal(raw, &top); err != nil {
		return false
	}
	_, ok := top["openapi"]
	return ok
}

func (a *App) exportCommand() *cobra.Command {
	var (
		format string
		output string
		title  string
	)
	cmd := &cobra.Command{
		Use:   "export [form-id]...",
		Short: "Export stored forms as JSON, YAML, OpenAPI or an HTML preview",
		Long: `Export writes the named forms, or every stored form when none are named.
The html format renders exactly one form.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			forms, err := a.selectForms(ctx, args)
			if err != nil {
				return err
			}
			out, err := a.encode(ctx, format, title, forms)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = a.stdout.Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(a.stderr, "Wrote %d form(s) to %s\n", len(forms), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", render.FormatJSON, "json, yaml, openapi or html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&title, "title", openapi.DefaultInfo.Title, "OpenAPI document title")
	return cmd
}

func (a *App) selectForms(ctx context.Context, ids []string) ([]schema.FormSchema, error) {
	if len(ids) == 0 {
		forms, err := a.store.LoadAll(ctx)
		if err != nil {
			return nil, err
		}
		if len(forms) == 0 {
			return nil, errors.New("no forms saved")
		}
		return forms, nil
	}
	forms := make([]schema.FormSchema, 0, len(ids))
	for _, id := range ids {
		form, err := store.Find(ctx, a.store, id)
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, nil
}

func (a *App) encode(ctx context.Context, format, title string, forms []schema.FormSchema) ([]byte, error) {
	formats, err := render.DefaultRegistry(nil)
	if err != nil {
		return nil, err
	}
	renderer, err := formats.Get(format)
	if err != nil {
		return nil, err
	}
	return renderer.Render(ctx, forms, render.RenderOptions{Info: openapi.Info{Title: title}})
}
