package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

func (a *App) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			forms, err := a.store.LoadAll(cmd.Context())
			if err != nil {
				return err
			}
			if len(forms) == 0 {
				fmt.Fprintln(a.stdout, "No forms saved.")
				return nil
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tFIELDS\tCREATED")
			for _, form := range forms {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", form.ID, form.Name, len(form.Fields), form.CreatedAt)
			}
			return tw.Flush()
		},
	}
}

func (a *App) showCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <form-id>",
		Short: "Print a stored form schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := store.Find(cmd.Context(), a.store, args[0])
			if err != nil {
				return err
			}
			var out []byte
			switch format {
			case "json":
				out, err = schema.EncodeJSON(form)
				out = append(out, '\n')
			case "yaml":
				out, err = schema.EncodeYAML(form)
			default:
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	return cmd
}

func (a *App) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <form-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored form",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := store.Find(cmd.Context(), a.store, args[0]); err != nil {
				return err
			}
			if err := a.store.DeleteByID(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Deleted %s\n", args[0])
			return nil
		},
	}
}
