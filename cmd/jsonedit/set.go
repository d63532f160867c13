package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kevinwang15/jsonedit"
	"github.com/kevinwang15/jsonedit/store"
)

func initSet(a *app) *cobra.Command {
	var path, value string
	var lenient, dryRun bool
	c := &cobra.Command{
		Use:   "set FILE",
		Short: "Replace the whole node at --path with a JSON value",
		Example: `  jsonedit set app.json -p '["server"]' --value '{"host":"localhost","port":80}'
  jsonedit set app.json -p '["name"]' --value hello --lenient`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePathFlag(path)
			if err != nil {
				return err
			}
			var v *jsonedit.Value
			if lenient {
				v = jsonedit.Reinterpret(value)
			} else if v, err = jsonedit.Parse([]byte(value)); err != nil {
				return errors.Wrap(err, "--value")
			}

			ctx := cmd.Context()
			st := store.NewFile(args[0])
			text, err := st.Contents(ctx)
			if err != nil {
				return err
			}
			out, err := jsonedit.SetAtPath(text, p, v, a.cfg.editOptions()...)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			a.log.WithField("path", p.String()).Info("node replaced")
			return st.SetContents(ctx, out)
		},
	}
	addPathFlag(c.Flags(), &path)
	c.Flags().StringVar(&value, "value", "", "replacement as JSON text")
	c.Flags().BoolVar(&lenient, "lenient", false, "store --value as a string when it is not valid JSON")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "print the result instead of writing the file")
	_ = c.MarkFlagRequired("value")
	return c
}
