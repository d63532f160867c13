package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kevinwang15/jsonedit"
	"github.com/kevinwang15/jsonedit/store"
)

func initFields(a *app) *cobra.Command {
	var path string
	c := &cobra.Command{
		Use:   "fields FILE",
		Short: "List the editable fields of the node at --path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePathFlag(path)
			if err != nil {
				return err
			}
			sess, err := jsonedit.Begin(cmd.Context(), store.NewFile(args[0]), p,
				jsonedit.WithLogger(a.log))
			if err != nil {
				return err
			}
			fields := sess.Fields()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintf(tw, "# %s (%s)\n", p, sess.Kind())
			for _, k := range sortedKeys(fields) {
				fmt.Fprintf(tw, "%s\t%s\n", k, fields[k])
			}
			return tw.Flush()
		},
	}
	addPathFlag(c.Flags(), &path)
	return c
}

func initGet(a *app) *cobra.Command {
	var path string
	c := &cobra.Command{
		Use:   "get FILE",
		Short: "Print the node at --path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePathFlag(path)
			if err != nil {
				return err
			}
			text, err := store.NewFile(args[0]).Contents(cmd.Context())
			if err != nil {
				return err
			}
			root, err := jsonedit.Parse(text)
			if err != nil {
				return err
			}
			loc, err := jsonedit.Resolve(root, p)
			if err != nil {
				return err
			}
			out, err := jsonedit.Marshal(loc.Value)
			if err != nil {
				return err
			}
			a.log.WithField("path", p.String()).Debug("node resolved")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	addPathFlag(c.Flags(), &path)
	return c
}
