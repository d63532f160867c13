package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/kevinwang15/jsonedit"
	"github.com/kevinwang15/jsonedit/store"
)

type editParams struct {
	path      string
	sets      []string
	editsFile string
	dryRun    bool
	diff      bool
	patch     bool
}

func initEdit(a *app) *cobra.Command {
	var p editParams
	c := &cobra.Command{
		Use:   "edit FILE",
		Short: "Edit fields of the node at --path",
		Long: `Edit fields of the node at --path and write the file back atomically.

Objects are merged: only the named fields change. A scalar node is replaced
through its "value" field. Each value is read as JSON when it parses as JSON
(42, true, {"a":1}, "\"quoted\"") and as a plain string otherwise.`,
		Example: `  jsonedit edit app.json -p '["server"]' --set port=8080 --set host=example.org
  jsonedit edit app.json -p '["server","port"]' --set value=9090
  jsonedit edit app.json -p '["server"]' --edits edits.yaml --diff`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEdit(cmd, args[0], p)
		},
	}
	addPathFlag(c.Flags(), &p.path)
	c.Flags().StringArrayVarP(&p.sets, "set", "s", nil, "field=value to set (repeatable); a bare value sets \"value\"")
	c.Flags().StringVarP(&p.editsFile, "edits", "f", "", "YAML or JSON file mapping field to value")
	c.Flags().BoolVar(&p.dryRun, "dry-run", false, "print the result instead of writing the file")
	c.Flags().BoolVar(&p.diff, "diff", false, "print a unified diff of the change")
	c.Flags().BoolVar(&p.patch, "patch", false, "print the change as a JSON merge patch")
	return c
}

func (a *app) collectEdits(p editParams) (jsonedit.FieldEdits, error) {
	edits := jsonedit.FieldEdits{}
	if p.editsFile != "" {
		data, err := os.ReadFile(p.editsFile)
		if err != nil {
			return nil, err
		}
		fromFile, err := jsonedit.ParseFieldEdits(data)
		if err != nil {
			return nil, err
		}
		for k, v := range fromFile {
			edits[k] = v
		}
	}
	fromFlags, err := jsonedit.ParseAssignments(p.sets)
	if err != nil {
		return nil, err
	}
	for k, v := range fromFlags {
		edits[k] = v
	}
	return edits, nil
}

func (a *app) runEdit(cmd *cobra.Command, file string, p editParams) error {
	path, err := parsePathFlag(p.path)
	if err != nil {
		return err
	}
	edits, err := a.collectEdits(p)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var st jsonedit.Store = store.NewFile(file)
	if p.dryRun {
		text, err := st.Contents(ctx)
		if err != nil {
			return err
		}
		st = store.NewMemory(text)
	}

	sess, err := jsonedit.Begin(ctx, st, path,
		jsonedit.WithLogger(a.log.WithField("file", file)),
		jsonedit.WithEditOptions(a.cfg.editOptions()...),
	)
	if err != nil {
		return err
	}
	editable := sess.Fields()
	for _, k := range sortedKeys(edits) {
		if _, ok := editable[k]; !ok {
			a.log.WithField("field", k).Warn("field is not an editable field of the node")
		}
	}

	before := sess.Snapshot()
	res, err := sess.Commit(ctx, edits)
	if err != nil {
		return err
	}

	if p.diff {
		if err := writeDiff(out, string(before), string(res.Text)); err != nil {
			return err
		}
	}
	if p.patch {
		patch, err := res.MergePatch()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(patch))
	}
	if p.dryRun && !p.diff && !p.patch {
		fmt.Fprintln(out, string(res.Text))
	}
	if !res.Changed {
		a.log.Info("document unchanged")
	}
	return nil
}

func writeDiff(w io.Writer, before, after string) error {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "before",
		ToFile:   "after",
		Context:  2,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, diff)
	return err
}

func sortedKeys(m jsonedit.FieldEdits) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
