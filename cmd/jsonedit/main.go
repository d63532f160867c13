// Command jsonedit edits one node of a JSON file in place.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kevinwang15/jsonedit"
)

type app struct {
	configPath   string
	logLevel     string
	logFormat    string
	indent       int
	detectFormat bool
	finalNL      bool

	cfg *config
	log *logrus.Logger
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "jsonedit",
		Short:         "Edit a single node of a JSON document",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file (default $"+configEnv+")")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warning, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	pf.IntVar(&a.indent, "indent", 2, "spaces per indent level in the output")
	pf.BoolVar(&a.detectFormat, "detect-format", false, "keep the input file's indent and final newline")
	pf.BoolVar(&a.finalNL, "final-newline", false, "end the output with a newline")

	root.AddCommand(
		initEdit(a),
		initSet(a),
		initFields(a),
		initGet(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if flags.Changed("indent") {
		if a.indent < 0 || a.indent > 8 {
			return errors.New("--indent must be between 0 and 8")
		}
		cfg.Indent = &a.indent
	}
	if flags.Changed("detect-format") {
		cfg.DetectFormat = a.detectFormat
	}
	if flags.Changed("final-newline") {
		cfg.FinalNewline = a.finalNL
	}
	a.cfg = cfg
	a.log, err = cfg.logger()
	return err
}

func addPathFlag(fs *pflag.FlagSet, path *string) {
	fs.StringVarP(path, "path", "p", "", `node path as a JSON array, e.g. '["server","port"]' (default: root)`)
}

func parsePathFlag(s string) (jsonedit.Path, error) {
	p, err := jsonedit.ParsePath(s)
	if err != nil {
		return nil, errors.Wrap(err, "--path")
	}
	return p, nil
}
