package main

import (
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kevinwang15/jsonedit"
)

const configEnv = "JSONEDIT_CONFIG"

// config is the optional YAML file named by --config or $JSONEDIT_CONFIG.
// Flags set on the command line win over it.
type config struct {
	Indent       *int   `yaml:"indent"`
	DetectFormat bool   `yaml:"detect_format"`
	FinalNewline bool   `yaml:"final_newline"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
}

func defaultConfig() *config {
	return &config{LogLevel: "warning", LogFormat: "text"}
}

func loadConfig(path string) (*config, error) {
	cfg := defaultConfig()
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", path)
	}
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %q", path)
	}
	if cfg.Indent != nil && (*cfg.Indent < 0 || *cfg.Indent > 8) {
		return nil, errors.Errorf("config %q: indent must be between 0 and 8", path)
	}
	return cfg, nil
}

// editOptions maps the config onto the library's format options.
func (c *config) editOptions() []jsonedit.Option {
	if c.DetectFormat {
		return []jsonedit.Option{jsonedit.WithDetectedFormat()}
	}
	f := jsonedit.DefaultFormat
	if c.Indent != nil {
		f.Indent = *c.Indent
	}
	f.FinalNewline = c.FinalNewline
	return []jsonedit.Option{jsonedit.WithFormat(f)}
}

func (c *config) logger() (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	l.SetLevel(lvl)
	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Errorf("unknown log format %q", c.LogFormat)
	}
	return l, nil
}
