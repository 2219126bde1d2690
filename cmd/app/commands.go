package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/chordbook/internal"
	"github.com/starford/chordbook/internal/api"
	"github.com/starford/chordbook/internal/chordsheet"
	"github.com/starford/chordbook/internal/lifecycle"
	"github.com/starford/chordbook/internal/logging"
	"github.com/starford/chordbook/internal/pipeline"
	"github.com/starford/chordbook/internal/readiness"
	"github.com/starford/chordbook/internal/swapclient"
	pkgconfig "github.com/starford/chordbook/pkg/config"
)

// Overridden in tests.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// loadConfig reads the config file. When required is false a missing file
// yields the defaults.
func loadConfig(path string, required bool) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if !required {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
	}
	if err := pkgconfig.LoadWithDefaults(path, "", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// toolLogger logs to stderr in the terminal format so stdout stays clean.
func toolLogger(cfg *internal.Config) *slog.Logger {
	logger, err := logging.New(stderr, logging.FormatText, cfg.App.LogLevel)
	if err != nil {
		return slog.Default()
	}
	return logger
}

// readInput reads the file named by the first argument, or stdin for "-"
// or no argument.
func readInput(cmd *cli.Command) (string, error) {
	name := cmd.Args().First()
	if name == "" || name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

func classifyAction(_ context.Context, cmd *cli.Command) error {
	text, err := readInput(cmd)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, chordsheet.Classify(text))
	return err
}

func convertAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), false)
	if err != nil {
		return err
	}
	text, err := readInput(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("remote") {
		out, err := convertRemote(ctx, cfg, text)
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, out)
		return err
	}

	if !chordsheet.IsTablature(text) {
		toolLogger(cfg).Warn(lifecycle.MsgNotApplicable)
		_, err = io.WriteString(stdout, text)
		return err
	}
	_, err = io.WriteString(stdout, pipeline.New(toolLogger(cfg)).ConvertToAnnotated(text))
	return err
}

// convertRemote posts text the way a convert button does and pulls the
// converted value back out of the replacement field.
func convertRemote(ctx context.Context, cfg *internal.Config, text string) (string, error) {
	if !cfg.ConvertRemote() {
		return "", errors.New("convert: no convert.endpoint configured")
	}
	client, err := swapclient.New(cfg.Convert)
	if err != nil {
		return "", err
	}
	const name = "text_content_0"
	markup, err := client.Convert(ctx, url.Values{
		"content":       {text},
		"textarea_id":   {"id_" + name},
		"textarea_name": {name},
	})
	if err != nil {
		return "", err
	}

	doc, err := lifecycle.ParseString(markup)
	if err != nil {
		return "", err
	}
	n, err := doc.Query(fmt.Sprintf("textarea[name=%q]", name))
	if err != nil {
		return "", err
	}
	if n == nil {
		return "", errors.New("convert: response has no text area")
	}
	if status, _ := doc.Query(".chordpro-status"); status != nil && status.FirstChild != nil {
		toolLogger(cfg).Info(strings.TrimSpace(status.FirstChild.Data))
	}
	return doc.TextArea(n).Value(), nil
}

func renderAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), false)
	if err != nil {
		return err
	}
	n := int(cmd.Int("transpose"))
	if n < -11 || n > 11 {
		return fmt.Errorf("render: transpose %d out of range -11..11", n)
	}
	text, err := readInput(cmd)
	if err != nil {
		return err
	}

	logger := toolLogger(cfg)
	r := pipeline.New(logger).RenderToDisplay(text, pipeline.WithTranspose(n))
	logger.Debug("render", slog.String("strategy", r.Strategy), slog.Bool("fallback", r.Fallback))
	_, err = fmt.Fprintln(stdout, r.HTML)
	return err
}

func pageAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), false)
	if err != nil {
		return err
	}
	text, err := readInput(cmd)
	if err != nil {
		return err
	}
	doc, err := lifecycle.ParseString(text)
	if err != nil {
		return err
	}

	logger := toolLogger(cfg)
	pipe := pipeline.New(logger)
	opts := []lifecycle.Option{
		lifecycle.WithConfig(cfg.Render),
		lifecycle.WithLogger(logger),
		lifecycle.WithRequester(api.LocalRequester(pipe)),
	}
	if cfg.ConvertRemote() {
		client, err := swapclient.New(cfg.Convert)
		if err != nil {
			return err
		}
		opts = append(opts,
			lifecycle.WithRequester(client),
			lifecycle.WithGate(readiness.New("convert", client.ReadyCheck(), cfg.Readiness)))
	}

	report, err := lifecycle.New(pipe, opts...).Handle(ctx, lifecycle.DocumentReady, doc)
	if err != nil {
		return err
	}
	logger.Info("pass complete",
		slog.Int("containers", report.Containers),
		slog.Int("rendered", report.Rendered),
		slog.Int("fallbacks", report.Fallbacks))
	return doc.Render(stdout)
}
