package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/samcharles93/cinder/internal/inference"
	"github.com/samcharles93/cinder/internal/logger"
	"github.com/urfave/cli/v3"
)

const (
	// defaultPrompt is used for a one-shot run when no prompt is given.
	defaultPrompt = "Say you are a smart model in the computer shell"
	inputPrompt   = "> "
)

func runCmd() *cli.Command {
	var prompt string

	return &cli.Command{
		Name:      "run",
		Usage:     "Generate from a prompt, or start an interactive or chat session",
		ArgsUsage: "[prompt]",
		Flags: append(append(commonModelFlags(), generationFlags()...),
			&cli.StringFlag{
				Name:        "prompt",
				Aliases:     []string{"p"},
				Usage:       "prompt text; 'interactive' or 'chat' read turns from stdin",
				Destination: &prompt,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)
			set := applyConfig(c, fileConfig)

			if prompt == "" && c.Args().Present() {
				prompt = strings.Join(c.Args().Slice(), " ")
			}
			mode, text := resolveMode(prompt)

			st, err := loadStack(log, set)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			model, err := st.newModel()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: build model: %v", err), 1)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			out := bufio.NewWriter(os.Stdout)
			defer func() { _ = out.Flush() }()

			opts := inference.SessionOptions{
				Mode:   mode,
				Prompt: text,
				Sink:   &inference.WriterSink{Out: out, Diag: os.Stderr, EchoPrompt: echoPrompt},
				Logger: log,
			}
			if mode != inference.ModeOneShot {
				input := newTerminalInput(os.Stdin, os.Stdout, inputPrompt)
				defer input.Close()
				opts.Input = input
			}

			sess, err := inference.NewSession(st.genCfg, model, st.tok, opts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer sess.Close()

			if err := runSession(ctx, sess, out, os.Stderr); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return nil
		},
	}
}

// resolveMode maps the prompt argument to a session mode. The words
// "interactive" and "chat" select those modes; any other text is a one-shot
// prompt.
func resolveMode(prompt string) (inference.Mode, string) {
	switch strings.ToLower(strings.TrimSpace(prompt)) {
	case "interactive":
		return inference.ModeInteractive, ""
	case "chat":
		return inference.ModeChat, ""
	case "":
		return inference.ModeOneShot, defaultPrompt
	default:
		return inference.ModeOneShot, prompt
	}
}

// runSession drives turns until the session closes. The end of input and an
// interrupt finish cleanly; a rejected input only loses its turn.
func runSession(ctx context.Context, sess *inference.Session, out *bufio.Writer, diag io.Writer) error {
	for !sess.Closed() {
		res, err := sess.RunTurn(ctx)
		if res != nil {
			_, _ = fmt.Fprintln(out)
			_ = out.Flush()
		}
		switch {
		case err == nil:
			_, _ = fmt.Fprintln(diag, res.Stats.Report())
		case errors.Is(err, io.EOF), errors.Is(err, context.Canceled), errors.Is(err, inference.ErrSessionClosed):
			return nil
		case errors.Is(err, inference.ErrEncoding), errors.Is(err, inference.ErrEmptyContext):
			if sess.Closed() {
				return err
			}
			_, _ = fmt.Fprintf(diag, "skipped: %v\n", err)
		default:
			return err
		}
	}
	return nil
}
