package main

import (
	"context"
	"fmt"
	"os"

	"github.com/samcharles93/cinder/internal/logger"
	"github.com/samcharles93/cinder/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	var closeLog func()

	app := &cli.Command{
		Name:    "cinder",
		Usage:   "Autoregressive text generation in one-shot, interactive and chat sessions",
		Version: version.String(),
		Flags:   loggingFlags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			fileConfig = cfg
			applyLoggingConfig(cmd, cfg)

			log, done, err := logger.Setup(loggerConfig(), os.Stderr)
			if err != nil {
				return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			closeLog = done
			return logger.WithContext(ctx, log), nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			if closeLog != nil {
				closeLog()
			}
			return nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			runCmd(),
			serveCmd(),
			variantsCmd(),
			inspectCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loggerConfig() logger.Config {
	level := logLevel
	if debug {
		level = "debug"
	}
	return logger.Config{
		Level:  level,
		Format: logFormat,
		File:   logFile,
	}
}
