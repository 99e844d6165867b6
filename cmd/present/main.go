// Package main provides the terminal presenter and follower.
//
// Usage:
//
//	present --server http://localhost:8080 [--locale en] [--follow | --present]
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/dgallion1/stepdeck/internal/content"
	"github.com/dgallion1/stepdeck/internal/nav"
	"github.com/dgallion1/stepdeck/internal/present"
	"github.com/dgallion1/stepdeck/internal/session"
	"github.com/dgallion1/stepdeck/internal/slidecache"
)

func main() {
	app := &cli.App{
		Name:  "present",
		Usage: "Show a stepdeck presentation in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "deck server base URL",
				Value:   "http://localhost:8080",
				EnvVars: []string{"STEPDECK_SERVER"},
			},
			&cli.StringFlag{
				Name:  "locale",
				Usage: "deck locale, empty for an unlocalised deck",
			},
			&cli.StringFlag{
				Name:  "sync-path",
				Usage: "path of the sync endpoint on the server",
				Value: "/sync",
			},
			&cli.IntFlag{
				Name:  "cache",
				Usage: "number of slides kept in memory",
				Value: slidecache.DefaultCapacity,
			},
			&cli.IntFlag{
				Name:  "step-cache",
				Usage: "number of slide step counts remembered",
				Value: nav.DefaultStepCacheSize,
			},
			&cli.IntFlag{
				Name:  "prefetch-behind",
				Usage: "slides fetched before the current one",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "prefetch-ahead",
				Usage: "slides fetched after the current one",
				Value: 2,
			},
			&cli.IntFlag{
				Name:  "reconnect",
				Usage: "dial attempts before sync is given up",
				Value: session.DefaultReconnectAttempts,
			},
			&cli.BoolFlag{
				Name:  "follow",
				Usage: "follow the presenter on start",
			},
			&cli.BoolFlag{
				Name:  "present",
				Usage: "publish this session's position on start",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "write debug logs to this file",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Bool("follow") && c.Bool("present") {
		return cli.Exit("--follow and --present are mutually exclusive", 2)
	}

	log, closeLog, err := newLogger(c.String("log-file"))
	if err != nil {
		return err
	}
	defer closeLog()

	syncURL, err := session.SyncURL(c.String("server"), c.String("sync-path"))
	if err != nil {
		return err
	}

	fetcher := content.NewClient(c.String("server"), c.String("locale"))
	defer fetcher.Close()

	n := nav.New(c.Int("step-cache"))
	cache := present.NewCache(n, c.Int("cache"), c.Int("prefetch-behind"), c.Int("prefetch-ahead"))
	sess := session.New(log, syncURL, n, session.WithReconnectAttempts(c.Int("reconnect")))

	switch {
	case c.Bool("present"):
		sess.SetPresenting(true)
	case c.Bool("follow"):
		sess.ToggleFollow()
	}

	m := present.New(log, n, cache, sess, fetcher)
	defer m.Close()

	log.Info("starting presentation", "server", c.String("server"), "locale", c.String("locale"), "sync", syncURL)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running presentation: %w", err)
	}
	return nil
}

// newLogger logs to path, or nowhere when path is empty, so log lines never
// corrupt the terminal UI.
func newLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return log, func() { f.Close() }, nil
}
