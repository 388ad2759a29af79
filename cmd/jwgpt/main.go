// Package main is the entry point for the terminal client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jwgpt/jwgpt/internal/chat"
	"github.com/jwgpt/jwgpt/internal/cli"
	"github.com/jwgpt/jwgpt/internal/config"
	"github.com/jwgpt/jwgpt/internal/llm"
	"github.com/jwgpt/jwgpt/internal/model"
	"github.com/jwgpt/jwgpt/internal/render"
	"github.com/jwgpt/jwgpt/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "jwgpt: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts, err := cli.Parse(os.Args[1:], os.Stdout, os.Stderr, os.Exit)
	if err != nil {
		return err
	}

	if opts.Config != "" {
		os.Setenv("CONFIG_FILE", opts.Config)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.Provider != "" {
		cfg.LLMProvider = opts.Provider
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Logs go to stderr at warn level so they do not interleave with replies.
	log, err := logger.NewWithOutput("warn", "stderr")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	gen, err := llm.NewGeneratorFromConfig(cfg, log)
	if err != nil {
		return err
	}

	style := ""
	if opts.NoColor {
		style = "notty"
	}
	term, err := render.NewTerminal(80, style)
	if err != nil {
		return err
	}

	variant, err := model.ParseModelVariant(opts.Model)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	store := chat.NewStore(gen, chat.WithLogger(log))
	return cli.NewREPL(store, line, os.Stdout, term, variant).Run(ctx)
}
