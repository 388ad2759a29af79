// Package cli implements the jwgpt terminal client.
package cli

import (
	"io"

	"github.com/alecthomas/kong"
)

// Options are the command line flags.
type Options struct {
	Model    string `short:"m" help:"Model variant to chat with (gemini-pro or gemini-flash)." enum:"gemini-pro,gemini-flash" default:"gemini-pro"`
	Provider string `help:"Model provider, gemini or anthropic. Overrides LLM_PROVIDER."`
	NoColor  bool   `name:"no-color" help:"Print replies without styling."`
	Config   string `type:"path" env:"CONFIG_FILE" help:"TOML configuration file."`
}

// Parse parses args into Options. It takes explicit writers and an exit
// function instead of using kong.Parse so it can be driven from tests.
func Parse(args []string, stdout, stderr io.Writer, exit func(int)) (*Options, error) {
	var opts Options

	parser, err := kong.New(&opts,
		kong.Name("jwgpt"),
		kong.Description("Chat with JW GPT from the terminal."),
		kong.Exit(exit),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return nil, err
	}

	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}
	return &opts, nil
}
