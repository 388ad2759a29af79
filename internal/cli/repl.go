package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/peterh/liner"

	"github.com/jwgpt/jwgpt/internal/chat"
	"github.com/jwgpt/jwgpt/internal/model"
	"github.com/jwgpt/jwgpt/internal/render"
	"github.com/jwgpt/jwgpt/internal/searchlink"
)

const prompt = "jwgpt> "

const helpText = `Commands:
  /regen          regenerate the last reply
  /edit <text>    replace your last message and refresh the reply
  /clear          start over with an empty chat
  /links          list the search links in the last reply
  /copy           copy the last reply to the clipboard
  /model <name>   switch between gemini-pro and gemini-flash
  /help           show this help
  /quit           exit
`

// LineReader reads interactive input. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// REPLOption configures a REPL.
type REPLOption func(*REPL)

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) REPLOption {
	return func(r *REPL) { r.copy = write }
}

// REPL drives one conversation store from a terminal.
type REPL struct {
	store   *chat.Store
	in      LineReader
	out     io.Writer
	term    *render.Terminal
	variant model.ModelVariant
	copy    func(string) error
}

// NewREPL creates a REPL. term may be nil for unstyled output.
func NewREPL(store *chat.Store, in LineReader, out io.Writer, term *render.Terminal, variant model.ModelVariant, opts ...REPLOption) *REPL {
	r := &REPL{
		store:   store,
		in:      in,
		out:     out,
		term:    term,
		variant: variant,
		copy:    clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run greets the user and reads commands until /quit, end of input, Ctrl+C
// at the prompt, or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	if r.store.Initialize() {
		if msg, ok := r.last(model.RoleAssistant); ok {
			r.print(msg.Content)
		}
	}
	fmt.Fprintln(r.out, "Type /help for commands.")

	for {
		line, err := r.in.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.in.AppendHistory(line)

		quit, err := r.Execute(ctx, line)
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

// Execute runs one line of input. It reports whether the REPL should exit.
func (r *REPL) Execute(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		reply, err := r.store.SendMessage(ctx, line, r.variant)
		if err != nil {
			return false, r.failure(err, chat.ErrTextGenerate)
		}
		r.print(reply.Content)
		return false, nil
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Fprint(r.out, helpText)

	case "/regen":
		target, ok := r.last(model.RoleAssistant)
		if !ok {
			return false, errors.New("nothing to regenerate")
		}
		reply, err := r.store.RegenerateMessage(ctx, target.ID)
		if err != nil {
			return false, r.failure(err, chat.ErrTextRegenerate)
		}
		r.print(reply.Content)

	case "/edit":
		if arg == "" {
			return false, errors.New("usage: /edit <text>")
		}
		target, ok := r.last(model.RoleUser)
		if !ok {
			return false, errors.New("no message to edit")
		}
		if _, err := r.store.EditMessage(ctx, target.ID, arg); err != nil {
			return false, err
		}
		if reply, ok := r.after(target.ID); ok {
			r.print(reply.Content)
		}

	case "/clear":
		r.store.ClearChat()
		fmt.Fprintln(r.out, "Chat cleared.")

	case "/links":
		reply, ok := r.last(model.RoleAssistant)
		links := []model.SearchLink{}
		if ok {
			links = searchlink.ExtractSearchLinks(reply.Content)
		}
		if len(links) == 0 {
			fmt.Fprintln(r.out, "No search links in the last reply.")
			break
		}
		for i, l := range links {
			fmt.Fprintf(r.out, "%d. %s (%s)\n   %s\n", i+1, l.Keyword, l.Category, l.URL)
		}

	case "/copy":
		reply, ok := r.last(model.RoleAssistant)
		if !ok {
			return false, errors.New("nothing to copy")
		}
		if err := r.copy(reply.Content); err != nil {
			return false, fmt.Errorf("copy to clipboard: %w", err)
		}
		fmt.Fprintln(r.out, "Copied!")

	case "/model":
		variant, err := model.ParseModelVariant(arg)
		if err != nil || arg == "" {
			return false, fmt.Errorf("usage: /model %s|%s", model.ModelGeminiPro, model.ModelGeminiFlash)
		}
		r.variant = variant
		fmt.Fprintf(r.out, "Using %s.\n", variant)

	default:
		return false, fmt.Errorf("unknown command %s, try /help", cmd)
	}

	return false, nil
}

// failure keeps store sentinels and replaces provider errors with the
// user-facing text.
func (r *REPL) failure(err error, text string) error {
	for _, sentinel := range []error{
		chat.ErrEmptyContent,
		chat.ErrMessageNotFound,
		chat.ErrNotAssistantMessage,
		chat.ErrNoPrecedingUserMessage,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return errors.New(text)
}

func (r *REPL) last(role model.Role) (model.Message, bool) {
	msgs := r.store.Snapshot().Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == role {
			return msgs[i], true
		}
	}
	return model.Message{}, false
}

func (r *REPL) after(messageID string) (model.Message, bool) {
	msgs := r.store.Snapshot().Messages
	for i := 0; i+1 < len(msgs); i++ {
		if msgs[i].ID == messageID {
			return msgs[i+1], true
		}
	}
	return model.Message{}, false
}

func (r *REPL) print(content string) {
	fmt.Fprintln(r.out, r.term.Render(content))
}
