package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Lin-Jiong-HDU/jarvis/internal/conversation"
)

// ErrUserExit means the user asked to leave the REPL.
var ErrUserExit = errors.New("user requested exit")

// Answer is what the assistant says back to one line of input.
type Answer struct {
	Text string
	// Markdown answers come from the chat model and are rendered.
	Markdown bool
}

// ProcessFunc handles one line of input within a session.
type ProcessFunc func(ctx context.Context, s *conversation.Session, input string) (Answer, error)

// REPLOptions wires the REPL's collaborators. Manager, Markdown and
// Personas are optional.
type REPLOptions struct {
	Process  ProcessFunc
	Session  *conversation.Session
	Manager  *conversation.Manager
	Markdown *Markdown
	Personas *conversation.PersonaLoader
	Lines    *LineReader
	Out      io.Writer
}

// REPL is the typed chat loop.
type REPL struct {
	opts REPLOptions
}

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewREPL creates a REPL.
func NewREPL(opts REPLOptions) *REPL {
	if opts.Session == nil {
		opts.Session = conversation.NewSession("")
	}
	return &REPL{opts: opts}
}

// Session returns the current session.
func (r *REPL) Session() *conversation.Session {
	return r.opts.Session
}

// Run reads lines until /exit, /abort, end of input or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.opts.Out, mutedStyle.Render("Type /help for commands."))

	for {
		fmt.Fprint(r.opts.Out, promptStyle.Render("you › "))

		line, err := r.opts.Lines.ReadLine(ctx)
		if err != nil {
			fmt.Fprintln(r.opts.Out)
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				r.DisplayExitSummary()
				return nil
			}
			return err
		}

		if err := r.ProcessInput(ctx, line); err != nil {
			if errors.Is(err, ErrUserExit) {
				return nil
			}
			return err
		}
	}
}

// ProcessInput handles one line: a slash command or an utterance.
func (r *REPL) ProcessInput(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	if strings.HasPrefix(input, "/") {
		shouldExit, err := r.HandleCommand(input)
		if err != nil {
			return err
		}
		if shouldExit {
			return ErrUserExit
		}
		return nil
	}

	answer, err := r.opts.Process(ctx, r.opts.Session, input)
	if answer.Text != "" {
		r.print(answer)
	}
	if err != nil && answer.Text == "" {
		fmt.Fprintln(r.opts.Out, refuseStyle.Render("✗ "+err.Error()))
	}
	return nil
}

func (r *REPL) print(a Answer) {
	text := a.Text
	if a.Markdown && r.opts.Markdown != nil {
		text = strings.TrimLeft(r.opts.Markdown.Render(text), " ")
	}
	fmt.Fprintln(r.opts.Out, "🤖 "+text)
}

// HandleCommand runs a slash command and reports whether the REPL should
// stop.
func (r *REPL) HandleCommand(cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/exit", "/quit":
		r.save()
		r.DisplayExitSummary()
		return true, nil

	case "/abort":
		if r.opts.Manager != nil {
			if err := r.opts.Manager.Discard(r.opts.Session); err != nil {
				return false, fmt.Errorf("discard conversation: %w", err)
			}
		}
		fmt.Fprintln(r.opts.Out, mutedStyle.Render("Conversation discarded."))
		return true, nil

	case "/new":
		r.save()
		r.opts.Session.Reset()
		fmt.Fprintln(r.opts.Out, okStyle.Render("✓ Started a new conversation"))
		return false, nil

	case "/help":
		r.DisplayHelp()
		return false, nil

	case "/clear":
		fmt.Fprint(r.opts.Out, "\033[H\033[2J")
		return false, nil

	case "/persona":
		if len(parts) < 2 {
			r.DisplayPersonas()
			return false, nil
		}
		if r.opts.Personas == nil {
			fmt.Fprintln(r.opts.Out, "Personas are not configured.")
			return false, nil
		}
		if _, err := r.opts.Personas.Load(parts[1]); err != nil {
			fmt.Fprintf(r.opts.Out, "Can't switch persona: %v\n", err)
			return false, nil
		}
		r.opts.Session.Persona = r.opts.Personas.Resolve(parts[1])
		fmt.Fprintf(r.opts.Out, "%s\n", okStyle.Render("✓ Persona: "+parts[1]))
		return false, nil

	default:
		fmt.Fprintf(r.opts.Out, "Unknown command: %s\n", parts[0])
		return false, nil
	}
}

func (r *REPL) save() {
	if r.opts.Manager == nil {
		return
	}
	if err := r.opts.Manager.Save(r.opts.Session); err != nil {
		fmt.Fprintf(r.opts.Out, "Couldn't save conversation: %v\n", err)
	}
}

// DisplayHelp prints the command list.
func (r *REPL) DisplayHelp() {
	fmt.Fprintln(r.opts.Out, `
Commands:
  /help              show this help
  /new               start a new conversation
  /persona [name]    list personas or switch to one
  /clear             clear the screen
  /abort             leave and delete this conversation
  /exit, /quit       save and leave

Anything else is handled as a command ("run notepad") or chat.`)
}

// DisplayPersonas lists the available personas.
func (r *REPL) DisplayPersonas() {
	if r.opts.Personas == nil {
		fmt.Fprintln(r.opts.Out, "Personas are not configured.")
		return
	}

	personas, err := r.opts.Personas.List()
	if err != nil {
		fmt.Fprintf(r.opts.Out, "Can't list personas: %v\n", err)
		return
	}
	if len(personas) == 0 {
		fmt.Fprintln(r.opts.Out, "No personas found.")
		return
	}

	fmt.Fprintln(r.opts.Out, "\nPersonas:")
	for _, p := range personas {
		if p.Title != "" {
			fmt.Fprintf(r.opts.Out, "  • %s - %s\n", p.Name, p.Title)
		} else {
			fmt.Fprintf(r.opts.Out, "  • %s\n", p.Name)
		}
		if p.Description != "" {
			fmt.Fprintf(r.opts.Out, "    %s\n", p.Description)
		}
	}
	fmt.Fprintln(r.opts.Out)
}

// DisplayExitSummary tells the user how to resume.
func (r *REPL) DisplayExitSummary() {
	s := r.opts.Session
	if r.opts.Manager == nil || len(s.Messages) == 0 {
		fmt.Fprintln(r.opts.Out, "Goodbye.")
		return
	}
	fmt.Fprintln(r.opts.Out, "📝 Conversation saved")
	fmt.Fprintf(r.opts.Out, "   ID: %s\n", s.ID)
	fmt.Fprintf(r.opts.Out, "   Messages: %d\n", len(s.Messages))
	fmt.Fprintf(r.opts.Out, "   Resume: jarvis chat --continue %s\n", s.ID)
}
