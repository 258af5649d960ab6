// Package tui is the terminal front end: a line REPL with styled prompts
// and markdown-rendered replies, plus first-run key onboarding.
package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Styles used by the REPL.
type Styles struct {
	Prompt lipgloss.Style
	Reply  lipgloss.Style
	Error  lipgloss.Style
	Info   lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Prompt: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A")),
		Reply:  lipgloss.NewStyle(),
		Error:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e53935")),
		Info:   lipgloss.NewStyle().Faint(true),
	}
}

// Submit handles one line and returns the reply to print.
type Submit func(ctx context.Context, line string) (string, error)

// Chat is a line-oriented REPL.
type Chat struct {
	In       io.Reader
	Out      io.Writer
	Username string
	Styles   Styles
	// Render turns a markdown reply into terminal output. Nil prints the
	// reply as is.
	Render func(string) string
}

// NewChat returns a REPL on stdin/stdout with glamour rendering.
func NewChat(username string) *Chat {
	c := &Chat{In: os.Stdin, Out: os.Stdout, Username: username, Styles: DefaultStyles()}
	if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100)); err == nil {
		c.Render = func(md string) string {
			out, err := r.Render(md)
			if err != nil {
				return md
			}
			return strings.TrimRight(out, "\n")
		}
	}
	return c
}

// Run reads lines until EOF, "exit" or "quit", or until ctx is done. An
// interrupt while a line is being handled cancels that line only.
func (c *Chat) Run(ctx context.Context, onSubmit Submit) error {
	scan := bufio.NewScanner(c.In)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	fmt.Fprintln(c.Out, c.Styles.Info.Render("webwright: type a request, \"exit\" to leave, Ctrl+C to stop a running turn"))

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(c.Out, c.Styles.Prompt.Render(c.Username+"> "))
		if !scan.Scan() {
			fmt.Fprintln(c.Out)
			return scan.Err()
		}
		line := strings.TrimSpace(scan.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		reply, err := onSubmit(turnCtx, line)
		interrupted := turnCtx.Err() != nil && ctx.Err() == nil
		stop()

		switch {
		case interrupted:
			fmt.Fprintln(c.Out, c.Styles.Info.Render("(turn cancelled)"))
		case err != nil:
			fmt.Fprintln(c.Out, c.Styles.Error.Render("error: "+err.Error()))
		default:
			c.printReply(reply)
		}
		fmt.Fprintln(c.Out)
	}
}

func (c *Chat) printReply(reply string) {
	if c.Render != nil {
		reply = c.Render(reply)
	}
	fmt.Fprintln(c.Out, c.Styles.Reply.Render(reply))
}
