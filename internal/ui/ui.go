package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/shipmate-cli/shipmate/internal/logging"
)

// Console handles all interaction with the person driving a session. It wraps
// plain reader/writer pairs so tests can script a conversation.
type Console struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewConsole returns a Console reading user turns from in and writing prompts
// and results to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{scanner: bufio.NewScanner(in), out: out}
}

// PromptForRequirements opens a session by asking what the user wants to
// deploy and returning their first utterance.
func (c *Console) PromptForRequirements() (string, error) {
	return c.ask("What are you looking to deploy today?")
}

// GetUserResponse asks a follow-up question and returns the reply.
func (c *Console) GetUserResponse(question string) (string, error) {
	return c.ask(question)
}

func (c *Console) ask(question string) (string, error) {
	fmt.Fprintf(c.out, "%s\n> ", question)
	logging.Info("question to user: %s", question)
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read user input: %w", err)
		}
		return "", io.EOF
	}
	response := strings.TrimSpace(c.scanner.Text())
	logging.Info("user response: %s", response)
	return response, nil
}

// LogToUser writes a line of output for the user to see.
func (c *Console) LogToUser(message string) {
	fmt.Fprintln(c.out, message)
	logging.Info("message to user: %s", message)
}

// DisplayConfig renders a titled "name: value" listing, one field per line,
// following the given field order. Fields absent from the map are skipped.
func (c *Console) DisplayConfig(title string, order []string, fields map[string]any) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", title)
	for _, name := range order {
		val, ok := fields[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  %s: %v\n", name, val)
	}
	fmt.Fprint(c.out, b.String())
	logging.Info("displayed to user:\n%s", b.String())
}
