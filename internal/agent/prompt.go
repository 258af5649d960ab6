package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/webwright/webwright/internal/llm"
)

// InstructionsFile is an optional file in the home directory whose text is
// appended to the system prompt.
const InstructionsFile = "INSTRUCTIONS.md"

// StaticInstructions follow the persona in every system prompt.
const StaticInstructions = `
Use the functions you are given instead of printing shell commands for the user to run.
Prefer one function call per step and read its result before deciding the next one.
Do not run destructive git or file operations without asking first.
Paths are relative to the working directory shown under RUNTIME.
In your final reply, summarise what the functions returned; never paste raw function-call syntax.
`

// Runtime describes the environment a shell session runs in.
type Runtime struct {
	Username string
	Provider string
	Model    string
	WorkDir  string
	Home     string
	Tools    []string
	Now      time.Time
}

// BuildSystemPrompt assembles persona, runtime facts, user instructions from
// Home and the static rules. A missing instructions file is not an error.
func BuildSystemPrompt(rt Runtime) (string, error) {
	var b strings.Builder
	b.WriteString(llm.DefaultSystemPrompt)

	now := rt.Now
	if now.IsZero() {
		now = time.Now()
	}
	fmt.Fprintf(&b, "\n\n== RUNTIME ==\nTime: %s\nOS: %s\nWorking directory: %s\n", now.Format(time.RFC1123), runtime.GOOS, rt.WorkDir)
	if rt.Username != "" {
		fmt.Fprintf(&b, "User: %s\n", rt.Username)
	}
	if rt.Provider != "" {
		fmt.Fprintf(&b, "Model: %s/%s\n", rt.Provider, rt.Model)
	}
	if len(rt.Tools) > 0 {
		fmt.Fprintf(&b, "Functions: %s\n", strings.Join(rt.Tools, ", "))
	}

	extra, err := LoadInstructions(rt.Home)
	if extra != "" {
		b.WriteString("\n== USER INSTRUCTIONS ==\n")
		b.WriteString(extra)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(StaticInstructions))
	return b.String(), err
}

// LoadInstructions reads InstructionsFile from home.
func LoadInstructions(home string) (string, error) {
	if home == "" {
		return "", nil
	}
	raw, err := os.ReadFile(filepath.Join(home, InstructionsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", InstructionsFile, err)
	}
	return strings.TrimSpace(string(raw)), nil
}
