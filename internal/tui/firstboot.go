package tui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/webwright/webwright/internal/config"
)

var onboardKeys = []struct{ key, label string }{
	{config.KeyOpenAI, "OpenAI"},
	{config.KeyAnthropic, "Anthropic"},
	{config.KeyGemini, "Gemini"},
}

// Onboard asks for every provider key that has never been set. A blank
// answer stores NONE so the question is not asked again.
func Onboard(in io.Reader, out io.Writer, cfg *config.Store) error {
	scan := bufio.NewScanner(in)
	asked := false
	for _, k := range onboardKeys {
		if cfg.Get(k.key) != "" {
			continue
		}
		if !asked {
			fmt.Fprintf(out, "No model provider is configured yet. Keys are saved to %s.\n", cfg.Path())
			asked = true
		}
		fmt.Fprintf(out, "%s API key (Enter to skip): ", k.label)
		value := ""
		if scan.Scan() {
			value = strings.TrimSpace(scan.Text())
		} else if err := scan.Err(); err != nil {
			return err
		}
		if value == "" {
			value = config.None
		}
		if err := cfg.Set(k.key, value); err != nil {
			return err
		}
	}
	if asked {
		cfg.ClearCache()
	}
	return nil
}
