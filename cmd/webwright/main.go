// Command webwright is an AI shell: it answers requests in the terminal by
// letting a model call local tools, and it runs prompt pipelines.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/webwright/webwright/internal/config"
	"github.com/webwright/webwright/internal/llm"
	"github.com/webwright/webwright/internal/registry"
	"github.com/webwright/webwright/internal/wiring"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	homeDir      string
	verbose      bool
	allowedTools string
)

// keyCheckTimeout bounds one API key probe.
const keyCheckTimeout = 20 * time.Second

var rootCmd = &cobra.Command{
	Use:   "webwright",
	Short: "An AI shell that runs tools on your behalf",
	Long: `webwright answers requests in your terminal. The model can read and write
files, inspect git, search earlier conversation and call plug-in tools.

Run without arguments to start the interactive shell.`,
	SilenceUsage: true,
	RunE:         runShell,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "state directory (default $WEBWRIGHT_HOME or ~/.webwright)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging, also written to stderr")
	rootCmd.PersistentFlags().StringVar(&allowedTools, "tools", "", "comma separated tools the model may use (default ALLOWED_TOOLS, or all)")
	rootCmd.AddCommand(shellCmd, pipelineCmd, toolsCmd, logCmd, configCmd, statusCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// openRuntime opens the shared runtime. With checkKeys, API keys are probed
// against their provider before use.
func openRuntime(cmd *cobra.Command, checkKeys bool) (*wiring.Runtime, error) {
	opts := wiring.Options{Home: homeDir, Verbose: verbose, AllowedTools: config.SplitList(allowedTools)}
	if checkKeys {
		opts.Validate = probeKey
	}
	return wiring.Open(cmd.Context(), opts)
}

func probeKey(ctx context.Context, provider, key string) error {
	ctx, cancel := context.WithTimeout(ctx, keyCheckTimeout)
	defer cancel()
	return llm.Probe(ctx, provider, registry.Options{APIKey: key})
}

func printJSON(cmd *cobra.Command, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return nil
}
