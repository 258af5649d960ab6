package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/config"
	"github.com/webwright/webwright/internal/pipeline"
	"github.com/webwright/webwright/internal/registry"
)

var (
	pipelineFinal       string
	pipelineParallelism int
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run prompt pipelines",
}

var pipelineRunCmd = &cobra.Command{
	Use:   "run <file.yaml>",
	Short: "Evaluate a pipeline file and print every node result as JSON",
	Long: `Evaluates the DAG that ends in the final node (the file's "final" key, the
--final flag, or the last node). Node templates reference other nodes with
{name} or {name.path}; JSON nodes are validated against their schema.

The provider is PIPELINE_API, or the shell's provider when unset.`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func init() {
	pipelineRunCmd.Flags().StringVar(&pipelineFinal, "final", "", "node to evaluate (default from the file)")
	pipelineRunCmd.Flags().IntVar(&pipelineParallelism, "parallel", pipeline.DefaultParallelism, "nodes evaluated at once")
	pipelineCmd.AddCommand(pipelineRunCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := openRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.Logger.Named("pipeline")

	file, err := pipeline.LoadFile(args[0])
	if err != nil {
		return err
	}
	final := file.Final
	if pipelineFinal != "" {
		final = pipelineFinal
	}

	provider := rt.Config.Value(config.KeyPipelineAPI)
	if provider == "" {
		sel, err := rt.Config.DetermineProvider(ctx)
		if err != nil {
			return err
		}
		provider = sel.Provider
	}
	key, err := rt.Config.APIKey(ctx, provider)
	if err != nil {
		return err
	}
	opts := registry.Options{APIKey: key, Logger: logger}
	if provider == "ollama" {
		opts.BaseURL = rt.Config.Value(config.KeyOllamaHost)
	}
	backend, err := pipeline.Connect(provider, opts, pipelineParallelism)
	if err != nil {
		return fmt.Errorf("pipeline backend: %w", err)
	}

	engine := pipeline.NewEngine(backend, pipeline.ModelsFor(provider), logger)
	if err := file.Declare(engine); err != nil {
		return err
	}
	results, err := engine.Run(ctx, final)
	if err != nil {
		return err
	}
	failed := 0
	for name, r := range results {
		if r.Type == pipeline.ResultError {
			failed++
			logger.Warn("node failed", zap.String("node", name), zap.Any("error", r.Content))
		}
	}
	if err := printJSON(cmd, results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d nodes failed", failed, len(results))
	}
	return nil
}
