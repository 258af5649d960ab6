package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the store, embedder and model provider and print their health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(cmd, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		if _, err := rt.Memory(ctx); err != nil {
			return err
		}
		if sel, err := rt.Config.DetermineProvider(ctx); err != nil {
			rt.Logger.Warn("no model provider", zap.Error(err))
		} else if _, err := rt.Model(sel, ""); err != nil {
			rt.Logger.Warn("model provider unavailable", zap.Error(err))
		}

		reg, err := rt.Tools(ctx)
		if err != nil {
			return err
		}
		out, err := reg.Invoke(ctx, "system_status", nil, rt.Invocation(nil, nil))
		if err != nil {
			return err
		}
		var v any
		if err := json.Unmarshal([]byte(out), &v); err != nil {
			return err
		}
		return printJSON(cmd, v)
	},
}
