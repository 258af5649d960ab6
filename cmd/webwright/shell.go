package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/agent"
	"github.com/webwright/webwright/internal/config"
	"github.com/webwright/webwright/internal/tools"
	"github.com/webwright/webwright/internal/tui"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive shell",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt, err := openRuntime(cmd, true)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.Logger

	sel, err := rt.Config.DetermineProvider(ctx)
	if errors.Is(err, config.ErrNoProvider) {
		if err := tui.Onboard(os.Stdin, cmd.OutOrStdout(), rt.Config); err != nil {
			return err
		}
		sel, err = rt.Config.DetermineProvider(ctx)
	}
	if err != nil {
		logger.Error("no model provider", zap.Error(err))
		return err
	}

	watcher, err := rt.Config.Watch(nil)
	if err != nil {
		logger.Warn("settings watcher not started", zap.Error(err))
	} else {
		defer watcher.Close()
	}

	username, err := rt.Config.Username()
	if err != nil {
		return err
	}
	reg, err := rt.Tools(ctx)
	if err != nil {
		return err
	}
	log, err := rt.Memory(ctx)
	if err != nil {
		return err
	}

	system, err := agent.BuildSystemPrompt(agent.Runtime{
		Username: username,
		Provider: sel.Provider,
		Model:    sel.Model,
		WorkDir:  rt.WorkDir,
		Home:     rt.Home,
		Tools:    reg.Names(),
	})
	if err != nil {
		return err
	}
	adapter, err := rt.Model(sel, system)
	if err != nil {
		return err
	}

	loop := &agent.Loop{
		Log:            log,
		Decider:        adapter,
		Tools:          reg,
		Invocation:     rt.Invocation(log, adapter),
		Logger:         logger.Named("agent"),
		MaxOutputRunes: rt.Config.MaxOutputRunes(tools.DefaultMaxOutputRunes),
	}
	logger.Info("shell started",
		zap.String("provider", sel.Provider), zap.Int("tools", reg.Len()), zap.String("workdir", rt.WorkDir))

	return tui.NewChat(username).Run(ctx, loop.RunTurn)
}

