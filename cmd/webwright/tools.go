package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/webwright/webwright/internal/tools"
	"github.com/webwright/webwright/internal/tools/scaffold"
	"github.com/webwright/webwright/internal/wiring"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List, register and create tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tool the model can call",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()
		reg, err := rt.Tools(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPARAMS\tSOURCE")
		for _, d := range reg.All() {
			fmt.Fprintf(w, "%s\t%d\t%s\n", d.Name, len(d.Params), d.Source)
		}
		return w.Flush()
	},
}

var toolsRegisterCmd = &cobra.Command{
	Use:   "register <dir>",
	Short: "Register the plug-in in dir; its tool.yaml is linked into the tools home",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		src, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		m, err := tools.ReadManifest(filepath.Join(src, tools.ManifestName))
		if err != nil {
			return err
		}
		m.Dir = src
		path, err := tools.WriteManifest(filepath.Join(rt.Home, wiring.ToolsDir), m)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registered %s: %s\n", m.Name, path)
		return nil
	},
}

var toolDescription string

var toolsNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Scaffold a Go plug-in tool in the tools home",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()
		desc := toolDescription
		if desc == "" {
			desc = "Describe what " + args[0] + " does."
		}
		manifest, err := scaffold.New(filepath.Join(rt.Home, wiring.ToolsDir), args[0], desc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", manifest)
		return nil
	},
}

func init() {
	toolsNewCmd.Flags().StringVarP(&toolDescription, "description", "d", "", "tool description shown to the model")
	toolsCmd.AddCommand(toolsListCmd, toolsRegisterCmd, toolsNewCmd)
}
