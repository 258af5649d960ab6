package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/webwright/webwright/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change settings in webwright_config",
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting, or every setting in the file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()
		keys := rt.Config.Keys()
		if len(args) == 1 {
			keys = []string{strings.ToUpper(args[0])}
		}
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", k, masked(k, rt.Config.Get(k)))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting; use NONE to disable a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()
		key := strings.ToUpper(args[0])
		if err := rt.Config.Set(key, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s updated in %s\n", key, rt.Config.Path())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd)
}

// masked hides all but the last four characters of secrets.
func masked(key, value string) string {
	secret := strings.HasSuffix(key, "_API_KEY") || key == config.KeySSHKey
	if !secret || value == "" || value == config.None || len(value) <= 4 {
		return value
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
