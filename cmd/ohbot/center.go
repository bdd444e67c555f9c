package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-ohbot/pkg/character"
)

var centerCmd = &cobra.Command{
	Use:   "center",
	Short: "Move every channel to the rest pose",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		closeLog, err := startLogging(cfg, false)
		if err != nil {
			return err
		}
		defer closeLog()
		app, err := newApp(cfg, character.Options{})
		if err != nil {
			return err
		}
		defer app.Stop()

		if err := app.Init(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "centred %s\n", backendName(cfg))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(centerCmd)
}
