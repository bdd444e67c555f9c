package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-ohbot/pkg/character"
	"github.com/teslashibe/go-ohbot/pkg/gesture"
)

var gestureCmd = &cobra.Command{
	Use:   "gesture <name>",
	Short: "Play one gesture and return to rest",
	Args:  cobra.ExactArgs(1),
	RunE:  playGesture,
}

var gesturesCmd = &cobra.Command{
	Use:   "gestures",
	Short: "List gestures in classification order",
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
		reg := gesture.Default()
		if cfg.Gestures.File != "" {
			if reg, err = gesture.LoadFile(cfg.Gestures.File); err != nil {
				return err
			}
		}
		for _, name := range reg.List() {
			g, _ := reg.Get(name)
			fmt.Fprintf(cmd.OutOrStdout(), "%d  %-14s %s\n", g.Priority, g.Name, strings.Join(g.Keywords, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gestureCmd)
	rootCmd.AddCommand(gesturesCmd)
}

func playGesture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	closeLog, err := startLogging(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()
	cfg.Idle.Enabled = false

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := newApp(cfg, character.Options{})
	if err != nil {
		return err
	}
	defer app.Stop()

	if err := app.Init(); err != nil {
		return err
	}
	if err := app.Dispatcher().Play(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "played %s on %s\n", args[0], backendName(cfg))
	return nil
}
