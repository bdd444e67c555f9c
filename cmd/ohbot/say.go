package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-ohbot/internal/log"
	"github.com/teslashibe/go-ohbot/pkg/agent"
	"github.com/teslashibe/go-ohbot/pkg/character"
	"github.com/teslashibe/go-ohbot/pkg/display"
)

var sayCmd = &cobra.Command{
	Use:   "say <text>",
	Short: "Act out one utterance: gesture, talking lips and display text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  sayText,
}

func init() {
	rootCmd.AddCommand(sayCmd)

	sayCmd.Flags().Duration("duration", 2*time.Second, "How long the head keeps talking")
	sayCmd.Flags().Bool("idle", false, "Keep the idle behaviour running while talking")
}

func sayText(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	closeLog, err := startLogging(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()
	text := strings.Join(args, " ")
	d, _ := cmd.Flags().GetDuration("duration")
	cfg.Idle.Enabled, _ = cmd.Flags().GetBool("idle")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	local := agent.NewLocal()
	queue := display.NewQueue(cfg.Display.QueueSize)
	app, err := newApp(cfg, character.Options{Agent: local, Display: queue})
	if err != nil {
		return err
	}
	if err := app.Init(); err != nil {
		app.Stop()
		return err
	}

	out := cmd.OutOrStdout()
	sink := display.Multi{
		display.LogSink{Logger: log.Component("display")},
		display.SinkFunc(func(s string) error {
			if s != "" {
				fmt.Fprintf(out, "> %s\n", s)
			}
			return nil
		}),
	}
	if err := app.AddTask("display", display.NewPoller(queue, sink, cfg.Display.PollInterval, nil).Run); err != nil {
		return err
	}
	if err := app.AddTask("say", func(ctx context.Context) error {
		defer cancel()
		return local.Say(ctx, text, d)
	}); err != nil {
		return err
	}

	if err := app.Run(ctx); err != nil {
		return err
	}
	if g := app.Bridge().LastGesture(); g != "" {
		fmt.Fprintf(out, "gesture: %s\n", g)
	}
	return nil
}
