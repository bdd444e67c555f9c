package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-ohbot/internal/config"
	"github.com/teslashibe/go-ohbot/internal/log"
	"github.com/teslashibe/go-ohbot/pkg/agent"
	"github.com/teslashibe/go-ohbot/pkg/character"
	"github.com/teslashibe/go-ohbot/pkg/display"
	"github.com/teslashibe/go-ohbot/pkg/metrics"
	"github.com/teslashibe/go-ohbot/pkg/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full character until interrupted",
	Long:  `Starts idle motion, connects the dialogue agent and renders display text until SIGINT or SIGTERM.`,
	Args:  cobra.NoArgs,
	RunE:  runCharacter,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("web", false, "Serve the dashboard (overrides web.enabled)")
	runCmd.Flags().String("addr", "", "Dashboard listen address (overrides web.addr)")
	runCmd.Flags().String("renderer", "", "Display renderer: terminal, log or none")
	runCmd.Flags().String("agent-url", "", "Follow a websocket dialogue engine at this URL")
}

func runCharacter(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("web") {
		cfg.Web.Enabled, _ = cmd.Flags().GetBool("web")
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Web.Addr = addr
	}
	if r, _ := cmd.Flags().GetString("renderer"); r != "" {
		cfg.Display.Renderer = r
	}
	if url, _ := cmd.Flags().GetString("agent-url"); url != "" {
		cfg.Agent.Kind, cfg.Agent.URL = config.AgentWebSocket, url
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	closeLog, err := startLogging(cfg, cfg.Display.Renderer == config.RendererTerminal)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		ag    agent.Agent
		local *agent.Local
	)
	switch cfg.Agent.Kind {
	case config.AgentWebSocket:
		ag = agent.NewWebSocket(agent.WebSocketConfig{
			URL:              cfg.Agent.URL,
			HandshakeTimeout: cfg.Agent.HandshakeTimeout,
		}, log.Component("agent"))
	default:
		local = agent.NewLocal()
		ag = local
	}

	m := metrics.New()
	queue := display.NewQueue(cfg.Display.QueueSize)
	app, err := newApp(cfg, character.Options{Agent: ag, Display: queue, Metrics: m})
	if err != nil {
		return err
	}

	log.Info("initialising head", "backend", backendName(cfg))
	if err := app.Init(); err != nil {
		app.Stop()
		return err
	}

	var sinks display.Multi
	if cfg.Web.Enabled {
		opts := web.Options{
			Addr:     cfg.Web.Addr,
			Status:   app.Status,
			Gestures: app.Dispatcher(),
			Metrics:  m,
		}
		if local != nil {
			opts.Speaker = local
		}
		srv := web.NewServer(opts)
		if err := app.AddTask("web", srv.Run); err != nil {
			return err
		}
		sinks = append(sinks, srv)
	}

	switch cfg.Display.Renderer {
	case config.RendererTerminal:
		term := &display.Terminal{
			Queue:    queue,
			Interval: cfg.Display.PollInterval,
			Status:   app.Status,
			OnQuit:   cancel,
		}
		if len(sinks) > 0 {
			term.Also = sinks
		}
		err = app.AddTask("display", term.Run)
	case config.RendererLog:
		sinks = append(sinks, display.LogSink{Logger: log.Component("display")})
		err = app.AddTask("display", display.NewPoller(queue, sinks, cfg.Display.PollInterval, nil).Run)
	default:
		if len(sinks) > 0 {
			err = app.AddTask("display", display.NewPoller(queue, sinks, cfg.Display.PollInterval, nil).Run)
		}
	}
	if err != nil {
		return err
	}

	return app.Run(ctx)
}
