// Package config loads go-ohbot configuration from a file and OHBOT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/teslashibe/go-ohbot/pkg/actuator"
	"github.com/teslashibe/go-ohbot/pkg/character"
	"github.com/teslashibe/go-ohbot/pkg/idle"
	"github.com/teslashibe/go-ohbot/pkg/motion"
	"github.com/teslashibe/go-ohbot/pkg/speech"
)

// EnvPrefix is prepended to every environment override, e.g. OHBOT_SERIAL_PORT.
const EnvPrefix = "OHBOT"

// Display renderers.
const (
	RendererTerminal = "terminal"
	RendererLog      = "log"
	RendererNone     = "none"
)

// Agent kinds.
const (
	AgentLocal     = "local"
	AgentWebSocket = "websocket"
)

// Config holds all application configuration.
type Config struct {
	Backend  string         `mapstructure:"backend"` // serial, feetech or sim
	Log      LogConfig      `mapstructure:"log"`
	Serial   SerialConfig   `mapstructure:"serial"`
	Feetech  FeetechConfig  `mapstructure:"feetech"`
	Motion   MotionConfig   `mapstructure:"motion"`
	Idle     IdleConfig     `mapstructure:"idle"`
	Talking  TalkingConfig  `mapstructure:"talking"`
	Gestures GesturesConfig `mapstructure:"gestures"`
	Display  DisplayConfig  `mapstructure:"display"`
	Web      WebConfig      `mapstructure:"web"`
	Agent    AgentConfig    `mapstructure:"agent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // empty logs to stderr, or a temp file under the terminal renderer
}

// SerialConfig configures the Ohbot serial board.
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// FeetechConfig configures the bus servo backend. Servos is keyed by
// channel name; missing channels use IDs 1-7 over the full range.
type FeetechConfig struct {
	Port           string                         `mapstructure:"port"`
	BaudRate       int                            `mapstructure:"baud_rate"`
	CommandTimeout time.Duration                  `mapstructure:"command_timeout"`
	Servos         map[string]actuator.ServoRange `mapstructure:"servos"`
}

// MotionConfig configures the PID controller.
type MotionConfig struct {
	Tick          time.Duration `mapstructure:"tick"`
	Tolerance     float64       `mapstructure:"tolerance"`
	Kp            float64       `mapstructure:"kp"`
	Ki            float64       `mapstructure:"ki"`
	Kd            float64       `mapstructure:"kd"`
	Gain          float64       `mapstructure:"gain"`
	IntegralLimit float64       `mapstructure:"integral_limit"`
	Speed         int           `mapstructure:"speed"`
	Settle        time.Duration `mapstructure:"settle"`
}

// IdleConfig configures the idle loop.
type IdleConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Subtle      float64       `mapstructure:"subtle"`
	LookAround  float64       `mapstructure:"look_around"`
	Focused     float64       `mapstructure:"focused"`
	BlinkChance float64       `mapstructure:"blink_chance"`
	BlinkHold   time.Duration `mapstructure:"blink_hold"`
	FocusPause  time.Duration `mapstructure:"focus_pause"`
}

// TalkingConfig configures the lip animation.
type TalkingConfig struct {
	OpenMin       float64       `mapstructure:"open_min"`
	OpenMax       float64       `mapstructure:"open_max"`
	ClosedMin     float64       `mapstructure:"closed_min"`
	ClosedMax     float64       `mapstructure:"closed_max"`
	OpenHoldMin   time.Duration `mapstructure:"open_hold_min"`
	OpenHoldMax   time.Duration `mapstructure:"open_hold_max"`
	ClosedHoldMin time.Duration `mapstructure:"closed_hold_min"`
	ClosedHoldMax time.Duration `mapstructure:"closed_hold_max"`
}

// GesturesConfig configures the gesture table.
type GesturesConfig struct {
	File       string        `mapstructure:"file"` // empty uses the built-in table
	StepBudget time.Duration `mapstructure:"step_budget"`
}

// DisplayConfig configures the display renderer.
type DisplayConfig struct {
	Renderer     string        `mapstructure:"renderer"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	QueueSize    int           `mapstructure:"queue_size"`
}

// WebConfig configures the dashboard.
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// AgentConfig selects the dialogue agent.
type AgentConfig struct {
	Kind             string        `mapstructure:"kind"`
	URL              string        `mapstructure:"url"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

// Error reports an invalid configuration field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Default returns the stock configuration.
func Default() Config {
	m := motion.DefaultConfig()
	i := idle.DefaultConfig()
	t := speech.DefaultConfig()
	s := actuator.DefaultSerialConfig("")
	f := actuator.DefaultFeetechConfig("/dev/ttyACM0")

	return Config{
		Backend: "sim",
		Log:     LogConfig{Level: "info"},
		Serial:  SerialConfig{Port: s.Port, Baud: s.Baud, ReadTimeout: s.ReadTimeout},
		Feetech: FeetechConfig{
			Port:           f.Port,
			BaudRate:       f.BaudRate,
			CommandTimeout: f.CommandTimeout,
		},
		Motion: MotionConfig{
			Tick:          m.Tick,
			Tolerance:     m.Tolerance,
			Kp:            m.Kp,
			Ki:            m.Ki,
			Kd:            m.Kd,
			Gain:          m.Gain,
			IntegralLimit: m.IntegralLimit,
			Speed:         m.Speed,
			Settle:        m.Settle,
		},
		Idle: IdleConfig{
			Enabled:     true,
			Subtle:      i.Weights[idle.Subtle],
			LookAround:  i.Weights[idle.LookAround],
			Focused:     i.Weights[idle.Focused],
			BlinkChance: i.BlinkChance,
			BlinkHold:   i.BlinkHold,
			FocusPause:  i.FocusPause,
		},
		Talking: TalkingConfig{
			OpenMin:       t.OpenMin,
			OpenMax:       t.OpenMax,
			ClosedMin:     t.ClosedMin,
			ClosedMax:     t.ClosedMax,
			OpenHoldMin:   t.OpenHoldMin,
			OpenHoldMax:   t.OpenHoldMax,
			ClosedHoldMin: t.ClosedHoldMin,
			ClosedHoldMax: t.ClosedHoldMax,
		},
		Gestures: GesturesConfig{StepBudget: 150 * time.Millisecond},
		Display: DisplayConfig{
			Renderer:     RendererTerminal,
			PollInterval: 50 * time.Millisecond,
			QueueSize:    32,
		},
		Web:   WebConfig{Addr: ":8080"},
		Agent: AgentConfig{Kind: AgentLocal, HandshakeTimeout: 10 * time.Second},
	}
}

// Load reads path (if non-empty), applies OHBOT_* overrides and validates.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("backend", d.Backend)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("serial.port", d.Serial.Port)
	v.SetDefault("serial.baud", d.Serial.Baud)
	v.SetDefault("serial.read_timeout", d.Serial.ReadTimeout)

	v.SetDefault("feetech.port", d.Feetech.Port)
	v.SetDefault("feetech.baud_rate", d.Feetech.BaudRate)
	v.SetDefault("feetech.command_timeout", d.Feetech.CommandTimeout)

	v.SetDefault("motion.tick", d.Motion.Tick)
	v.SetDefault("motion.tolerance", d.Motion.Tolerance)
	v.SetDefault("motion.kp", d.Motion.Kp)
	v.SetDefault("motion.ki", d.Motion.Ki)
	v.SetDefault("motion.kd", d.Motion.Kd)
	v.SetDefault("motion.gain", d.Motion.Gain)
	v.SetDefault("motion.integral_limit", d.Motion.IntegralLimit)
	v.SetDefault("motion.speed", d.Motion.Speed)
	v.SetDefault("motion.settle", d.Motion.Settle)

	v.SetDefault("idle.enabled", d.Idle.Enabled)
	v.SetDefault("idle.subtle", d.Idle.Subtle)
	v.SetDefault("idle.look_around", d.Idle.LookAround)
	v.SetDefault("idle.focused", d.Idle.Focused)
	v.SetDefault("idle.blink_chance", d.Idle.BlinkChance)
	v.SetDefault("idle.blink_hold", d.Idle.BlinkHold)
	v.SetDefault("idle.focus_pause", d.Idle.FocusPause)

	v.SetDefault("talking.open_min", d.Talking.OpenMin)
	v.SetDefault("talking.open_max", d.Talking.OpenMax)
	v.SetDefault("talking.closed_min", d.Talking.ClosedMin)
	v.SetDefault("talking.closed_max", d.Talking.ClosedMax)
	v.SetDefault("talking.open_hold_min", d.Talking.OpenHoldMin)
	v.SetDefault("talking.open_hold_max", d.Talking.OpenHoldMax)
	v.SetDefault("talking.closed_hold_min", d.Talking.ClosedHoldMin)
	v.SetDefault("talking.closed_hold_max", d.Talking.ClosedHoldMax)

	v.SetDefault("gestures.file", d.Gestures.File)
	v.SetDefault("gestures.step_budget", d.Gestures.StepBudget)

	v.SetDefault("display.renderer", d.Display.Renderer)
	v.SetDefault("display.poll_interval", d.Display.PollInterval)
	v.SetDefault("display.queue_size", d.Display.QueueSize)

	v.SetDefault("web.enabled", d.Web.Enabled)
	v.SetDefault("web.addr", d.Web.Addr)

	v.SetDefault("agent.kind", d.Agent.Kind)
	v.SetDefault("agent.url", d.Agent.URL)
	v.SetDefault("agent.handshake_timeout", d.Agent.HandshakeTimeout)
}

// Validate checks field ranges. It returns the first problem as an *Error.
func (c Config) Validate() error {
	switch c.Backend {
	case "serial", "ohbot", "feetech", "sim":
	default:
		return &Error{Field: "backend", Message: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
	for name := range c.Feetech.Servos {
		if _, err := actuator.ParseChannel(name); err != nil {
			return &Error{Field: "feetech.servos", Message: err.Error()}
		}
	}
	if c.Motion.Tick <= 0 {
		return &Error{Field: "motion.tick", Message: "must be positive"}
	}
	if c.Motion.Tolerance <= 0 {
		return &Error{Field: "motion.tolerance", Message: "must be positive"}
	}
	if c.Motion.Speed < 1 || c.Motion.Speed > 10 {
		return &Error{Field: "motion.speed", Message: "must be between 1 and 10"}
	}
	if c.Idle.Subtle < 0 || c.Idle.LookAround < 0 || c.Idle.Focused < 0 {
		return &Error{Field: "idle", Message: "mode weights must not be negative"}
	}
	if c.Idle.Subtle+c.Idle.LookAround+c.Idle.Focused <= 0 {
		return &Error{Field: "idle", Message: "at least one mode weight must be positive"}
	}
	if c.Idle.BlinkChance < 0 || c.Idle.BlinkChance > 1 {
		return &Error{Field: "idle.blink_chance", Message: "must be between 0 and 1"}
	}
	if c.Talking.OpenMin > c.Talking.OpenMax {
		return &Error{Field: "talking.open_min", Message: "exceeds open_max"}
	}
	if c.Talking.ClosedMin > c.Talking.ClosedMax {
		return &Error{Field: "talking.closed_min", Message: "exceeds closed_max"}
	}
	if c.Talking.OpenHoldMin > c.Talking.OpenHoldMax || c.Talking.ClosedHoldMin > c.Talking.ClosedHoldMax {
		return &Error{Field: "talking", Message: "hold minimum exceeds maximum"}
	}
	if c.Gestures.StepBudget < 0 {
		return &Error{Field: "gestures.step_budget", Message: "must not be negative"}
	}
	switch c.Display.Renderer {
	case RendererTerminal, RendererLog, RendererNone:
	default:
		return &Error{Field: "display.renderer", Message: fmt.Sprintf("unknown renderer %q", c.Display.Renderer)}
	}
	if c.Display.PollInterval <= 0 {
		return &Error{Field: "display.poll_interval", Message: "must be positive"}
	}
	if c.Web.Enabled && c.Web.Addr == "" {
		return &Error{Field: "web.addr", Message: "required when web is enabled"}
	}
	switch c.Agent.Kind {
	case AgentLocal:
	case AgentWebSocket:
		if c.Agent.URL == "" {
			return &Error{Field: "agent.url", Message: "required for websocket agent"}
		}
	default:
		return &Error{Field: "agent.kind", Message: fmt.Sprintf("unknown agent %q", c.Agent.Kind)}
	}
	return nil
}

// IsError reports whether err is a configuration error.
func IsError(err error) bool {
	var cfgErr *Error
	return errors.As(err, &cfgErr)
}

// Character converts to the core configuration.
func (c Config) Character() character.Config {
	cfg := character.DefaultConfig()
	cfg.Motion = motion.Config{
		Tick:          c.Motion.Tick,
		Tolerance:     c.Motion.Tolerance,
		Kp:            c.Motion.Kp,
		Ki:            c.Motion.Ki,
		Kd:            c.Motion.Kd,
		Gain:          c.Motion.Gain,
		IntegralLimit: c.Motion.IntegralLimit,
		Speed:         c.Motion.Speed,
		Settle:        c.Motion.Settle,
	}
	cfg.Idle.Weights = idle.Weights{c.Idle.Subtle, c.Idle.LookAround, c.Idle.Focused}
	cfg.Idle.BlinkChance = c.Idle.BlinkChance
	cfg.Idle.BlinkHold = c.Idle.BlinkHold
	cfg.Idle.FocusPause = c.Idle.FocusPause
	cfg.Talking = speech.Config{
		OpenMin:       c.Talking.OpenMin,
		OpenMax:       c.Talking.OpenMax,
		ClosedMin:     c.Talking.ClosedMin,
		ClosedMax:     c.Talking.ClosedMax,
		OpenHoldMin:   c.Talking.OpenHoldMin,
		OpenHoldMax:   c.Talking.OpenHoldMax,
		ClosedHoldMin: c.Talking.ClosedHoldMin,
		ClosedHoldMax: c.Talking.ClosedHoldMax,
	}
	cfg.GestureStepBudget = c.Gestures.StepBudget
	cfg.IdleEnabled = c.Idle.Enabled
	return cfg
}

// SerialActuator converts to the serial backend configuration.
func (c Config) SerialActuator() actuator.SerialConfig {
	return actuator.SerialConfig{
		Port:        c.Serial.Port,
		Baud:        c.Serial.Baud,
		ReadTimeout: c.Serial.ReadTimeout,
	}
}

// FeetechActuator converts to the feetech backend configuration.
// Call Validate first; unknown channel names are skipped.
func (c Config) FeetechActuator() actuator.FeetechConfig {
	fc := actuator.DefaultFeetechConfig(c.Feetech.Port)
	if c.Feetech.BaudRate > 0 {
		fc.BaudRate = c.Feetech.BaudRate
	}
	if c.Feetech.CommandTimeout > 0 {
		fc.CommandTimeout = c.Feetech.CommandTimeout
	}
	for name, r := range c.Feetech.Servos {
		if ch, err := actuator.ParseChannel(name); err == nil {
			fc.Servos[ch] = r
		}
	}
	return fc
}

// Actuator builds the configured backend.
func (c Config) Actuator() (actuator.Actuator, error) {
	return actuator.New(c.Backend, c.SerialActuator(), c.FeetechActuator())
}
