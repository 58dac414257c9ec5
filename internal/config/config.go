// Package config loads daemon settings from the environment, then lets
// command-line flags override them.
package config

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"periph.io/x/conn/v3/i2c"

	"github.com/sweeney/tilt-balance/internal/game"
	"github.com/sweeney/tilt-balance/internal/gpio"
	"github.com/sweeney/tilt-balance/internal/sched"
	"github.com/sweeney/tilt-balance/internal/tilt"
)

// Config holds everything the tilt-balance command needs.
type Config struct {
	I2CBus       string   `env:"TILT_I2C_BUS"`
	ExpanderAddr i2c.Addr `env:"TILT_EXPANDER_ADDR" envDefault:"0x20"`
	SensorAddr   i2c.Addr `env:"TILT_SENSOR_ADDR"   envDefault:"0x1d"`
	ResetChip    string   `env:"TILT_RESET_CHIP"    envDefault:"gpiochip0"`
	ResetPin     int      `env:"TILT_RESET_PIN"     envDefault:"-1"`
	Axis         string   `env:"TILT_AXIS"          envDefault:"x"`

	BaseHz    float64       `env:"TILT_BASE_HZ"    envDefault:"10"`
	StepHz    float64       `env:"TILT_STEP_HZ"    envDefault:"1"`
	MaxHz     float64       `env:"TILT_MAX_HZ"     envDefault:"100"`
	FlashHold time.Duration `env:"TILT_FLASH_HOLD" envDefault:"500ms"`
	ScoreHold time.Duration `env:"TILT_SCORE_HOLD" envDefault:"2s"`
	Perturb   bool          `env:"TILT_PERTURB"    envDefault:"true"`
	Seed      int64         `env:"TILT_SEED"`

	Report   time.Duration `env:"TILT_REPORT"         envDefault:"1s"`
	Broker   string        `env:"TILT_MQTT_BROKER"    envDefault:"tcp://192.168.1.200:1883"`
	ClientID string        `env:"TILT_MQTT_CLIENT_ID" envDefault:"tilt-balance"`
	HTTPAddr string        `env:"TILT_HTTP_ADDR"      envDefault:":80"`

	// Flag-only modes.
	Probe    bool `env:"-"`
	SelfTest bool `env:"-"`
	Sweeps   int  `env:"-"`
}

// ErrInvalid is returned for settings the game cannot run with.
var ErrInvalid = errors.New("config: invalid setting")

func parseAddr(v string) (interface{}, error) {
	var a i2c.Addr
	if err := a.Set(v); err != nil {
		return nil, err
	}
	return a, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (Config, error) {
	var cfg Config
	err := env.ParseWithOptions(&cfg, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(i2c.Addr(0)): parseAddr,
		},
	})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg, err := ParseEnv()
	if err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.I2CBus, "bus", cfg.I2CBus, "I2C bus name (empty for the first available)")
	fs.Var(&cfg.ExpanderAddr, "expander-addr", "GPIO expander I2C address")
	fs.Var(&cfg.SensorAddr, "sensor-addr", "Accelerometer I2C address")
	fs.StringVar(&cfg.ResetChip, "reset-chip", cfg.ResetChip, "GPIO chip for the expander reset line")
	fs.IntVar(&cfg.ResetPin, "reset-pin", cfg.ResetPin, fmt.Sprintf("BCM pin wired to the expander RESET, %d on the reference board (-1 to disable)", gpio.PinReset))
	fs.StringVar(&cfg.Axis, "axis", cfg.Axis, `Steering axis: "x" or "y", prefix "-" to invert`)
	fs.Float64Var(&cfg.BaseHz, "base-hz", cfg.BaseHz, "Control rate at the start of a round")
	fs.Float64Var(&cfg.StepHz, "step-hz", cfg.StepHz, "Control rate increase per point")
	fs.Float64Var(&cfg.MaxHz, "max-hz", cfg.MaxHz, "Control rate ceiling")
	fs.DurationVar(&cfg.FlashHold, "flash-hold", cfg.FlashHold, "Game-over flash duration")
	fs.DurationVar(&cfg.ScoreHold, "score-hold", cfg.ScoreHold, "Score display duration")
	fs.BoolVar(&cfg.Perturb, "perturb", cfg.Perturb, "Add random drift to the ball")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Drift random seed (0 for time-based)")
	fs.DurationVar(&cfg.Report, "report", cfg.Report, "Console/MQTT reporting interval")
	fs.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address (empty to disable)")
	fs.StringVar(&cfg.ClientID, "client-id", cfg.ClientID, "MQTT client id")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")
	fs.BoolVar(&cfg.Probe, "probe", false, "Print sensor id and one sample, then exit")
	fs.BoolVar(&cfg.SelfTest, "selftest", false, "Run the LED wiring check, then exit")
	fs.IntVar(&cfg.Sweeps, "sweeps", 10, "Number of self-test sweeps")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.ResetChip == "" {
		cfg.ResetChip = gpio.DefaultChip
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings against the limits of the hardware.
func (c Config) Validate() error {
	for _, r := range []struct {
		name string
		hz   float64
	}{{"base-hz", c.BaseHz}, {"step-hz", c.StepHz}, {"max-hz", c.MaxHz}} {
		if math.IsNaN(r.hz) || math.IsInf(r.hz, 0) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalid, r.name)
		}
	}
	ceiling := float64(time.Second / sched.MinControlPeriod)
	switch {
	case c.BaseHz <= 0:
		return fmt.Errorf("%w: base-hz must be positive", ErrInvalid)
	case c.StepHz < 0:
		return fmt.Errorf("%w: step-hz must not be negative", ErrInvalid)
	case c.MaxHz > ceiling:
		return fmt.Errorf("%w: max-hz %v above %v", ErrInvalid, c.MaxHz, ceiling)
	case c.BaseHz > c.MaxHz:
		return fmt.Errorf("%w: base-hz %v above max-hz %v", ErrInvalid, c.BaseHz, c.MaxHz)
	case c.FlashHold <= 0 || c.ScoreHold <= 0:
		return fmt.Errorf("%w: holds must be positive", ErrInvalid)
	case c.Report <= 0:
		return fmt.Errorf("%w: report must be positive", ErrInvalid)
	}
	if _, _, err := tilt.ParseAxis(c.Axis); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Game returns the engine settings.
func (c Config) Game() game.Config {
	return game.Config{
		BaseFrequencyHz: c.BaseHz,
		FrequencyStepHz: c.StepHz,
		MaxFrequencyHz:  c.MaxHz,
		FlashHold:       c.FlashHold,
		ScoreHold:       c.ScoreHold,
	}
}
