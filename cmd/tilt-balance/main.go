// Command tilt-balance runs the tilt-balance LED game and publishes its progress to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sweeney/tilt-balance/internal/bus"
	"github.com/sweeney/tilt-balance/internal/config"
	"github.com/sweeney/tilt-balance/internal/expander"
	"github.com/sweeney/tilt-balance/internal/game"
	"github.com/sweeney/tilt-balance/internal/gpio"
	"github.com/sweeney/tilt-balance/internal/mqtt"
	"github.com/sweeney/tilt-balance/internal/physics"
	"github.com/sweeney/tilt-balance/internal/sched"
	"github.com/sweeney/tilt-balance/internal/status"
	"github.com/sweeney/tilt-balance/internal/tilt"
	"github.com/sweeney/tilt-balance/internal/web"
)

func main() {
	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config) error {
	i2cBus, err := bus.Open(cfg.I2CBus, bus.DefaultSpeed)
	if err != nil {
		return fmt.Errorf("init i2c: %w", err)
	}
	defer i2cBus.Close()
	gate := bus.NewGate(i2cBus)

	if cfg.ResetPin >= 0 {
		line, err := gpio.NewRealResetLine(cfg.ResetChip, cfg.ResetPin)
		if err != nil {
			return fmt.Errorf("init reset line: %w", err)
		}
		defer line.Close()
		if err := gpio.Pulse(line, clockwork.NewRealClock(), gpio.ResetPulse, gpio.ResetRecover); err != nil {
			return fmt.Errorf("reset expander: %w", err)
		}
	}

	dev := expander.New(gate, uint16(cfg.ExpanderAddr))

	if cfg.SelfTest {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		log.Printf("selftest: %d sweeps on expander 0x%02x", cfg.Sweeps, dev.Addr())
		err := expander.SelfTest(ctx, dev, clockwork.NewRealClock(), cfg.Sweeps)
		if lowErr := dev.AllPinsLow(); lowErr != nil {
			log.Printf("selftest: clear leds: %v", lowErr)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("selftest: %w", err)
		}
		return nil
	}

	sensor := tilt.NewMMA8653(gate, uint16(cfg.SensorAddr))
	if err := sensor.Calibrate(); err != nil {
		return fmt.Errorf("calibrate sensor: %w", err)
	}

	if cfg.Probe {
		return probe(sensor, dev)
	}

	axis, invert, err := tilt.ParseAxis(cfg.Axis)
	if err != nil {
		return err
	}
	reader := tilt.AxisReader{Sensor: sensor, Axis: axis, Invert: invert}

	lo, hi := physics.MinOffset, physics.MaxOffset
	if !cfg.Perturb {
		lo, hi = 0, 0
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	perturb := physics.NewPerturbation(lo, hi, rand.NewSource(seed))

	board := status.NewBoard()
	tracker := status.NewTracker(board, time.Now(), status.Config{
		BaseHz:      cfg.BaseHz,
		StepHz:      cfg.StepHz,
		MaxHz:       cfg.MaxHz,
		FlashHoldMs: cfg.FlashHold.Milliseconds(),
		ScoreHoldMs: cfg.ScoreHold.Milliseconds(),
		ReportMs:    cfg.Report.Milliseconds(),
		Axis:        cfg.Axis,
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	var publisher mqttClient = offline{}
	if cfg.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID)
		if err != nil {
			log.Printf("mqtt unavailable, continuing without it: %v", err)
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	loop := sched.NewLoop(clockwork.NewRealClock())
	engine := game.NewEngine(cfg.Game(), dev, reader, loop, perturb, board)
	if err := engine.Start(); err != nil {
		return err
	}

	log.Printf("started: base=%.0fHz step=%.0fHz max=%.0fHz axis=%s broker=%s seed=%d",
		cfg.BaseHz, cfg.StepHz, cfg.MaxHz, cfg.Axis, cfg.Broker, seed)

	ctx, cancel := context.WithCancel(context.Background())
	dispatchErr := make(chan error, 1)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		dispatchErr <- loop.Run(ctx, engine)
	}()

	ticker := time.NewTicker(cfg.Report)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	err = runLoop(tracker, dev, publisher, publisher, time.Now, ticker.C, sigCh, dispatchErr)

	cancel()
	<-loopDone
	if lowErr := dev.AllPinsLow(); lowErr != nil {
		log.Printf("clear leds: %v", lowErr)
	}
	return err
}

// ledReader is the part of the expander the reporter needs.
type ledReader interface {
	ReadValue() (uint8, error)
}

type mqttClient interface {
	mqtt.Publisher
	mqtt.ConnectionStatus
}

// offline stands in for the broker when none is configured or reachable.
type offline struct{}

func (offline) PublishReport(mqtt.Report) error      { return nil }
func (offline) PublishRound(mqtt.RoundResult) error  { return nil }
func (offline) PublishSystem(mqtt.SystemEvent) error { return nil }
func (offline) Close() error                         { return nil }
func (offline) IsConnected() bool                    { return false }

// runLoop reports game progress on every tick until a signal arrives or the
// dispatcher stops. A dispatcher error is returned to the caller.
func runLoop(tracker *status.Tracker, leds ledReader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, dispatch <-chan error) error {
	var reported uint32 // highest round published to TopicRounds

	shutdown := func(reason string) {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		snap := tracker.Snapshot()
		event := mqtt.SystemEvent{
			Timestamp:  now(),
			Event:      "SHUTDOWN",
			Reason:     reason,
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
		}
		if err := publisher.PublishSystem(event); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		} else {
			log.Printf("published shutdown event")
		}
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			shutdown(signalName(s))
			return nil

		case err := <-dispatch:
			if err == nil {
				shutdown("STOPPED")
				return nil
			}
			log.Printf("game stopped: %v", err)
			shutdown("GAME_ERROR")
			return fmt.Errorf("game: %w", err)

		case <-tick:
			t := now()
			if v, err := leds.ReadValue(); err != nil {
				log.Printf("read leds: %v", err)
			} else {
				tracker.SetLEDs(v)
			}
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			snap := tracker.Snapshot()

			if done := finishedRound(snap.Frame); done > reported {
				reported = done
				log.Printf("round %d over: score=%d best=%d", done, snap.LastScore, snap.BestScore)
				result := mqtt.RoundResult{
					Timestamp: t,
					Round:     done,
					Score:     snap.LastScore,
					BestScore: snap.BestScore,
					Position:  snap.Position,
				}
				if err := publisher.PublishRound(result); err != nil {
					log.Printf("round publish error: %v", err)
				}
			}

			if snap.Phase == "" {
				continue
			}
			if err := publisher.PublishReport(mqtt.Report{
				Timestamp:   t,
				Phase:       snap.Phase,
				Round:       snap.Round,
				Score:       snap.Score,
				FrequencyHz: snap.FrequencyHz,
				Position:    snap.Position,
				Pin:         snap.Pin,
				LEDs:        snap.LEDs,
			}); err != nil {
				log.Printf("report publish error: %v", err)
			}
		}
	}
}

// finishedRound returns the most recent round known to be over.
// Ending means the current round just finished; otherwise the previous one did.
func finishedRound(f status.Frame) uint32 {
	if f.Phase == game.PhaseEnding.String() {
		return f.Round
	}
	if f.Round == 0 {
		return 0
	}
	return f.Round - 1
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func probe(sensor *tilt.MMA8653, dev *expander.Device) error {
	id, err := sensor.DeviceID()
	if err != nil {
		return fmt.Errorf("read sensor id: %w", err)
	}
	a, err := sensor.ReadAxes()
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}
	v, err := dev.ReadValue()
	if err != nil {
		return fmt.Errorf("read expander: %w", err)
	}
	off := sensor.Offsets()
	fmt.Printf("sensor: id=0x%02x x=%d y=%d z=%d (offsets x=%d y=%d z=%d)\n", id, a.X, a.Y, a.Z, off.X, off.Y, off.Z)
	fmt.Printf("expander: addr=0x%02x leds=%08b\n", dev.Addr(), v)
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
