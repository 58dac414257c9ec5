// Package status provides the read side of the game for the reporting loop,
// the HTTP page and MQTT.
// Game state arrives through a Board written only by the tick dispatcher;
// daemon-level state (connectivity, config) lives in the Tracker.
package status

import (
	"sync"
	"time"
)

// NetworkInfo contains network state as written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	BaseHz      float64
	StepHz      float64
	MaxHz       float64
	FlashHoldMs int64
	ScoreHoldMs int64
	ReportMs    int64
	Axis        string
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Frame
	LEDs          uint8
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker combines the game board with daemon state behind an RWMutex.
type Tracker struct {
	board *Board

	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker reading game frames from board.
func NewTracker(board *Board, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		board: board,
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetLEDs records the LED pattern last read back from the expander.
func (t *Tracker) SetLEDs(v uint8) {
	t.mu.Lock()
	t.snap.LEDs = v
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state with the latest
// game frame. The Now field is set to the current time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if t.board != nil {
		s.Frame = t.board.Load()
	}
	s.Now = time.Now()
	return s
}
