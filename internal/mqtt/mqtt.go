// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// TopicReport is the MQTT topic for periodic game reports.
const TopicReport = "game/tilt-balance/report"

// TopicRounds is the MQTT topic for finished rounds.
const TopicRounds = "game/tilt-balance/rounds"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "game/tilt-balance/system"

// Publisher publishes game data to MQTT.
// Errors are returned to the caller for logging; they must never stop the game.
type Publisher interface {
	// PublishReport sends a periodic snapshot of the running game.
	PublishReport(r Report) error

	// PublishRound sends the result of a finished round.
	PublishRound(r RoundResult) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Report is one periodic game report.
type Report struct {
	Timestamp   time.Time
	Phase       string
	Round       uint32
	Score       uint32
	FrequencyHz float64
	Position    float64
	Pin         int
	LEDs        uint8
}

// RoundResult describes a finished round.
type RoundResult struct {
	Timestamp time.Time
	Round     uint32
	Score     uint32
	BestScore uint32
	Position  float64
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "RECONNECTED"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ReportPayload is the MQTT message payload for reports.
type ReportPayload struct {
	Game ReportInner `json:"game"`
}

// ReportInner contains the report details.
type ReportInner struct {
	Timestamp   string  `json:"timestamp"`
	Phase       string  `json:"phase"`
	Round       uint32  `json:"round"`
	Score       uint32  `json:"score"`
	FrequencyHz float64 `json:"frequency_hz"`
	Position    float64 `json:"position"`
	Pin         int     `json:"pin"`
	LEDs        uint8   `json:"leds"`
}

// FormatReport creates the JSON payload for a report.
func FormatReport(r Report) ([]byte, error) {
	return json.Marshal(ReportPayload{
		Game: ReportInner{
			Timestamp:   r.Timestamp.UTC().Format(time.RFC3339),
			Phase:       r.Phase,
			Round:       r.Round,
			Score:       r.Score,
			FrequencyHz: r.FrequencyHz,
			Position:    r.Position,
			Pin:         r.Pin,
			LEDs:        r.LEDs,
		},
	})
}

// RoundPayload is the MQTT message payload for a finished round.
type RoundPayload struct {
	Round RoundInner `json:"round"`
}

// RoundInner contains the round details.
type RoundInner struct {
	Timestamp string  `json:"timestamp"`
	Number    uint32  `json:"number"`
	Score     uint32  `json:"score"`
	BestScore uint32  `json:"best_score"`
	Position  float64 `json:"final_position"`
}

// FormatRound creates the JSON payload for a finished round.
func FormatRound(r RoundResult) ([]byte, error) {
	return json.Marshal(RoundPayload{
		Round: RoundInner{
			Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
			Number:    r.Round,
			Score:     r.Score,
			BestScore: r.BestScore,
			Position:  r.Position,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
