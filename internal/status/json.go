package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Game          GameJSON     `json:"game"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// GameJSON is the JSON representation of a game frame.
type GameJSON struct {
	Phase           string  `json:"phase"`
	Running         bool    `json:"running"`
	Round           uint32  `json:"round"`
	Score           uint32  `json:"score"`
	LastScore       uint32  `json:"last_score"`
	BestScore       uint32  `json:"best_score"`
	Position        float64 `json:"position"`
	Velocity        float64 `json:"velocity"`
	Pin             int     `json:"pin"`
	LEDs            uint8   `json:"leds"`
	FrequencyHz     float64 `json:"frequency_hz"`
	ControlPeriodMs float64 `json:"control_period_ms"`
	Version         uint64  `json:"version"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	BaseHz      float64 `json:"base_hz"`
	StepHz      float64 `json:"step_hz"`
	MaxHz       float64 `json:"max_hz"`
	FlashHoldMs int64   `json:"flash_hold_ms"`
	ScoreHoldMs int64   `json:"score_hold_ms"`
	ReportMs    int64   `json:"report_ms"`
	Axis        string  `json:"axis"`
	Broker      string  `json:"broker"`
	HTTPAddr    string  `json:"http_addr"`
}

// GameOf converts the game part of a snapshot.
func GameOf(snap Snapshot) GameJSON {
	phase := snap.Phase
	if phase == "" {
		phase = "UNKNOWN"
	}
	return GameJSON{
		Phase:           phase,
		Running:         snap.Running,
		Round:           snap.Round,
		Score:           snap.Score,
		LastScore:       snap.LastScore,
		BestScore:       snap.BestScore,
		Position:        snap.Position,
		Velocity:        snap.Velocity,
		Pin:             snap.Pin,
		LEDs:            snap.LEDs,
		FrequencyHz:     snap.FrequencyHz,
		ControlPeriodMs: float64(snap.ControlPeriod) / float64(time.Millisecond),
		Version:         snap.Version,
	}
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Game:          GameOf(snap),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			BaseHz:      snap.Config.BaseHz,
			StepHz:      snap.Config.StepHz,
			MaxHz:       snap.Config.MaxHz,
			FlashHoldMs: snap.Config.FlashHoldMs,
			ScoreHoldMs: snap.Config.ScoreHoldMs,
			ReportMs:    snap.Config.ReportMs,
			Axis:        snap.Config.Axis,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
