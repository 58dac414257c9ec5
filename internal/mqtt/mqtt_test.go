package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestTopics(t *testing.T) {
	tests := map[string]string{
		TopicReport: "game/tilt-balance/report",
		TopicRounds: "game/tilt-balance/rounds",
		TopicSystem: "game/tilt-balance/system",
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("topic: got %q, want %q", got, want)
		}
	}
}

func TestFormatReport(t *testing.T) {
	r := Report{
		Timestamp:   time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Phase:       "RUNNING",
		Round:       3,
		Score:       12,
		FrequencyHz: 22,
		Position:    4.5,
		Pin:         5,
		LEDs:        0x20,
	}

	payload, err := FormatReport(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed ReportPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Game.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Game.Timestamp)
	}
	if parsed.Game.Phase != "RUNNING" || parsed.Game.Round != 3 || parsed.Game.Score != 12 {
		t.Errorf("unexpected game: %+v", parsed.Game)
	}
	if parsed.Game.Pin != 5 || parsed.Game.LEDs != 0x20 {
		t.Errorf("unexpected pin/leds: %d/%d", parsed.Game.Pin, parsed.Game.LEDs)
	}
}

func TestFormatReportExactJSON(t *testing.T) {
	payload, err := FormatReport(Report{
		Timestamp:   time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Phase:       "RUNNING",
		Round:       1,
		Score:       2,
		FrequencyHz: 12,
		Position:    3.25,
		Pin:         3,
		LEDs:        8,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"game":{"timestamp":"2026-02-02T22:18:12Z","phase":"RUNNING","round":1,"score":2,"frequency_hz":12,"position":3.25,"pin":3,"leds":8}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatRound(t *testing.T) {
	payload, err := FormatRound(RoundResult{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Round:     4,
		Score:     9,
		BestScore: 11,
		Position:  7.1525,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"round":{"timestamp":"2026-02-10T08:30:00Z","number":4,"score":9,"best_score":11,"final_position":7.1525}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	ts := time.Date(2026, 2, 3, 3, 0, 0, 0, loc)

	payload, err := FormatRound(RoundResult{Timestamp: ts})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed RoundPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Round.Timestamp != "2026-02-02T22:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Round.Timestamp)
	}

	payload, err = FormatSystemPayload(SystemEvent{Timestamp: ts, Event: "STARTUP"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sys SystemPayload
	if err := json.Unmarshal(payload, &sys); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sys.System.Timestamp != "2026-02-02T22:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", sys.System.Timestamp)
	}
}

func TestWillPayloadFormat(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadReconnected(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	system := parsed["system"].(map[string]interface{})
	if _, exists := system["reason"]; exists {
		t.Error("RECONNECTED should not have reason field")
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "IGNORED", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.PublishReport(Report{Score: 1, Timestamp: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishRound(RoundResult{Round: 1, Score: 4, Timestamp: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true, Timestamp: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Reports) != 1 || len(f.Rounds) != 1 || len(f.SystemEvents) != 1 {
		t.Fatalf("recorded: %d reports, %d rounds, %d system", len(f.Reports), len(f.Rounds), len(f.SystemEvents))
	}
	if f.RoundCount() != 1 {
		t.Errorf("RoundCount: got %d", f.RoundCount())
	}
	if !f.SystemEvents[0].Retained {
		t.Error("expected Retained=true to be recorded")
	}
	for _, topic := range []string{TopicReport, TopicRounds, TopicSystem} {
		if len(f.Payloads[topic]) != 1 {
			t.Errorf("%s: expected 1 payload, got %d", topic, len(f.Payloads[topic]))
		}
	}

	var parsed RoundPayload
	if err := json.Unmarshal(f.Payloads[TopicRounds][0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Round.Score != 4 {
		t.Errorf("round score: got %d", parsed.Round.Score)
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("system down")

	if err := f.PublishReport(Report{}); err == nil {
		t.Error("expected report error")
	}
	if err := f.PublishRound(RoundResult{}); err == nil {
		t.Error("expected round error")
	}
	if err := f.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected system error")
	}
	if len(f.Reports)+len(f.Rounds)+len(f.SystemEvents) != 0 {
		t.Error("failed publishes must not be recorded")
	}
}

func TestFakePublisherPreservesOrder(t *testing.T) {
	f := NewFakePublisher()
	for i := uint32(1); i <= 3; i++ {
		f.PublishRound(RoundResult{Round: i})
	}
	for i, r := range f.Rounds {
		if r.Round != uint32(i+1) {
			t.Errorf("round %d: got %d", i, r.Round)
		}
	}
}

func TestFakePublisherCloseAndReset(t *testing.T) {
	f := NewFakePublisher()
	f.Connected = true
	f.PublishReport(Report{})
	f.Close()

	if !f.Closed {
		t.Error("expected Closed=true")
	}
	if !f.IsConnected() {
		t.Error("expected IsConnected=true")
	}

	f.Reset()
	if f.Closed || f.IsConnected() || len(f.Reports) != 0 || len(f.Payloads) != 0 {
		t.Error("Reset did not clear state")
	}

	// Reusable after reset.
	if err := f.PublishReport(Report{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Reports) != 1 {
		t.Errorf("expected 1 report after reset, got %d", len(f.Reports))
	}
}

// RealPublisher and FakePublisher must both satisfy the interfaces.
var (
	_ Publisher        = (*RealPublisher)(nil)
	_ ConnectionStatus = (*RealPublisher)(nil)
	_ Publisher        = (*FakePublisher)(nil)
	_ ConnectionStatus = (*FakePublisher)(nil)
)
