package mqtt

import "sync"

// FakePublisher records published messages for test assertions.
// It is safe for concurrent use.
type FakePublisher struct {
	mu sync.Mutex

	// Reports contains all reports that were published.
	Reports []Report

	// Rounds contains all round results that were published.
	Rounds []RoundResult

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// Payloads contains every JSON payload in publish order, keyed by topic.
	Payloads map[string][][]byte

	// PublishError, if set, will be returned by PublishReport and PublishRound.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Payloads: make(map[string][][]byte)}
}

// PublishReport records the report.
func (f *FakePublisher) PublishReport(r Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatReport(r)
	if err != nil {
		return err
	}
	f.Reports = append(f.Reports, r)
	f.Payloads[TopicReport] = append(f.Payloads[TopicReport], payload)
	return nil
}

// PublishRound records the round result.
func (f *FakePublisher) PublishRound(r RoundResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatRound(r)
	if err != nil {
		return err
	}
	f.Rounds = append(f.Rounds, r)
	f.Payloads[TopicRounds] = append(f.Payloads[TopicRounds], payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Payloads[TopicSystem] = append(f.Payloads[TopicSystem], payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// RoundCount returns how many round results were recorded.
func (f *FakePublisher) RoundCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Rounds)
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reports = nil
	f.Rounds = nil
	f.SystemEvents = nil
	f.Payloads = make(map[string][][]byte)
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
