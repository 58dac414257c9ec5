package gpio

// FakeLine is a test double that records every value driven onto it.
type FakeLine struct {
	// Values contains every value passed to SetValue, in order.
	Values []int

	// Closed tracks if Close was called.
	Closed bool

	// SetError, if set, will be returned by SetValue.
	SetError error
}

// NewFakeLine creates a FakeLine.
func NewFakeLine() *FakeLine {
	return &FakeLine{}
}

// SetValue records v.
func (f *FakeLine) SetValue(v int) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Values = append(f.Values, v)
	return nil
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded values.
func (f *FakeLine) Reset() {
	f.Values = nil
	f.Closed = false
	f.SetError = nil
}
