package session

import "time"

// MockTransport is a test double recording every command sent to the
// engine.
type MockTransport struct {
	PlayCalls   []MockPlay
	SeekCalls   []time.Duration
	VolumeCalls []float64
	SpeedCalls  []float64
	DeviceCalls []string
	PauseCount  int
	ResumeCount int
	StopCount   int
	Closed      bool

	ElapsedValue  time.Duration
	FinishedValue bool
}

// MockPlay records one Play command.
type MockPlay struct {
	Path   string
	Volume float64
	Offset time.Duration
}

// NewMockTransport creates an idle mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) Play(path string, volume float64, offset time.Duration) {
	m.PlayCalls = append(m.PlayCalls, MockPlay{Path: path, Volume: volume, Offset: offset})
}

func (m *MockTransport) Pause()  { m.PauseCount++ }
func (m *MockTransport) Resume() { m.ResumeCount++ }
func (m *MockTransport) Stop()   { m.StopCount++ }

func (m *MockTransport) SetVolume(level float64) { m.VolumeCalls = append(m.VolumeCalls, level) }
func (m *MockTransport) SetSpeed(multiplier float64) {
	m.SpeedCalls = append(m.SpeedCalls, multiplier)
}
func (m *MockTransport) Seek(target time.Duration) { m.SeekCalls = append(m.SeekCalls, target) }
func (m *MockTransport) SetDevice(name string)     { m.DeviceCalls = append(m.DeviceCalls, name) }

func (m *MockTransport) Elapsed() time.Duration { return m.ElapsedValue }
func (m *MockTransport) Finished() bool         { return m.FinishedValue }
func (m *MockTransport) Close()                 { m.Closed = true }

// Verify MockTransport implements Transport at compile time.
var _ Transport = (*MockTransport)(nil)
