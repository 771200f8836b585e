package tape

// Direction labels used in logs and metrics.
const (
	Forward  = "forward"
	Backward = "backward"
)

// Seek path labels.
const (
	SeekCached    = "cached"
	SeekDiscarded = "discarded"
)

// Recorder receives transport and worker measurements. It is implemented by
// metrics.TapeMetrics. Calls are made after the ring lock is released, but
// consumer-side ones run on the caller's real-time path, so all methods must
// be cheap and non-blocking.
type Recorder interface {
	RecordSeek(path string)
	RecordFramesRead(direction string, frames int)
	RecordFramesWritten(direction string, frames int)
	RecordShortRead(direction string)
	RecordRefill(direction string, frames int, seconds float64)
	RecordEviction(direction string, frames int)
	RecordFlush(frames int, seconds float64)
	RecordDiskError(operation string)
	SetWindow(ahead, behind int)
}

// nopRecorder discards all measurements.
type nopRecorder struct{}

func (nopRecorder) RecordSeek(string) {}
func (nopRecorder) RecordFramesRead(string, int) {}
func (nopRecorder) RecordFramesWritten(string, int) {}
func (nopRecorder) RecordShortRead(string) {}
func (nopRecorder) RecordRefill(string, int, float64) {}
func (nopRecorder) RecordEviction(string, int) {}
func (nopRecorder) RecordFlush(int, float64) {}
func (nopRecorder) RecordDiskError(string) {}
func (nopRecorder) SetWindow(int, int) {}
