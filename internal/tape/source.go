package tape

// Source is the backing file of a tape. Frames are interleaved float32
// samples, Channels() per frame, addressed by absolute frame index.
//
// Source implementations must be safe for use by the worker goroutine while
// the owner holds no other references; the Streamer never calls a Source from
// the consumer side.
type Source interface {
	// Channels returns the fixed number of channels per frame.
	Channels() int

	// ReadFramesAt fills dst (len(dst)/Channels() frames) starting at the
	// given frame. Frames outside the file are zero. It returns how many
	// frames were actually present in the file.
	ReadFramesAt(dst []float32, frame int64) (int, error)

	// WriteFramesAt writes len(src)/Channels() frames starting at frame.
	WriteFramesAt(src []float32, frame int64) error
}
