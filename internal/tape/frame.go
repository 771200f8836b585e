package tape

// Frame holds one sample per channel at a single point in time.
// Frames handed out by the Streamer are copies; mutating one never touches the ring.
type Frame []float32

// Clone returns an independent copy of f.
func (f Frame) Clone() Frame {
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

// splitFrames carves n frames of the given width out of one backing slab.
func splitFrames(slab []float32, n, channels int) []Frame {
	frames := make([]Frame, n)
	for i := range frames {
		frames[i] = Frame(slab[i*channels : (i+1)*channels : (i+1)*channels])
	}
	return frames
}
