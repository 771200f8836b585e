package tape

import (
	"fmt"

	"github.com/tphakala/tapedeck/internal/errors"
)

// Store is a fixed-capacity ring of frames keyed to absolute file positions.
//
// Ring slot i holds absolute position origin+i (modulo wraparound), so the
// slot for position p is (p - origin) mod capacity. The forward window is
// [position, position+ahead) and the backward window is
// [position-behind, position), where position = origin + playIndex.
//
// Store is not safe for concurrent use; Streamer serialises access.
type Store struct {
	samples  []float32 // capacity*channels interleaved samples
	dirty    []bool    // per slot: modified since loaded from disk
	capacity int
	channels int

	playIndex int
	origin    int64
	ahead     int
	behind    int
	dirtyN    int
}

// span is a run of consecutive frames detached from the ring for write-back.
type span struct {
	pos     int64
	samples []float32
}

func (sp span) frames(channels int) int {
	return len(sp.samples) / channels
}

// NewStore allocates a ring of capacity frames with the given channel count.
func NewStore(capacity, channels int) (*Store, error) {
	if capacity <= 0 {
		return nil, errors.New(fmt.Errorf("invalid ring capacity %d", capacity)).
			Category(errors.CategoryValidation).
			Build()
	}
	if channels <= 0 {
		return nil, errors.New(fmt.Errorf("invalid channel count %d", channels)).
			Category(errors.CategoryValidation).
			Build()
	}
	return &Store{
		samples:  make([]float32, capacity*channels),
		dirty:    make([]bool, capacity),
		capacity: capacity,
		channels: channels,
	}, nil
}

// Capacity returns the fixed number of frame slots.
func (s *Store) Capacity() int { return s.capacity }

// Channels returns the number of samples per frame.
func (s *Store) Channels() int { return s.channels }

// Ahead returns the number of cached frames at and after the play position.
func (s *Store) Ahead() int { return s.ahead }

// Behind returns the number of cached frames strictly before the play position.
func (s *Store) Behind() int { return s.behind }

// PlayIndex returns the ring slot of the play position.
func (s *Store) PlayIndex() int { return s.playIndex }

// Origin returns the absolute position represented by ring slot 0.
func (s *Store) Origin() int64 { return s.origin }

// Position returns the absolute play position implied by origin and playIndex.
func (s *Store) Position() int64 { return s.origin + int64(s.playIndex) }

// Pending reports whether any cached frame differs from the file.
func (s *Store) Pending() bool { return s.dirtyN > 0 }

// DirtyFrames returns the number of cached frames awaiting write-back.
func (s *Store) DirtyFrames() int { return s.dirtyN }

// slot maps an absolute position to a ring slot.
func (s *Store) slot(pos int64) int {
	i := (pos - s.origin) % int64(s.capacity)
	if i < 0 {
		i += int64(s.capacity)
	}
	return int(i)
}

func (s *Store) view(slot int) []float32 {
	base := slot * s.channels
	return s.samples[base : base+s.channels : base+s.channels]
}

// Get returns a copy of the frame stored for an absolute position. The result
// is meaningless unless pos lies within the backward or forward window.
func (s *Store) Get(pos int64) Frame {
	return Frame(s.view(s.slot(pos))).Clone()
}

// Set overwrites the slot for pos. Window counters are left untouched; callers
// adjust them after a batch of writes.
func (s *Store) Set(pos int64, f Frame) {
	copy(s.view(s.slot(pos)), f)
}

// Sample returns one channel of the frame at pos.
func (s *Store) Sample(pos int64, channel int) float32 {
	return s.samples[s.slot(pos)*s.channels+channel]
}

// SetSample overwrites one channel of the frame at pos and marks it dirty.
func (s *Store) SetSample(pos int64, channel int, v float32) {
	slot := s.slot(pos)
	s.samples[slot*s.channels+channel] = v
	s.markDirty(slot)
}

// SetDirty overwrites the whole frame at pos and marks it dirty.
func (s *Store) SetDirty(pos int64, f Frame) {
	slot := s.slot(pos)
	copy(s.view(slot), f)
	s.markDirty(slot)
}

func (s *Store) markDirty(slot int) {
	if !s.dirty[slot] {
		s.dirty[slot] = true
		s.dirtyN++
	}
}

// load copies freshly read frames into the ring starting at pos, clearing dirty flags.
func (s *Store) load(pos int64, samples []float32) {
	n := len(samples) / s.channels
	for i := range n {
		slot := s.slot(pos + int64(i))
		copy(s.view(slot), samples[i*s.channels:(i+1)*s.channels])
		if s.dirty[slot] {
			s.dirty[slot] = false
			s.dirtyN--
		}
	}
}

// Advance moves the play position by delta frames inside the cached window.
// The caller guarantees -Behind() <= delta <= Ahead().
func (s *Store) Advance(delta int) {
	s.playIndex = (s.playIndex + delta) % s.capacity
	if s.playIndex < 0 {
		s.playIndex += s.capacity
	}
	s.behind += delta
	s.ahead -= delta
}

// Discard drops both windows. Dirty frames must have been detached first.
func (s *Store) Discard() {
	s.ahead = 0
	s.behind = 0
}

// Rebase re-anchors the ring so that playIndex maps to position.
func (s *Store) Rebase(position int64) {
	s.origin = position - int64(s.playIndex)
}

// GrowAhead extends the forward window by n frames, evicting the oldest
// backward frames when the ring would overflow. It returns the absolute
// range [from, from+evicted) that left the backward window.
func (s *Store) GrowAhead(n int) (from int64, evicted int) {
	from = s.Position() - int64(s.behind)
	s.ahead += n
	if overflow := s.ahead + s.behind - s.capacity; overflow > 0 {
		s.behind -= overflow
		evicted = overflow
	}
	return from, evicted
}

// GrowBehind extends the backward window by n frames, evicting the farthest
// forward frames when the ring would overflow. It returns the absolute range
// [from, from+evicted) that left the forward window.
func (s *Store) GrowBehind(n int) (from int64, evicted int) {
	s.behind += n
	if overflow := s.ahead + s.behind - s.capacity; overflow > 0 {
		s.ahead -= overflow
		evicted = overflow
	}
	return s.Position() + int64(s.ahead), evicted
}

// detach copies dirty frames in [from, from+n) out of the ring as runs and
// clears their dirty flags.
func (s *Store) detach(from int64, n int, out []span) []span {
	if s.dirtyN == 0 {
		return out
	}
	var run *span
	for i := range n {
		pos := from + int64(i)
		slot := s.slot(pos)
		if !s.dirty[slot] {
			run = nil
			continue
		}
		s.dirty[slot] = false
		s.dirtyN--
		if run == nil {
			out = append(out, span{pos: pos})
			run = &out[len(out)-1]
		}
		run.samples = append(run.samples, s.view(slot)...)
	}
	return out
}

// detachWindow detaches every dirty frame in the backward and forward windows.
func (s *Store) detachWindow(out []span) []span {
	return s.detach(s.Position()-int64(s.behind), s.behind+s.ahead, out)
}
