package tape

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tphakala/tapedeck/internal/errors"
	"github.com/tphakala/tapedeck/internal/logger"
)

// Streamer is a tape transport over a Source. Seeks, reads and writes are
// served from the ring and never touch the file; a background worker keeps
// both windows populated and writes overdubbed frames back.
//
// All methods are safe for concurrent use.
type Streamer struct {
	mu       sync.Mutex
	store    *Store
	position int64
	gen      uint64 // bumped whenever the cached windows are discarded
	queue    []span // detached dirty frames awaiting write-back
	closed   bool
	firstErr error
	progress chan struct{} // closed and replaced after every worker cycle

	src      Source
	cfg      Config
	desired  int
	channels int
	log      logger.Logger
	rec      Recorder

	wake    chan struct{}
	done    chan struct{}
	failing atomic.Bool
	retry   *rate.Limiter // paces worker cycles while the disk is failing

	// worker-only scratch slabs
	fwdScratch []float32
	bwdScratch []float32

	cancel    context.CancelFunc
	group     *errgroup.Group
	closeOnce sync.Once
	closeErr  error
}

// Option configures a Streamer at Open.
type Option func(*Streamer)

// WithConfig sets the ring geometry.
func WithConfig(cfg Config) Option {
	return func(s *Streamer) { s.cfg = cfg }
}

// WithLogger sets the logger used by the worker.
func WithLogger(log logger.Logger) Option {
	return func(s *Streamer) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(s *Streamer) {
		if rec != nil {
			s.rec = rec
		}
	}
}

// Stats is a snapshot of the transport state.
type Stats struct {
	Position     int64
	Ahead        int
	Behind       int
	PlayIndex    int
	Origin       int64
	DirtyFrames  int
	QueuedFrames int
	Generation   uint64
}

// Open creates the ring and starts the disk worker. The worker stops when ctx
// is cancelled or Close is called; Close must be called in either case to
// flush pending writes.
func Open(ctx context.Context, src Source, opts ...Option) (*Streamer, error) {
	s, err := newStreamer(src, opts...)
	if err != nil {
		return nil, err
	}

	workerCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(workerCtx)
	s.cancel = cancel
	s.group = group

	group.Go(func() error {
		defer close(s.done)
		return s.run(groupCtx)
	})
	s.signal()

	s.log.Debug("tape streamer opened",
		logger.Int("capacity", s.cfg.Capacity),
		logger.Int("headroom", s.cfg.Headroom),
		logger.Int("min_read", s.cfg.MinRead),
		logger.Int("channels", s.channels))

	return s, nil
}

// newStreamer builds a streamer without starting its worker.
func newStreamer(src Source, opts ...Option) (*Streamer, error) {
	if src == nil {
		return nil, ErrNilSource
	}

	s := &Streamer{
		src:      src,
		cfg:      DefaultConfig(),
		rec:      nopRecorder{},
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		progress: make(chan struct{}),
		retry:    rate.NewLimiter(rate.Every(diskRetryInterval), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = GetLogger()
	}

	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := NewStore(s.cfg.Capacity, src.Channels())
	if err != nil {
		return nil, err
	}

	s.store = store
	s.channels = src.Channels()
	s.desired = s.cfg.DesiredWindow()
	s.fwdScratch = make([]float32, s.desired*s.channels)
	s.bwdScratch = make([]float32, s.desired*s.channels)
	return s, nil
}

// Close stops the worker, writes back every pending frame and returns the
// first disk error seen during the streamer's lifetime. Writes are rejected
// once Close has started; cached frames can still be read.
func (s *Streamer) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		waitErr := s.group.Wait()

		_ = s.flush()
		if syncer, ok := s.src.(interface{ Sync() error }); ok {
			if err := syncer.Sync(); err != nil {
				_ = s.diskError("sync", 0, err)
			}
		}

		s.mu.Lock()
		s.closeErr = errors.Join(waitErr, s.firstErr)
		s.mu.Unlock()

		s.log.Debug("tape streamer closed", logger.Bool("failed", s.closeErr != nil))
	})
	return s.closeErr
}

// Channels returns the number of samples per frame.
func (s *Streamer) Channels() int { return s.channels }

// Config returns the ring geometry the streamer was opened with.
func (s *Streamer) Config() Config { return s.cfg }

// Position returns the absolute play position.
func (s *Streamer) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Stats returns a consistent snapshot of the transport state.
func (s *Streamer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	queued := 0
	for _, sp := range s.queue {
		queued += sp.frames(s.channels)
	}
	return Stats{
		Position:     s.position,
		Ahead:        s.store.Ahead(),
		Behind:       s.store.Behind(),
		PlayIndex:    s.store.PlayIndex(),
		Origin:       s.store.Origin(),
		DirtyFrames:  s.store.DirtyFrames(),
		QueuedFrames: queued,
		Generation:   s.gen,
	}
}

// WaitFilled blocks until at least ahead frames are cached forward and behind
// frames backward, or ctx ends. Requests beyond what the worker will ever
// load (more than the desired window, or more backward frames than precede
// the position) only return when ctx ends. Not for real-time callers.
func (s *Streamer) WaitFilled(ctx context.Context, ahead, behind int) error {
	for {
		s.mu.Lock()
		filled := s.store.Ahead() >= ahead && s.store.Behind() >= behind
		progress := s.progress
		s.mu.Unlock()
		if filled {
			return nil
		}

		s.signal()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return ErrClosed
		case <-progress:
		}
	}
}

// SeekAbsolute moves the play position to pos, clamped to [0, MaxPosition]. A target
// inside the cached windows just moves the cursor; anything else discards
// the cache and lets the worker repopulate it.
func (s *Streamer) SeekAbsolute(pos int64) {
	s.mu.Lock()
	path := s.seekLocked(pos)
	s.mu.Unlock()

	s.rec.RecordSeek(path)
	s.signal()
}

// SeekRelative moves the play position by delta frames.
func (s *Streamer) SeekRelative(delta int64) {
	s.mu.Lock()
	target := s.position + delta
	if delta > 0 && target < s.position {
		target = MaxPosition
	}
	path := s.seekLocked(target)
	s.mu.Unlock()

	s.rec.RecordSeek(path)
	s.signal()
}

// GoTo is an alias for SeekAbsolute.
func (s *Streamer) GoTo(pos int64) {
	s.SeekAbsolute(pos)
}

func (s *Streamer) seekLocked(pos int64) string {
	pos = min(max(pos, 0), MaxPosition)
	delta := pos - s.position

	path := SeekCached
	if delta >= -int64(s.store.Behind()) && delta <= int64(s.store.Ahead()) {
		s.store.Advance(int(delta))
	} else {
		s.queue = s.store.detachWindow(s.queue)
		s.store.Discard()
		s.gen++
		path = SeekDiscarded
	}

	s.store.Rebase(pos)
	s.position = pos
	return path
}

// moveLocked shifts the cursor within the cached windows.
func (s *Streamer) moveLocked(delta int) {
	s.store.Advance(delta)
	s.position += int64(delta)
	s.store.Rebase(s.position)
}

func (s *Streamer) validChannel(channel int) bool {
	return channel >= 0 && channel < s.channels
}

// ReadForward returns up to maxFrames samples of one channel starting at the
// play position and advances past them. Fewer samples than requested means
// the forward window ran short.
func (s *Streamer) ReadForward(maxFrames, channel int) []float32 {
	if maxFrames <= 0 || !s.validChannel(channel) {
		return nil
	}
	out := make([]float32, 0, min(maxFrames, s.cfg.Capacity))

	s.mu.Lock()
	n := min(maxFrames, s.store.Ahead())
	for i := range n {
		out = append(out, s.store.Sample(s.position+int64(i), channel))
	}
	s.moveLocked(n)
	s.mu.Unlock()

	s.afterRead(Forward, n, maxFrames)
	return out
}

// ReadForwardAllChannels is ReadForward returning whole frames.
func (s *Streamer) ReadForwardAllChannels(maxFrames int) []Frame {
	if maxFrames <= 0 {
		return nil
	}
	slab := make([]float32, min(maxFrames, s.cfg.Capacity)*s.channels)

	s.mu.Lock()
	n := min(maxFrames, s.store.Ahead())
	frames := splitFrames(slab, n, s.channels)
	for i := range n {
		copy(frames[i], s.store.view(s.store.slot(s.position+int64(i))))
	}
	s.moveLocked(n)
	s.mu.Unlock()

	s.afterRead(Forward, n, maxFrames)
	return frames
}

// ReadBackward returns up to maxFrames samples of one channel walking back
// from the play position: result[0] is the frame just before it. The play
// position moves back by the number returned.
func (s *Streamer) ReadBackward(maxFrames, channel int) []float32 {
	if maxFrames <= 0 || !s.validChannel(channel) {
		return nil
	}
	out := make([]float32, 0, min(maxFrames, s.cfg.Capacity))

	s.mu.Lock()
	n := min(maxFrames, s.store.Behind())
	for i := range n {
		out = append(out, s.store.Sample(s.position-1-int64(i), channel))
	}
	s.moveLocked(-n)
	s.mu.Unlock()

	s.afterRead(Backward, n, maxFrames)
	return out
}

// ReadBackwardAllChannels is ReadBackward returning whole frames.
func (s *Streamer) ReadBackwardAllChannels(maxFrames int) []Frame {
	if maxFrames <= 0 {
		return nil
	}
	slab := make([]float32, min(maxFrames, s.cfg.Capacity)*s.channels)

	s.mu.Lock()
	n := min(maxFrames, s.store.Behind())
	frames := splitFrames(slab, n, s.channels)
	for i := range n {
		copy(frames[i], s.store.view(s.store.slot(s.position-1-int64(i))))
	}
	s.moveLocked(-n)
	s.mu.Unlock()

	s.afterRead(Backward, n, maxFrames)
	return frames
}

func (s *Streamer) afterRead(direction string, got, want int) {
	s.rec.RecordFramesRead(direction, got)
	if got < want {
		s.rec.RecordShortRead(direction)
	}
	s.signal()
}

// WriteForward overwrites one channel of the cached frames at and after the
// play position and advances past them. It returns how many samples did not
// fit in the forward window; after Close everything is reported unwritten.
func (s *Streamer) WriteForward(data []float32, channel int) int {
	if len(data) == 0 {
		return 0
	}
	if !s.validChannel(channel) {
		return len(data)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return len(data)
	}
	n := min(len(data), s.store.Ahead())
	for i := range n {
		s.store.SetSample(s.position+int64(i), channel, data[i])
	}
	s.moveLocked(n)
	s.mu.Unlock()

	s.afterWrite(Forward, n)
	return len(data) - n
}

// WriteBackward overwrites one channel walking back from the play position:
// data[0] lands on the frame just before it. The play position moves back by
// the number written.
func (s *Streamer) WriteBackward(data []float32, channel int) int {
	if len(data) == 0 {
		return 0
	}
	if !s.validChannel(channel) {
		return len(data)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return len(data)
	}
	n := min(len(data), s.store.Behind())
	for i := range n {
		s.store.SetSample(s.position-1-int64(i), channel, data[i])
	}
	s.moveLocked(-n)
	s.mu.Unlock()

	s.afterWrite(Backward, n)
	return len(data) - n
}

// WriteForwardAllChannels is WriteForward for whole frames. A frame whose
// width differs from the channel count stops the write; it and every frame
// after it are reported unwritten.
func (s *Streamer) WriteForwardAllChannels(frames []Frame) int {
	if len(frames) == 0 {
		return 0
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return len(frames)
	}
	n := s.fittingFrames(frames, s.store.Ahead())
	for i := range n {
		s.store.SetDirty(s.position+int64(i), frames[i])
	}
	s.moveLocked(n)
	s.mu.Unlock()

	s.afterWrite(Forward, n)
	return len(frames) - n
}

// WriteBackwardAllChannels is WriteBackward for whole frames.
func (s *Streamer) WriteBackwardAllChannels(frames []Frame) int {
	if len(frames) == 0 {
		return 0
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return len(frames)
	}
	n := s.fittingFrames(frames, s.store.Behind())
	for i := range n {
		s.store.SetDirty(s.position-1-int64(i), frames[i])
	}
	s.moveLocked(-n)
	s.mu.Unlock()

	s.afterWrite(Backward, n)
	return len(frames) - n
}

func (s *Streamer) fittingFrames(frames []Frame, window int) int {
	n := min(len(frames), window)
	for i := range n {
		if len(frames[i]) != s.channels {
			return i
		}
	}
	return n
}

func (s *Streamer) afterWrite(direction string, frames int) {
	s.rec.RecordFramesWritten(direction, frames)
	s.signal()
}

// signal wakes the worker without blocking.
func (s *Streamer) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
