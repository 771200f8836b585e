package tape

import (
	"context"
	"time"

	"github.com/tphakala/tapedeck/internal/errors"
	"github.com/tphakala/tapedeck/internal/logger"
)

// diskRetryInterval is the minimum spacing of worker cycles after a disk
// error; consumer wake-ups in between do not trigger extra I/O.
const diskRetryInterval = 100 * time.Millisecond

// refillPlan is what the worker decided to load while holding the lock.
type refillPlan struct {
	gen  uint64
	edge int64 // window edge the new frames attach to
	from int64 // first file frame to read
	n    int
}

// run is the disk worker loop. It owns every call into the Source until Close.
func (s *Streamer) run(ctx context.Context) error {
	s.log.Debug("disk worker started")
	defer s.log.Debug("disk worker stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}
		if s.failing.Load() {
			if err := s.retry.Wait(ctx); err != nil {
				return nil
			}
		}

		_ = s.flush()
		if ctx.Err() != nil {
			return nil
		}

		again := s.refillForward()
		if ctx.Err() != nil {
			return nil
		}
		again = s.refillBackward() || again

		s.broadcast()
		if again {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		}
	}
}

// broadcast releases WaitFilled callers after a worker cycle.
func (s *Streamer) broadcast() {
	s.mu.Lock()
	close(s.progress)
	s.progress = make(chan struct{})
	ahead, behind := s.store.Ahead(), s.store.Behind()
	s.mu.Unlock()

	s.rec.SetWindow(ahead, behind)
}

// flush writes queued spans and any dirty frames still in the windows back to
// the source. Frames whose write fails are dropped; the error is kept for Close.
func (s *Streamer) flush() error {
	s.mu.Lock()
	spans := s.queue
	s.queue = nil
	spans = s.store.detachWindow(spans)
	s.mu.Unlock()

	if len(spans) == 0 {
		return nil
	}

	start := time.Now()
	var firstErr error
	written := 0
	for _, sp := range spans {
		if err := s.src.WriteFramesAt(sp.samples, sp.pos); err != nil {
			if firstErr == nil {
				firstErr = s.diskError("write", sp.pos, err)
			}
			continue
		}
		written += sp.frames(s.channels)
	}
	if firstErr == nil {
		s.failing.Store(false)
	}

	s.rec.RecordFlush(written, time.Since(start).Seconds())
	s.log.Trace("flushed pending frames",
		logger.Int("frames", written),
		logger.Int("spans", len(spans)))
	return firstErr
}

// refillForward tops up the forward window. It reports whether the worker
// should run another cycle straight away.
func (s *Streamer) refillForward() bool {
	s.mu.Lock()
	if len(s.queue) > 0 {
		s.mu.Unlock()
		return true
	}
	ahead := s.store.Ahead()
	if ahead >= s.desired-s.cfg.MinRead {
		s.mu.Unlock()
		return false
	}
	edge := s.position + int64(ahead)
	p := refillPlan{gen: s.gen, edge: edge, from: edge, n: s.desired - ahead}
	s.mu.Unlock()

	buf := s.fwdScratch[:p.n*s.channels]
	clear(buf)
	start := time.Now()
	present, err := s.src.ReadFramesAt(buf, p.from)
	if err != nil {
		_ = s.diskError("read", p.from, err)
		return false
	}
	s.failing.Store(false)

	s.mu.Lock()
	if s.gen != p.gen || s.position+int64(s.store.Ahead()) != p.edge {
		s.mu.Unlock()
		return true
	}
	n := min(p.n, s.cfg.Capacity-s.store.Ahead())
	evictFrom, evicted := s.store.GrowAhead(n)
	s.queue = s.store.detach(evictFrom, evicted, s.queue)
	s.store.load(p.edge, buf[:n*s.channels])
	s.mu.Unlock()

	s.committed(Forward, p, n, present, evicted, start)
	return false
}

// refillBackward tops up the backward window with the frames just before its
// edge. Nothing is read before file frame zero.
func (s *Streamer) refillBackward() bool {
	s.mu.Lock()
	if len(s.queue) > 0 {
		s.mu.Unlock()
		return true
	}
	behind := s.store.Behind()
	edge := s.position - int64(behind)
	if behind >= s.desired-s.cfg.MinRead || edge <= 0 {
		s.mu.Unlock()
		return false
	}
	n := int(min(int64(s.desired-behind), edge))
	p := refillPlan{gen: s.gen, edge: edge, from: edge - int64(n), n: n}
	s.mu.Unlock()

	buf := s.bwdScratch[:p.n*s.channels]
	clear(buf)
	start := time.Now()
	present, err := s.src.ReadFramesAt(buf, p.from)
	if err != nil {
		_ = s.diskError("read", p.from, err)
		return false
	}
	s.failing.Store(false)

	s.mu.Lock()
	if s.gen != p.gen || s.position-int64(s.store.Behind()) != p.edge {
		s.mu.Unlock()
		return true
	}
	// Keep the frames nearest the edge if the window cannot take them all.
	n = min(p.n, s.cfg.Capacity-s.store.Behind())
	evictFrom, evicted := s.store.GrowBehind(n)
	s.queue = s.store.detach(evictFrom, evicted, s.queue)
	s.store.load(p.edge-int64(n), buf[(p.n-n)*s.channels:])
	s.mu.Unlock()

	s.committed(Backward, p, n, present, evicted, start)
	return false
}

func (s *Streamer) committed(direction string, p refillPlan, n, present, evicted int, start time.Time) {
	s.rec.RecordRefill(direction, n, time.Since(start).Seconds())
	if evicted > 0 {
		s.rec.RecordEviction(direction, evicted)
	}
	if present < p.n {
		s.log.Trace("refill ran past end of file",
			logger.String("direction", direction),
			logger.Int64("from", p.from),
			logger.Int("requested", p.n),
			logger.Int("present", present))
	}
}

// diskError records a failed Source call. Only the first failure of a streak
// is logged; the first failure overall is returned by Close.
func (s *Streamer) diskError(op string, frame int64, err error) error {
	enhanced := errors.New(err).
		Component("tape").
		Category(errors.CategoryWorker).
		Context("operation", op).
		Context("frame", frame).
		Build()

	s.rec.RecordDiskError(op)

	s.mu.Lock()
	if s.firstErr == nil {
		s.firstErr = enhanced
	}
	s.mu.Unlock()

	if !s.failing.Swap(true) {
		s.log.Error("tape disk I/O failed",
			logger.String("operation", op),
			logger.Int64("frame", frame),
			logger.Error(err))
	}
	return enhanced
}
