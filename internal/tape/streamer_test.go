package tape

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/tapedeck/internal/testutil"
)

func TestOpenValidatesInput(t *testing.T) {
	t.Parallel()

	_, err := Open(t.Context(), nil)
	require.ErrorIs(t, err, ErrNilSource)

	_, err = Open(t.Context(), newRampSource(10, 2),
		WithConfig(Config{Capacity: 100, Headroom: 10, MinRead: 60}))
	require.Error(t, err, "desired window must exceed min read")
}

func TestEndToEndFillAndRead(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		headroom int
		desired  int
	}{
		{"headroom 32", 32, 468},
		{"headroom 64", 64, 436},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := newRampSource(2000, 4)
			cfg := Config{Capacity: 1000, Headroom: tt.headroom, MinRead: 100}
			s, err := Open(t.Context(), src, WithConfig(cfg), WithLogger(quietLogger()))
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, s.Close()) })

			s.SeekAbsolute(0)

			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()
			require.NoError(t, s.WaitFilled(ctx, tt.desired, 0))

			st := s.Stats()
			assert.Equal(t, tt.desired, st.Ahead)
			assert.Zero(t, st.Behind)
			assert.LessOrEqual(t, st.Ahead+st.Behind, cfg.Capacity)

			frames := s.ReadForwardAllChannels(100)
			require.Len(t, frames, 100)
			for i, f := range frames {
				require.Len(t, f, 4)
				for ch := range 4 {
					assert.InDelta(t, rampValue(int64(i), ch), f[ch], 0)
				}
			}
			assert.Equal(t, int64(100), s.Position())
		})
	}
}

func TestSeekWithinWindowDoesNotTouchDisk(t *testing.T) {
	t.Parallel()

	src := newRampSource(2000, 2)
	s := newIdleStreamer(t, testConfig(), src)
	s.SeekAbsolute(0)
	cycle(s)
	require.Equal(t, 468, s.Stats().Ahead)
	reads := src.readCount()

	// Pretend the forward window holds exactly 100 frames.
	s.store.ahead = 100
	s.SeekRelative(50)

	st := s.Stats()
	assert.Equal(t, 50, st.Ahead)
	assert.Equal(t, 50, st.Behind)
	assert.Zero(t, st.Generation)
	assert.Equal(t, reads, src.readCount())
	checkInvariants(t, s)
}

func TestSeekOutsideWindowDiscards(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		start  int64
		target int64
	}{
		{"forward past ahead", 0, 469},
		{"backward past behind", 1000, 1000 - 469},
		{"far jump", 0, 1_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newIdleStreamer(t, testConfig(), newRampSource(2000, 1))
			s.SeekAbsolute(tt.start)
			settle(t, s)
			require.Positive(t, s.Stats().Ahead)
			gen := s.Stats().Generation

			s.SeekAbsolute(tt.target)

			st := s.Stats()
			assert.Zero(t, st.Ahead)
			assert.Zero(t, st.Behind)
			assert.Equal(t, tt.target, st.Position)
			assert.Equal(t, gen+1, st.Generation)
			checkInvariants(t, s)
		})
	}
}

func TestSeekWindowBoundaries(t *testing.T) {
	t.Parallel()

	s := newIdleStreamer(t, testConfig(), newRampSource(2000, 1))
	s.SeekAbsolute(1000)
	settle(t, s)
	gen := s.Stats().Generation

	s.SeekRelative(468)
	st := s.Stats()
	assert.Zero(t, st.Ahead)
	assert.Equal(t, 936, st.Behind)
	assert.Equal(t, gen, st.Generation, "seek to the forward edge is cached")

	s.SeekRelative(-936)
	st = s.Stats()
	assert.Equal(t, 936, st.Ahead)
	assert.Zero(t, st.Behind)
	assert.Equal(t, gen, st.Generation, "seek to the backward edge is cached")
	checkInvariants(t, s)
}

func TestSeekClampsAtZero(t *testing.T) {
	t.Parallel()

	s := newIdleStreamer(t, testConfig(), newRampSource(100, 1))
	s.SeekAbsolute(-25)
	assert.Equal(t, int64(0), s.Position())

	s.SeekAbsolute(10)
	s.SeekRelative(-50)
	assert.Equal(t, int64(0), s.Position())

	s.GoTo(-1)
	assert.Equal(t, int64(0), s.Position())
	checkInvariants(t, s)
}

func TestSeekSaturatesAtMaxPosition(t *testing.T) {
	t.Parallel()

	s := newIdleStreamer(t, testConfig(), newRampSource(100, 1))
	s.SeekAbsolute(10)
	s.SeekRelative(math.MaxInt64)
	assert.Equal(t, MaxPosition, s.Position(), "overflowing relative seek must not wrap to zero")
	checkInvariants(t, s)

	s.SeekAbsolute(math.MaxInt64)
	assert.Equal(t, MaxPosition, s.Position())

	s.SeekRelative(-MaxPosition - 5)
	assert.Equal(t, int64(0), s.Position())
	checkInvariants(t, s)
}

func TestReadConsumesPosition(t *testing.T) {
	t.Parallel()

	s := newIdleStreamer(t, testConfig(), newRampSource(2000, 2))
	s.SeekAbsolute(0)
	cycle(s)

	first := s.ReadForward(100, 1)
	second := s.ReadForward(100, 1)
	require.Len(t, first, 100)
	require.Len(t, second, 100)
	for i := range 100 {
		assert.InDelta(t, rampValue(int64(i), 1), first[i], 0)
		assert.InDelta(t, rampValue(int64(100+i), 1), second[i], 0)
	}
	assert.Equal(t, int64(200), s.Position())
	checkInvariants(t, s)
}

func TestShortReadReturnsAvailable(t *testing.T) {
	t.Parallel()

	s := newIdleStreamer(t, testConfig(), newRampSource(2000, 2))

	assert.Empty(t, s.ReadForward(10, 0), "nothing cached before the first refill")
	assert.Empty(t, s.ReadBackward(10, 0))

	cycle(s)
	assert.Len(t, s.ReadForward(1000, 0), 468)
	assert.Len(t, s.ReadBackwardAllChannels(1000), 468)
	assert.Equal(t, int64(0), s.Position())
}

func TestReadBackwardOrdering(t *testing.T) {
	t.Parallel()

	s := newIdleStreamer(t, testConfig(), newRampSource(2000, 3))
	s.SeekAbsolute(500)
	settle(t, s)

	got := s.ReadBackward(3, 2)
	assert.Equal(t, []float32{rampValue(499, 2), rampValue(498, 2), rampValue(497, 2)}, got)
	assert.Equal(t, int64(497), s.Position())

	frames := s.ReadBackwardAllChannels(2)
	require.Len(t, frames, 2)
	assert.Equal(t, Frame{rampValue(496, 0), rampValue(496, 1), rampValue(496, 2)}, frames[0])
	assert.Equal(t, Frame{rampValue(495, 0), rampValue(495, 1), rampValue(495, 2)}, frames[1])

	// Reading forward again returns the same frames in file order.
	fwd := s.ReadForward(5, 0)
	assert.Equal(t, []float32{495, 496, 497, 498, 499}, fwd)
}

func TestInvalidChannel(t *testing.T) {
	t.Parallel()

	s := newIdleStreamer(t, testConfig(), newRampSource(2000, 2))
	cycle(s)

	assert.Nil(t, s.ReadForward(10, 2))
	assert.Nil(t, s.ReadBackward(10, -1))
	assert.Equal(t, 3, s.WriteForward([]float32{1, 2, 3}, 5))
	assert.Equal(t, int64(0), s.Position(), "invalid channel must not move the transport")
}

func TestChannelsAreZeroBased(t *testing.T) {
	t.Parallel()

	s := newIdleStreamer(t, testConfig(), newRampSource(2000, 2))
	cycle(s)

	assert.Equal(t, []float32{rampValue(0, 0)}, s.ReadForward(1, 0), "channel 0 is the first track")
	assert.Equal(t, []float32{rampValue(1, 1)}, s.ReadForward(1, 1), "channel 1 is the second track")
	assert.Nil(t, s.ReadForward(1, 2), "channel equal to the track count is out of range")
	assert.Equal(t, 1, s.WriteBackward([]float32{9}, 2))
	assert.Equal(t, int64(2), s.Position())

	require.Zero(t, s.WriteBackward([]float32{-7}, 1))
	assert.Equal(t, Frame{rampValue(1, 0), -7}, s.ReadForwardAllChannels(1)[0])
}

func TestZeroFillPastEOF(t *testing.T) {
	t.Parallel()

	s := newIdleStreamer(t, testConfig(), newRampSource(2000, 2))
	s.SeekAbsolute(1990)
	settle(t, s)

	got := s.ReadForward(20, 1)
	require.Len(t, got, 20)
	for i := range 10 {
		assert.InDelta(t, rampValue(int64(1990+i), 1), got[i], 0)
	}
	for i := 10; i < 20; i++ {
		assert.Zero(t, got[i], "frame %d past EOF", 1990+i)
	}
}

func TestBackwardRefill(t *testing.T) {
	t.Parallel()

	t.Run("full window", func(t *testing.T) {
		t.Parallel()
		s := newIdleStreamer(t, testConfig(), newRampSource(2000, 1))
		s.SeekAbsolute(1000)
		cycle(s)

		st := s.Stats()
		assert.Equal(t, 468, st.Ahead)
		assert.Equal(t, 468, st.Behind)

		got := s.ReadBackward(468, 0)
		require.Len(t, got, 468)
		for i, v := range got {
			assert.InDelta(t, rampValue(int64(999-i), 0), v, 0)
		}
	})

	t.Run("clipped at file start", func(t *testing.T) {
		t.Parallel()
		s := newIdleStreamer(t, testConfig(), newRampSource(2000, 1))
		s.SeekAbsolute(100)
		settle(t, s)

		assert.Equal(t, 100, s.Stats().Behind)
		got := s.ReadBackward(200, 0)
		require.Len(t, got, 100)
		assert.InDelta(t, rampValue(0, 0), got[99], 0)
	})
}

func TestRefillEvictsOppositeWindow(t *testing.T) {
	t.Parallel()

	s := newIdleStreamer(t, testConfig(), newRampSource(4000, 1))
	s.SeekAbsolute(1000)
	cycle(s)

	// Consume past the low-water mark; the forward refill overflows the ring.
	require.Len(t, s.ReadForward(200, 0), 200)
	cycle(s)

	st := s.Stats()
	assert.Equal(t, 468, st.Ahead)
	assert.Equal(t, 532, st.Behind)
	assert.Equal(t, 1000, st.Ahead+st.Behind)
	checkInvariants(t, s)

	got := s.ReadBackward(1000, 0)
	require.Len(t, got, 532)
	for i, v := range got {
		assert.InDelta(t, rampValue(int64(1199-i), 0), v, 0)
	}
}

func TestStaleRefillIsDropped(t *testing.T) {
	t.Parallel()

	src := newRampSource(2000, 1)
	src.gate = make(chan struct{})
	src.entered = make(chan struct{}, 1)
	s := newIdleStreamer(t, testConfig(), src)

	result := make(chan bool)
	go func() { result <- s.refillForward() }()

	<-src.entered
	s.SeekAbsolute(1500)
	close(src.gate)

	assert.True(t, <-result, "stale refill asks for another cycle")
	st := s.Stats()
	assert.Zero(t, st.Ahead, "read planned before the seek must not be committed")
	assert.Equal(t, int64(1500), st.Position)
}

func TestWriteForwardAndFlush(t *testing.T) {
	t.Parallel()

	src := newRampSource(2000, 2)
	s := newIdleStreamer(t, testConfig(), src)
	cycle(s)

	unwritten := s.WriteForward([]float32{-1, -2, -3}, 1)
	assert.Zero(t, unwritten)
	assert.Equal(t, int64(3), s.Position())
	assert.Equal(t, 3, s.Stats().DirtyFrames)

	// Written samples are visible to reads before they reach the file.
	s.SeekAbsolute(0)
	assert.Equal(t, []float32{-1, -2, -3}, s.ReadForward(3, 1))
	assert.InDelta(t, rampValue(0, 1), src.sample(0, 1), 0)

	require.NoError(t, s.flush())
	assert.Zero(t, s.Stats().DirtyFrames)
	for i, want := range []float32{-1, -2, -3} {
		assert.InDelta(t, want, src.sample(int64(i), 1), 0)
		assert.InDelta(t, rampValue(int64(i), 0), src.sample(int64(i), 0), 0, "other channel untouched")
	}
}

func TestWriteReportsUnwritten(t *testing.T) {
	t.Parallel()

	s := newIdleStreamer(t, testConfig(), newRampSource(2000, 1))
	cycle(s)

	data := make([]float32, 500)
	assert.Equal(t, 32, s.WriteForward(data, 0))
	assert.Equal(t, int64(468), s.Position())

	assert.Equal(t, 0, s.WriteBackward(make([]float32, 10), 0))
	assert.Equal(t, int64(458), s.Position())

	assert.Zero(t, s.WriteForward(nil, 0))
}

func TestWriteBackwardOrdering(t *testing.T) {
	t.Parallel()

	src := newRampSource(2000, 1)
	s := newIdleStreamer(t, testConfig(), src)
	s.SeekAbsolute(10)
	settle(t, s)

	assert.Zero(t, s.WriteBackward([]float32{90, 80}, 0))
	assert.Equal(t, int64(8), s.Position())
	require.NoError(t, s.flush())

	assert.InDelta(t, 80, src.sample(8, 0), 0)
	assert.InDelta(t, 90, src.sample(9, 0), 0)
	assert.InDelta(t, 7, src.sample(7, 0), 0)
}

func TestWriteAllChannels(t *testing.T) {
	t.Parallel()

	src := newRampSource(2000, 2)
	s := newIdleStreamer(t, testConfig(), src)
	s.SeekAbsolute(100)
	settle(t, s)

	unwritten := s.WriteForwardAllChannels([]Frame{{1, 1}, {2, 2}, {3}, {4, 4}})
	assert.Equal(t, 2, unwritten, "malformed frame stops the write")
	assert.Equal(t, int64(102), s.Position())

	unwritten = s.WriteBackwardAllChannels([]Frame{{7, 7}})
	assert.Zero(t, unwritten)
	assert.Equal(t, int64(101), s.Position())

	require.NoError(t, s.flush())
	assert.InDelta(t, 1, src.sample(100, 0), 0)
	assert.InDelta(t, 7, src.sample(101, 1), 0)
}

func TestDirtyFramesSurviveDiscardingSeek(t *testing.T) {
	t.Parallel()

	src := newRampSource(2000, 1)
	s := newIdleStreamer(t, testConfig(), src)
	cycle(s)

	s.SeekAbsolute(40)
	require.Zero(t, s.WriteForward([]float32{-40, -41, -42}, 0))
	s.SeekAbsolute(1800)

	st := s.Stats()
	assert.Equal(t, 3, st.QueuedFrames)
	assert.Zero(t, st.DirtyFrames)

	// The queue blocks refills until it is written back.
	assert.True(t, s.refillForward())
	assert.Zero(t, s.Stats().Ahead)

	settle(t, s)
	assert.InDelta(t, -40, src.sample(40, 0), 0)
	assert.InDelta(t, -42, src.sample(42, 0), 0)
	assert.InDelta(t, 43, src.sample(43, 0), 0)

	// Seeking back reloads the overdubbed frames from the file.
	s.SeekAbsolute(40)
	settle(t, s)
	assert.Equal(t, []float32{-40, -41, -42, 43}, s.ReadForward(4, 0))
}

func TestEvictedDirtyFramesAreFlushed(t *testing.T) {
	t.Parallel()

	src := newRampSource(4000, 1)
	s := newIdleStreamer(t, testConfig(), src)
	s.SeekAbsolute(1000)
	settle(t, s)

	// Overdub the oldest backward frame, then play forward so the refill evicts it.
	s.SeekAbsolute(532)
	require.Zero(t, s.WriteForward([]float32{-532}, 0))
	s.SeekAbsolute(1200)
	require.Equal(t, 1, s.Stats().DirtyFrames, "still dirty, in the backward window")

	_ = s.refillForward()
	assert.Equal(t, 1, s.Stats().QueuedFrames)
	settle(t, s)
	assert.InDelta(t, -532, src.sample(532, 0), 0)
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	t.Parallel()

	const fileFrames = 3000
	src := newRampSource(fileFrames, 2)
	s := newIdleStreamer(t, testConfig(), src)

	// model mirrors what the file must contain once everything is flushed.
	// Reads can carry the transport well past EOF, so leave generous room.
	model := make([]float32, (fileFrames+200_000)*2)
	copy(model, src.data)

	rng := rand.New(rand.NewPCG(1, 2))
	for step := range 2000 {
		switch rng.IntN(7) {
		case 0:
			s.SeekAbsolute(rng.Int64N(fileFrames+200) - 100)
		case 1:
			s.SeekRelative(rng.Int64N(1200) - 600)
		case 2:
			s.ReadForward(rng.IntN(300), rng.IntN(2))
		case 3:
			s.ReadBackwardAllChannels(rng.IntN(300))
		case 4:
			ch := rng.IntN(2)
			pos := s.Position()
			data := make([]float32, rng.IntN(50))
			for i := range data {
				data[i] = -float32(step*100 + i)
			}
			n := len(data) - s.WriteForward(data, ch)
			for i := range n {
				model[(pos+int64(i))*2+int64(ch)] = data[i]
			}
		case 5:
			pos := s.Position()
			data := make([]float32, rng.IntN(50))
			for i := range data {
				data[i] = float32(step*100 + i)
			}
			n := len(data) - s.WriteBackward(data, 0)
			for i := range n {
				model[(pos-1-int64(i))*2] = data[i]
			}
		default:
			cycle(s)
		}

		checkInvariants(t, s)
		s.mu.Lock()
		for p := s.position - int64(s.store.Behind()); p < s.position+int64(s.store.Ahead()); p++ {
			for ch := range 2 {
				if want, got := model[p*2+int64(ch)], s.store.Sample(p, ch); want != got {
					s.mu.Unlock()
					require.Failf(t, "cached frame diverged", "step %d frame %d channel %d: want %v got %v",
						step, p, ch, want, got)
				}
			}
		}
		s.mu.Unlock()
	}

	require.NoError(t, s.flush())
	for i := range len(src.data) {
		if model[i] != src.data[i] {
			require.Failf(t, "file diverged", "sample %d: want %v got %v", i, model[i], src.data[i])
		}
	}
}

func TestDiskErrorsAreReportedOnce(t *testing.T) {
	t.Parallel()

	readErr := errors.New("device unplugged")
	src := newRampSource(2000, 1)
	src.readErr = readErr

	var logBuf syncBuffer
	s, err := newStreamer(src, WithConfig(testConfig()), WithLogger(bufferLogger(&logBuf)))
	require.NoError(t, err)

	for range 3 {
		assert.False(t, s.refillForward(), "failed read must not spin")
	}
	assert.Equal(t, 3, src.readCount())
	assert.Equal(t, 1, logBuf.count("tape disk I/O failed"))
	assert.Zero(t, s.Stats().Ahead)

	s.mu.Lock()
	first := s.firstErr
	s.mu.Unlock()
	require.ErrorIs(t, first, readErr)
}

func TestFailingDiskRetriesArePaced(t *testing.T) {
	t.Parallel()

	readErr := errors.New("input/output error")
	src := newRampSource(2000, 1)
	src.readErr = readErr

	s, err := Open(t.Context(), src, WithConfig(testConfig()), WithLogger(quietLogger()))
	require.NoError(t, err)

	const window = 200 * time.Millisecond
	deadline := time.Now().Add(window)
	wakes := 0
	for time.Now().Before(deadline) {
		assert.Empty(t, s.ReadForward(64, 0))
		wakes++
		time.Sleep(time.Millisecond)
	}
	require.ErrorIs(t, s.Close(), readErr)

	// One read on open, one on the limiter's burst, then one per interval.
	limit := 2 + int(window/diskRetryInterval) + 2
	assert.GreaterOrEqual(t, src.readCount(), 2, "worker keeps retrying")
	assert.LessOrEqual(t, src.readCount(), limit, "%d consumer reads must not each trigger disk I/O", wakes)
}

func TestCloseFlushesAndRejectsWrites(t *testing.T) {
	t.Parallel()

	src := newRampSource(2000, 1)
	s, err := Open(t.Context(), src, WithConfig(testConfig()), WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.WaitFilled(ctx, 468, 0))

	// The worker may flush concurrently; Close guarantees the rest.
	require.Zero(t, s.WriteForward([]float32{-1, -2}, 0))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "Close is idempotent")

	assert.InDelta(t, -1, src.sample(0, 0), 0)
	assert.InDelta(t, -2, src.sample(1, 0), 0)

	assert.Equal(t, 2, s.WriteForward([]float32{5, 6}, 0))
	assert.Equal(t, 1, s.WriteBackwardAllChannels([]Frame{{1}}))
	assert.Equal(t, []float32{-2}, s.ReadBackward(1, 0), "cache stays readable after Close")

	require.ErrorIs(t, s.WaitFilled(t.Context(), 10_000, 0), ErrClosed)
}

func TestCloseReturnsWriteError(t *testing.T) {
	t.Parallel()

	writeErr := errors.New("disk full")
	src := newRampSource(2000, 1)
	src.writeErr = writeErr

	s, err := Open(t.Context(), src, WithConfig(testConfig()), WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.WaitFilled(ctx, 1, 0))
	require.Zero(t, s.WriteForward([]float32{1}, 0))

	err = s.Close()
	require.ErrorIs(t, err, writeErr)
	assert.Positive(t, src.writeCount())
}

func TestWaitFilledHonoursContext(t *testing.T) {
	t.Parallel()

	src := newRampSource(2000, 1)
	s, err := Open(t.Context(), src, WithConfig(testConfig()), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	err = s.WaitFilled(ctx, 469, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerStopsWithParentContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	s, err := Open(ctx, newRampSource(2000, 1), WithConfig(testConfig()), WithLogger(quietLogger()))
	require.NoError(t, err)

	cancel()
	testutil.WaitForChannel(t, s.done, testutil.DefaultTestTimeout, "worker did not stop")
	require.NoError(t, s.Close())
}

func TestConcurrentPlayback(t *testing.T) {
	t.Parallel()

	const total = 6000
	src := newRampSource(total+1000, 2)
	s, err := Open(t.Context(), src, WithConfig(testConfig()), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	got := make([]float32, 0, total)
	wg.Go(func() {
		for len(got) < total {
			block := s.ReadForward(min(64, total-len(got)), 1)
			got = append(got, block...)
			if len(block) == 0 {
				if err := s.WaitFilled(ctx, 64, 0); err != nil {
					return
				}
			}
		}
	})
	wg.Wait()

	require.Len(t, got, total)
	for i, v := range got {
		require.InDelta(t, rampValue(int64(i), 1), v, 0, "frame %d", i)
	}
	checkInvariants(t, s)
}

type countingRecorder struct {
	nopRecorder
	mu        sync.Mutex
	seeks     map[string]int
	shortRead int
	read      int
}

func (r *countingRecorder) RecordSeek(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeks[path]++
}

func (r *countingRecorder) RecordFramesRead(_ string, frames int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.read += frames
}

func (r *countingRecorder) RecordShortRead(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shortRead++
}

func TestRecorderReceivesTransportEvents(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{seeks: map[string]int{}}
	s, err := newStreamer(newRampSource(2000, 1), WithConfig(testConfig()),
		WithLogger(quietLogger()), WithRecorder(rec))
	require.NoError(t, err)
	cycle(s)

	s.SeekRelative(10)
	s.SeekAbsolute(1500)
	s.ReadForward(5, 0)

	assert.Equal(t, 1, rec.seeks[SeekCached])
	assert.Equal(t, 1, rec.seeks[SeekDiscarded])
	assert.Equal(t, 1, rec.shortRead)
	assert.Zero(t, rec.read)
}

// probingRecorder reads the transport from inside its callbacks, which only
// works when the streamer has released its lock.
type probingRecorder struct {
	nopRecorder
	s         *Streamer
	positions []int64
}

func (r *probingRecorder) RecordSeek(string) { r.positions = append(r.positions, r.s.Position()) }
func (r *probingRecorder) RecordFramesRead(string, int) {
	r.positions = append(r.positions, r.s.Position())
}
func (r *probingRecorder) RecordFramesWritten(string, int) {
	r.positions = append(r.positions, r.s.Position())
}

func TestRecorderCalledOutsideLock(t *testing.T) {
	t.Parallel()

	rec := &probingRecorder{}
	s, err := newStreamer(newRampSource(2000, 1), WithConfig(testConfig()),
		WithLogger(quietLogger()), WithRecorder(rec))
	require.NoError(t, err)
	rec.s = s
	cycle(s)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.SeekAbsolute(10)
		s.ReadForward(5, 0)
		s.WriteForward([]float32{1}, 0)
	}()
	testutil.WaitForChannel(t, done, testutil.DefaultTestTimeout, "recorder callback deadlocked on the ring lock")
	assert.Equal(t, []int64{10, 15, 16}, rec.positions)
}
