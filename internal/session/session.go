// Package session ties a backing tape file to a running Streamer and owns the
// running signal shared by everything driving the transport.
package session

import (
	"context"
	"io/fs"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/tphakala/tapedeck/internal/audiofile"
	"github.com/tphakala/tapedeck/internal/conf"
	"github.com/tphakala/tapedeck/internal/errors"
	"github.com/tphakala/tapedeck/internal/logger"
	"github.com/tphakala/tapedeck/internal/tape"
)

// Session is one open tape. The running signal is a context: it is cancelled
// when Start fails, when Stop is called, or when the parent of Start ends.
type Session struct {
	id       string
	settings *conf.Settings
	log      logger.Logger
	rec      tape.Recorder

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	started    bool
	stopParent func() bool
	file       *audiofile.File
	streamer   *tape.Streamer
}

// New creates a session for settings. log and rec may be nil.
func New(settings *conf.Settings, log logger.Logger, rec tape.Recorder) *Session {
	if log == nil {
		log = GetLogger()
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:       id,
		settings: settings,
		log:      log.With(logger.String("session_id", id)),
		rec:      rec,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start opens the backing file and the streamer on top of it. A failure is
// logged with the tape path, clears the running signal and is not retried.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.Newf("session already started").
			Component("session").
			Category(errors.CategoryState).
			Context("path", s.settings.Tape.Path).
			Build()
	}
	s.started = true
	s.stopParent = context.AfterFunc(ctx, s.cancel)

	path := s.settings.Tape.Path
	file, err := s.openFile(path)
	if err != nil {
		return s.fail(path, "open", err)
	}

	opts := []tape.Option{
		tape.WithConfig(tape.Config{
			Capacity: s.settings.Buffer.Capacity,
			Headroom: s.settings.Buffer.Headroom,
			MinRead:  s.settings.Buffer.MinRead,
		}),
		tape.WithLogger(s.log.Module("tape")),
	}
	if s.rec != nil {
		opts = append(opts, tape.WithRecorder(s.rec))
	}

	streamer, err := tape.Open(s.ctx, file, opts...)
	if err != nil {
		_ = file.Close()
		return s.fail(path, "start", err)
	}

	s.file = file
	s.streamer = streamer

	info := file.Info()
	s.log.Info("session started",
		logger.String("path", path),
		logger.Int("channels", info.Channels),
		logger.Int("sample_rate", info.SampleRate),
		logger.Int64("frames", info.Frames),
		logger.Int("capacity", s.settings.Buffer.Capacity))
	return nil
}

// openFile opens the tape, creating it first when enabled and missing.
func (s *Session) openFile(path string) (*audiofile.File, error) {
	if s.settings.Tape.Create {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return audiofile.Create(path, s.settings.Tape.SampleRate, s.settings.Tape.Channels, s.settings.Tape.Frames)
		}
	}
	return audiofile.Open(path)
}

func (s *Session) fail(path, operation string, err error) error {
	s.log.Error("failed to open tape",
		logger.String("path", path),
		logger.String("operation", operation),
		logger.Error(err))
	s.cancel()
	return errors.New(err).
		Component("session").
		Category(errors.CategoryFileIO).
		Context("operation", operation).
		Context("path", path).
		Build()
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Running reports whether the session started and has not been stopped.
func (s *Session) Running() bool {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	return started && s.ctx.Err() == nil
}

// Done is closed when the running signal is cleared.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context returns the running signal.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Streamer returns the transport, or nil before a successful Start.
func (s *Session) Streamer() *tape.Streamer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamer
}

// Info returns the backing file header. ok is false before a successful Start.
func (s *Session) Info() (info audiofile.Info, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return audiofile.Info{}, false
	}
	return s.file.Info(), true
}

// Stop clears the running signal, closes the streamer (flushing pending
// writes) and then the file. It is safe to call more than once.
func (s *Session) Stop() error {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopParent != nil {
		s.stopParent()
		s.stopParent = nil
	}

	var errs []error
	if s.streamer != nil {
		errs = append(errs, s.streamer.Close())
		s.streamer = nil
	}
	if s.file != nil {
		errs = append(errs, s.file.Close())
		s.file = nil
		s.log.Info("session stopped", logger.String("path", s.settings.Tape.Path))
	}
	return errors.Join(errs...)
}
