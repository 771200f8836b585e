// Package audiofile implements the backing file of a tape: an interleaved
// 32-bit IEEE float WAV file with positioned frame reads and writes.
package audiofile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/tapedeck/internal/diskmanager"
	"github.com/tphakala/tapedeck/internal/errors"
	"github.com/tphakala/tapedeck/internal/logger"
)

// FormatIEEEFloat is the WAVE format tag for floating point samples.
const FormatIEEEFloat = 3

const (
	bitDepth       = 32
	bytesPerSample = bitDepth / 8

	// riffSizeOffset is where the RIFF chunk size lives in every WAV header.
	riffSizeOffset = 4
	// riffHeaderSize covers "RIFF", the size field and "WAVE".
	riffHeaderSize = 12

	// wavHeaderBytes is an upper bound on the header Create writes.
	wavHeaderBytes = 64

	// createChunkFrames bounds the buffer used to write silence in Create.
	createChunkFrames = 8192
)

// Info describes a tape file.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Format     int
	Frames     int64
	DataOffset int64
}

// File is an open tape file. It implements tape.Source.
// All methods are safe for concurrent use.
type File struct {
	mu   sync.Mutex
	f    *os.File
	path string
	info Info

	dataSize    int64 // bytes in the data chunk
	extendable  bool  // data chunk is the last chunk in the file
	headerStale bool  // sizes in the header lag behind dataSize

	log logger.Logger
}

// Create writes a new tape of the given geometry filled with silence and
// opens it for reading and writing. An existing file at path is truncated.
func Create(path string, sampleRate, channels int, frames int64) (*File, error) {
	switch {
	case sampleRate <= 0:
		return nil, errors.Newf("invalid sample rate %d", sampleRate).
			Component("audiofile").
			Category(errors.CategoryValidation).
			Build()
	case channels <= 0 || channels > math.MaxUint16:
		return nil, errors.Newf("invalid channel count %d", channels).
			Component("audiofile").
			Category(errors.CategoryValidation).
			Build()
	case frames < 0:
		return nil, errors.Newf("invalid frame count %d", frames).
			Component("audiofile").
			Category(errors.CategoryValidation).
			Build()
	}

	// Header plus the fmt extension the encoder writes for float data.
	need := uint64(frames)*uint64(channels*bytesPerSample) + wavHeaderBytes
	if err := diskmanager.EnsureFreeSpace(path, need); err != nil {
		return nil, err
	}

	f, err := os.Create(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryFileIO).
			Context("operation", "create").
			Context("path", path).
			Build()
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, FormatIEEEFloat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
	}
	silence := make([]int, createChunkFrames*channels)
	for remaining := frames; remaining > 0; {
		n := min(remaining, createChunkFrames)
		buf.Data = silence[:int(n)*channels]
		if err := enc.Write(buf); err != nil {
			_ = f.Close()
			return nil, errors.New(err).
				Component("audiofile").
				Category(errors.CategoryFileIO).
				Context("operation", "create").
				Context("path", path).
				Build()
		}
		remaining -= n
	}
	if frames == 0 {
		// The encoder only emits its header on the first write.
		buf.Data = nil
		if err := enc.Write(buf); err != nil {
			_ = f.Close()
			return nil, errors.FileError(err, path, 0)
		}
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return nil, errors.FileError(err, path, 0)
	}
	if err := f.Close(); err != nil {
		return nil, errors.FileError(err, path, 0)
	}

	GetLogger().Info("created tape",
		logger.String("path", path),
		logger.Int("sample_rate", sampleRate),
		logger.Int("channels", channels),
		logger.Int64("frames", frames))

	return Open(path)
}

// Open opens an existing tape for reading and writing. Files that are not
// 32-bit IEEE float WAV are rejected with ErrUnsupportedFormat.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryFileIO).
			Context("operation", "open").
			Context("path", path).
			Build()
	}

	file, err := newFile(f, path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := adviseStreaming(f); err != nil {
		file.log.Debug("read-ahead hint rejected", logger.String("path", path), logger.Error(err))
	}

	file.log.Debug("opened tape",
		logger.String("path", path),
		logger.Int("sample_rate", file.info.SampleRate),
		logger.Int("channels", file.info.Channels),
		logger.Int64("frames", file.info.Frames))
	return file, nil
}

func newFile(f *os.File, path string) (*File, error) {
	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return nil, errors.New(fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)).
			Component("audiofile").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}
	if decoder.WavAudioFormat != FormatIEEEFloat || decoder.BitDepth != bitDepth || decoder.NumChans == 0 {
		return nil, errors.New(ErrUnsupportedFormat).
			Component("audiofile").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Context("format", int(decoder.WavAudioFormat)).
			Context("bit_depth", int(decoder.BitDepth)).
			Build()
	}

	stat, err := f.Stat()
	if err != nil {
		return nil, errors.FileError(err, path, 0)
	}
	dataOffset, dataSize, err := findDataChunk(f, stat.Size())
	if err != nil {
		return nil, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}

	channels := int(decoder.NumChans)
	frameBytes := int64(channels * bytesPerSample)
	return &File{
		f:    f,
		path: path,
		info: Info{
			SampleRate: int(decoder.SampleRate),
			Channels:   channels,
			BitDepth:   int(decoder.BitDepth),
			Format:     int(decoder.WavAudioFormat),
			Frames:     dataSize / frameBytes,
			DataOffset: dataOffset,
		},
		dataSize:   dataSize,
		extendable: dataOffset+dataSize+dataSize%2 >= stat.Size(),
		log:        GetLogger(),
	}, nil
}

// findDataChunk walks the RIFF chunk list and returns the offset and size of
// the data chunk payload. A size running past EOF is clipped to the file.
func findDataChunk(r io.ReaderAt, fileSize int64) (offset, size int64, err error) {
	var hdr [8]byte
	for pos := int64(riffHeaderSize); pos+8 <= fileSize; {
		if _, err := r.ReadAt(hdr[:], pos); err != nil {
			return 0, 0, fmt.Errorf("read chunk header at %d: %w", pos, err)
		}
		chunkSize := int64(binary.LittleEndian.Uint32(hdr[4:]))
		if string(hdr[:4]) == "data" {
			offset = pos + 8
			return offset, min(chunkSize, fileSize-offset), nil
		}
		pos += 8 + chunkSize + chunkSize%2
	}
	return 0, 0, errors.NewStd("no data chunk")
}

// Path returns the file path the tape was opened from.
func (t *File) Path() string { return t.path }

// Channels returns the number of interleaved channels.
func (t *File) Channels() int { return t.info.Channels }

// Info returns the current tape geometry; Frames grows as writes extend the file.
func (t *File) Info() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info
}

// ReadFramesAt fills dst with len(dst)/Channels() frames starting at frame.
// Frames before the start or past the end of the file are silence. It
// returns how many frames were present in the file.
func (t *File) ReadFramesAt(dst []float32, frame int64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return 0, ErrFileClosed
	}

	clear(dst)
	channels := t.info.Channels
	n := int64(len(dst) / channels)
	from := max(frame, 0)
	to := min(frame+n, t.info.Frames)
	if from >= to {
		return 0, nil
	}

	frameBytes := int64(channels * bytesPerSample)
	raw := make([]byte, (to-from)*frameBytes)
	if _, err := t.f.ReadAt(raw, t.info.DataOffset+from*frameBytes); err != nil && !errors.Is(err, io.EOF) {
		return 0, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryFileIO).
			Context("operation", "read").
			Context("path", t.path).
			Context("frame", from).
			Build()
	}

	out := dst[(from-frame)*int64(channels):]
	for i := range len(raw) / bytesPerSample {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*bytesPerSample:]))
	}
	return int(to - from), nil
}

// WriteFramesAt writes len(src)/Channels() frames starting at frame, growing
// the data chunk when the write runs past the end. Frames before zero are
// dropped. Header sizes are patched on Sync and Close.
func (t *File) WriteFramesAt(src []float32, frame int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return ErrFileClosed
	}

	channels := t.info.Channels
	if frame < 0 {
		skip := min(-frame*int64(channels), int64(len(src)))
		src = src[skip:]
		frame = 0
	}
	n := int64(len(src) / channels)
	if n == 0 {
		return nil
	}
	end := frame + n
	if end > t.info.Frames && !t.extendable {
		return errors.New(ErrNotExtendable).
			Component("audiofile").
			Category(errors.CategoryFileIO).
			Context("path", t.path).
			Context("frame", frame).
			Context("frames", n).
			Build()
	}

	frameBytes := int64(channels * bytesPerSample)
	raw := make([]byte, n*frameBytes)
	for i, v := range src[:n*int64(channels)] {
		binary.LittleEndian.PutUint32(raw[i*bytesPerSample:], math.Float32bits(v))
	}
	if _, err := t.f.WriteAt(raw, t.info.DataOffset+frame*frameBytes); err != nil {
		return errors.New(err).
			Component("audiofile").
			Category(errors.CategoryFileIO).
			Context("operation", "write").
			Context("path", t.path).
			Context("frame", frame).
			Build()
	}

	// A write starting past the end leaves a hole that the OS reads back as zeros.
	if end > t.info.Frames {
		t.info.Frames = end
		t.dataSize = end * frameBytes
		t.headerStale = true
	}
	return nil
}

// Sync patches header sizes after the file grew and commits it to stable storage.
func (t *File) Sync() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return ErrFileClosed
	}
	return t.syncLocked()
}

func (t *File) syncLocked() error {
	if t.headerStale {
		if err := t.patchHeader(); err != nil {
			return err
		}
		t.headerStale = false
	}
	if err := t.f.Sync(); err != nil {
		return errors.FileError(err, t.path, t.info.DataOffset+t.dataSize)
	}
	return nil
}

func (t *File) patchHeader() error {
	var b [4]byte
	// data chunk size precedes the payload
	binary.LittleEndian.PutUint32(b[:], uint32(t.dataSize)) //nolint:gosec // WAV sizes are 32-bit
	if _, err := t.f.WriteAt(b[:], t.info.DataOffset-4); err != nil {
		return errors.FileError(err, t.path, t.info.DataOffset+t.dataSize)
	}
	riffSize := t.info.DataOffset + t.dataSize - 8
	binary.LittleEndian.PutUint32(b[:], uint32(riffSize)) //nolint:gosec // WAV sizes are 32-bit
	if _, err := t.f.WriteAt(b[:], riffSizeOffset); err != nil {
		return errors.FileError(err, t.path, t.info.DataOffset+t.dataSize)
	}
	t.log.Debug("patched tape header",
		logger.String("path", t.path),
		logger.Int64("frames", t.info.Frames))
	return nil
}

// Close syncs and closes the file. Closing twice is a no-op.
func (t *File) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return nil
	}
	syncErr := t.syncLocked()
	closeErr := t.f.Close()
	t.f = nil
	if closeErr != nil {
		closeErr = errors.FileError(closeErr, t.path, t.info.DataOffset+t.dataSize)
	}
	return errors.Join(syncErr, closeErr)
}
