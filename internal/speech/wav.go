package speech

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/cwbudde/wav"
	goaudio "github.com/go-audio/audio"
)

// WAV format produced by pocket-tts.
const (
	SampleRate = 24000
	Channels   = 1
	BitDepth   = 16
)

// ErrFormatMismatch is returned when a decoded WAV does not match the expected format.
var ErrFormatMismatch = errors.New("WAV format mismatch")

// DecodeWAV decodes 24 kHz mono 16-bit WAV bytes into float32 samples.
func DecodeWAV(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, errors.New("empty WAV input")
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	if dec.SampleRate != SampleRate {
		return nil, fmt.Errorf("%w: sample rate %d, want %d", ErrFormatMismatch, dec.SampleRate, SampleRate)
	}

	if dec.NumChans != Channels {
		return nil, fmt.Errorf("%w: channels %d, want %d", ErrFormatMismatch, dec.NumChans, Channels)
	}

	if dec.BitDepth != BitDepth {
		return nil, fmt.Errorf("%w: bit depth %d, want %d", ErrFormatMismatch, dec.BitDepth, BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data: %w", err)
	}

	return buf.Data, nil
}

// EncodeWAV encodes float32 samples as 24 kHz mono 16-bit PCM WAV.
func EncodeWAV(samples []float32) ([]byte, error) {
	return encodeWAVAt(samples, SampleRate)
}

func encodeWAVAt(samples []float32, sampleRate int) ([]byte, error) {
	sw := &seekBuffer{}

	enc := wav.NewEncoder(sw, sampleRate, BitDepth, Channels, 1) // 1 = PCM

	pcm := &goaudio.Float32Buffer{
		Data:           samples,
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: Channels},
		SourceBitDepth: BitDepth,
	}

	if err := enc.Write(pcm); err != nil {
		return nil, fmt.Errorf("writing PCM: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}

	return sw.data, nil
}

// Concat joins WAV clips into one, separated by gap samples of silence.
func Concat(clips [][]byte, gap int) ([]byte, error) {
	if len(clips) == 0 {
		return nil, errors.New("no clips to concatenate")
	}

	merged := make([]float32, 0, SampleRate)

	for i, data := range clips {
		samples, err := DecodeWAV(data)
		if err != nil {
			return nil, fmt.Errorf("decode clip %d WAV: %w", i+1, err)
		}

		if i > 0 && gap > 0 {
			merged = append(merged, make([]float32, gap)...)
		}

		merged = append(merged, samples...)
	}

	out, err := EncodeWAV(merged)
	if err != nil {
		return nil, fmt.Errorf("encode merged WAV: %w", err)
	}

	return out, nil
}

// PeakNormalize scales samples so the peak amplitude reaches 1.0. Silent
// input is returned unchanged.
func PeakNormalize(samples []float32) []float32 {
	var peak float32
	for _, s := range samples {
		peak = max(peak, s, -s)
	}

	if peak == 0 {
		return samples
	}

	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s / peak
	}

	return out
}

// seekBuffer is an in-memory io.WriteSeeker for the WAV encoder, which
// rewrites the header sizes on Close.
type seekBuffer struct {
	data []byte
	pos  int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if end := s.pos + len(p); end > len(s.data) {
		s.data = append(s.data, make([]byte, end-len(s.data))...)
	}

	n := copy(s.data[s.pos:], p)
	s.pos += n

	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64

	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(s.pos) + offset
	case io.SeekEnd:
		next = int64(len(s.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}

	if next < 0 {
		return 0, errors.New("seek before start")
	}

	s.pos = int(next)

	return next, nil
}
