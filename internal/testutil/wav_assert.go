package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/cwbudde/wav"
)

// Speech clip format written by pocket-tts and by the speak command.
const (
	speechRate     = 24000
	speechChannels = 1
	speechBits     = 16
)

// WAVInfo summarizes a decoded WAV clip.
type WAVInfo struct {
	Rate     int
	Channels int
	Bits     int
	Frames   int
}

// Seconds is the clip length at its own sample rate.
func (w WAVInfo) Seconds() float64 {
	if w.Rate == 0 {
		return 0
	}

	return float64(w.Frames) / float64(w.Rate)
}

// InspectWAV decodes data far enough to report its format and frame count.
func InspectWAV(data []byte) (WAVInfo, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return WAVInfo{}, errors.New("not a PCM WAV file")
	}

	info := WAVInfo{
		Rate:     int(dec.SampleRate),
		Channels: int(dec.NumChans),
		Bits:     int(dec.BitDepth),
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return info, fmt.Errorf("read PCM: %w", err)
	}

	if info.Channels > 0 {
		info.Frames = len(buf.Data) / info.Channels
	}

	return info, nil
}

// AssertValidWAV fails tb unless data is a non-empty 24 kHz mono 16-bit clip.
func AssertValidWAV(tb testing.TB, data []byte) {
	tb.Helper()

	info, err := InspectWAV(data)
	if err != nil {
		tb.Fatalf("WAV: %v", err)
		return
	}

	got := [3]int{info.Rate, info.Channels, info.Bits}
	want := [3]int{speechRate, speechChannels, speechBits}

	if got != want {
		tb.Fatalf("WAV: rate/channels/bits = %v, want %v", got, want)
		return
	}

	if info.Frames == 0 {
		tb.Fatal("WAV: no samples")
	}
}

// AssertWAVDurationApprox fails tb unless the clip lasts [minSec, maxSec].
func AssertWAVDurationApprox(tb testing.TB, data []byte, minSec, maxSec float64) {
	tb.Helper()

	info, err := InspectWAV(data)
	if err != nil {
		tb.Fatalf("WAV: %v", err)
		return
	}

	if d := info.Seconds(); d < minSec || d > maxSec {
		tb.Fatalf("WAV lasts %.3fs, want [%.3fs, %.3fs]", d, minSec, maxSec)
	}
}
