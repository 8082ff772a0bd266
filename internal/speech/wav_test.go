package speech

import (
	"errors"
	"math"
	"testing"

	"github.com/wabradshaw/wordgenerator/internal/testutil"
)

func tone(n int, amp float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = amp * float32(math.Sin(2*math.Pi*440*float64(i)/SampleRate))
	}

	return out
}

func TestEncodeDecodeWAV(t *testing.T) {
	in := tone(2400, 0.5)

	data, err := EncodeWAV(in)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	testutil.AssertValidWAV(t, data)
	testutil.AssertWAVDurationApprox(t, data, 0.099, 0.101)

	out, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}

	if len(out) != len(in) {
		t.Fatalf("decoded %d samples; want %d", len(out), len(in))
	}

	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1e-3 {
			t.Fatalf("sample %d = %v; want about %v", i, out[i], in[i])
		}
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	if _, err := DecodeWAV(nil); err == nil {
		t.Error("expected error for empty input")
	}

	if _, err := DecodeWAV([]byte("definitely not a wav file at all")); err == nil {
		t.Error("expected error for garbage input")
	}

	other, err := encodeWAVAt(tone(160, 0.1), 16000)
	if err != nil {
		t.Fatalf("encodeWAVAt: %v", err)
	}

	if _, err := DecodeWAV(other); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("expected ErrFormatMismatch for 16 kHz input, got %v", err)
	}
}

func TestConcat(t *testing.T) {
	a, _ := EncodeWAV(tone(100, 0.2))
	b, _ := EncodeWAV(tone(50, 0.2))

	merged, err := Concat([][]byte{a, b}, 30)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}

	samples, err := DecodeWAV(merged)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}

	if len(samples) != 180 {
		t.Fatalf("merged length = %d; want 100 + 30 + 50", len(samples))
	}

	for i := 100; i < 130; i++ {
		if samples[i] != 0 {
			t.Fatalf("gap sample %d = %v; want silence", i, samples[i])
		}
	}

	if _, err := Concat(nil, 0); err == nil {
		t.Error("expected error for no clips")
	}

	if _, err := Concat([][]byte{a, []byte("junk")}, 0); err == nil {
		t.Error("expected error for an undecodable clip")
	}
}

func TestPeakNormalize(t *testing.T) {
	got := PeakNormalize([]float32{0.1, -0.25, 0.2})
	want := []float32{0.4, -1, 0.8}

	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Fatalf("PeakNormalize = %v; want %v", got, want)
		}
	}

	silent := []float32{0, 0}
	if out := PeakNormalize(silent); out[0] != 0 || out[1] != 0 {
		t.Fatalf("silence changed: %v", out)
	}
}
