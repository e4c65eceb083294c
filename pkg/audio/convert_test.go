package audio_test

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/MrWong99/interviewassist/pkg/audio"
)

// bytesToSamples converts a little-endian byte slice to int16 samples.
func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i) / float32(n)
	}
	return out
}

func TestMixToMono(t *testing.T) {
	// Two stereo frames: L=0.2,R=0.4 and L=-0.2,R=-0.4
	got := audio.MixToMono([]float32{0.2, 0.4, -0.2, -0.4}, 2)
	want := []float32{0.3, -0.3}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestMixToMono_SingleChannelUnchanged(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	got := audio.MixToMono(in, 1)
	if &got[0] != &in[0] {
		t.Error("expected mono input to be returned as-is")
	}
}

func TestMixToMono_DropsPartialFrame(t *testing.T) {
	got := audio.MixToMono([]float32{1, 1, 1, 1, 1}, 2)
	if len(got) != 2 {
		t.Fatalf("length: got %d, want 2", len(got))
	}
}

func TestResample_IdentityAtEqualRates(t *testing.T) {
	in := ramp(480)
	got := audio.Resample(in, 16000, 16000)
	if len(got) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("sample %d: got %f, want %f", i, got[i], in[i])
		}
	}
}

func TestResample_Decimation(t *testing.T) {
	tests := []struct {
		name    string
		srcRate int
		inLen   int
		wantLen int
	}{
		{name: "48k exact multiple", srcRate: 48000, inLen: 1440, wantLen: 480},
		{name: "48k trailing partial window", srcRate: 48000, inLen: 1442, wantLen: 480},
		{name: "32k exact multiple", srcRate: 32000, inLen: 960, wantLen: 480},
		{name: "32k trailing partial window", srcRate: 32000, inLen: 961, wantLen: 480},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := audio.Resample(ramp(tt.inLen), tt.srcRate, 16000)
			if len(got) != tt.wantLen {
				t.Errorf("length: got %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestResample_DecimationAveragesWindows(t *testing.T) {
	in := []float32{0, 0.3, 0.6, 0.3, 0.3, 0.3}
	got := audio.Resample(in, 48000, 16000)
	want := []float32{0.3, 0.3}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestResample_DurationPreserved(t *testing.T) {
	tests := []struct {
		name    string
		srcRate int
		inLen   int
	}{
		{name: "44.1k 30ms", srcRate: 44100, inLen: 1323},
		{name: "44.1k 1s", srcRate: 44100, inLen: 44100},
		{name: "22.05k odd length", srcRate: 22050, inLen: 777},
		{name: "8k upsample", srcRate: 8000, inLen: 240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := audio.Resample(ramp(tt.inLen), tt.srcRate, 16000)
			inDur := float64(tt.inLen) / float64(tt.srcRate)
			outDur := float64(len(got)) / 16000
			if diff := math.Abs(inDur - outDur); diff > 1.0/16000 {
				t.Errorf("duration drift %.6fs exceeds one output sample (in=%.6fs out=%.6fs)", diff, inDur, outDur)
			}
		})
	}
}

func TestResample_EmptyInput(t *testing.T) {
	for _, rate := range []int{48000, 44100, 16000} {
		if got := audio.Resample(nil, rate, 16000); len(got) != 0 {
			t.Errorf("rate %d: expected empty output, got %d samples", rate, len(got))
		}
	}
}

func TestResample_ShortInputYieldsOneSample(t *testing.T) {
	got := audio.Resample([]float32{0.5}, 44100, 16000)
	if len(got) != 1 {
		t.Fatalf("length: got %d, want 1", len(got))
	}
	if got[0] != 0.5 {
		t.Errorf("sample: got %f, want 0.5", got[0])
	}
}

func TestResample_InterpolationStaysInRange(t *testing.T) {
	got := audio.Resample(ramp(4410), 44100, 16000)
	for i, s := range got {
		if s < 0 || s > 1 {
			t.Fatalf("sample %d out of input range: %f", i, s)
		}
	}
}

func TestNormalize(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	frame := audio.RawFrame{
		Samples:    make([]float32, 1440*2),
		Channels:   2,
		SampleRate: 48000,
		Timestamp:  ts,
	}
	got, ok := audio.Normalize(frame)
	if !ok {
		t.Fatal("expected frame to normalize")
	}
	if len(got.Samples) != 480 {
		t.Errorf("samples: got %d, want 480", len(got.Samples))
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("timestamp: got %v, want %v", got.Timestamp, ts)
	}
	if got.Duration() != 30*time.Millisecond {
		t.Errorf("duration: got %v, want 30ms", got.Duration())
	}
}

func TestNormalize_DropsEmpty(t *testing.T) {
	if _, ok := audio.Normalize(audio.RawFrame{Channels: 1, SampleRate: 48000}); ok {
		t.Error("expected empty frame to be dropped")
	}
	// One sample at 48 kHz decimates to nothing.
	if _, ok := audio.Normalize(audio.RawFrame{Samples: []float32{0.1}, Channels: 1, SampleRate: 48000}); ok {
		t.Error("expected sub-window frame to be dropped")
	}
}

func TestEncodePCM16(t *testing.T) {
	got := bytesToSamples(audio.EncodePCM16([]float32{0, 1, -1, 0.5, 2, -3}))
	want := []int16{0, 32767, -32767, 16384, 32767, -32767}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDecodePCM16(t *testing.T) {
	got := audio.DecodePCM16([]byte{0x00, 0x40, 0x00, 0xC0, 0x7F})
	if len(got) != 2 {
		t.Fatalf("length: got %d, want 2", len(got))
	}
	if got[0] != 0.5 || got[1] != -0.5 {
		t.Errorf("got %v, want [0.5 -0.5]", got)
	}
}

func TestDecodeFloat32(t *testing.T) {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint32(raw[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(raw[4:], math.Float32bits(-0.75))
	got := audio.DecodeFloat32(raw)
	if len(got) != 2 || got[0] != 0.25 || got[1] != -0.75 {
		t.Errorf("got %v, want [0.25 -0.75]", got)
	}
}

func TestRMS(t *testing.T) {
	if got := audio.RMS(nil); got != 0 {
		t.Errorf("empty: got %f, want 0", got)
	}
	if got := audio.RMS([]float32{0.5, -0.5, 0.5, -0.5}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("square wave: got %f, want 0.5", got)
	}
}

func TestEncodeSegmentWAV(t *testing.T) {
	wav := audio.EncodeSegmentWAV(make([]float32, 160))
	if len(wav) != 44+320 {
		t.Fatalf("length: got %d, want %d", len(wav), 44+320)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Error("missing RIFF/WAVE/data markers")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("sample rate: got %d, want 16000", rate)
	}
	if ch := binary.LittleEndian.Uint16(wav[22:24]); ch != 1 {
		t.Errorf("channels: got %d, want 1", ch)
	}
}

func TestEncodeWAV_HeaderFields(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	wav := audio.EncodeWAV(pcm, 44100, 2)

	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(wav[off : off+4]) }
	u16 := func(off int) uint16 { return binary.LittleEndian.Uint16(wav[off : off+2]) }

	tests := []struct {
		field string
		got   uint32
		want  uint32
	}{
		{"riff size", u32(4), 36 + 8},
		{"fmt size", u32(16), 16},
		{"format", uint32(u16(20)), 1},
		{"channels", uint32(u16(22)), 2},
		{"sample rate", u32(24), 44100},
		{"byte rate", u32(28), 44100 * 2 * 2},
		{"block align", uint32(u16(32)), 4},
		{"bits per sample", uint32(u16(34)), 16},
		{"data size", u32(40), 8},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.field, tt.got, tt.want)
		}
	}
	if string(wav[44:]) != string(pcm) {
		t.Error("payload not copied after the header")
	}
}
