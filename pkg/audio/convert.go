package audio

import (
	"encoding/binary"
	"math"
)

// Normalize converts a raw capture frame to a mono [CanonicalSampleRate]
// frame. It reports false when the frame carries no audio or when resampling
// produced nothing; such frames must be dropped by the caller.
func Normalize(frame RawFrame) (NormalizedFrame, bool) {
	if len(frame.Samples) == 0 || frame.SampleRate <= 0 {
		return NormalizedFrame{}, false
	}
	mono := MixToMono(frame.Samples, frame.Channels)
	out := Resample(mono, frame.SampleRate, CanonicalSampleRate)
	if len(out) == 0 {
		return NormalizedFrame{}, false
	}
	return NormalizedFrame{Samples: out, Timestamp: frame.Timestamp}, true
}

// MixToMono averages interleaved multi-channel samples into one channel.
// If channels is 1 (or not positive) the input is returned unchanged.
// Trailing samples that do not form a complete frame are ignored.
func MixToMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			sum += samples[i*channels+ch]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// Resample converts mono samples from srcRate to dstRate, preserving the
// wall-clock duration to within one output sample period.
//
// Equal rates return the input unchanged. When srcRate is an exact integer
// multiple k of dstRate the signal is decimated by averaging non-overlapping
// windows of k samples; a trailing partial window is dropped, so the output
// length is len(mono)/k. Any other ratio uses linear interpolation with an
// output length of round(duration*dstRate), at least one sample for
// non-empty input. Output values are not clamped.
func Resample(mono []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate {
		return mono
	}
	if len(mono) == 0 {
		return []float32{}
	}
	if srcRate%dstRate == 0 {
		return decimate(mono, srcRate/dstRate)
	}
	return interpolate(mono, srcRate, dstRate)
}

// decimate averages each non-overlapping window of k samples.
func decimate(mono []float32, k int) []float32 {
	n := len(mono) / k
	out := make([]float32, n)
	for i := range n {
		var sum float32
		for _, s := range mono[i*k : (i+1)*k] {
			sum += s
		}
		out[i] = sum / float32(k)
	}
	return out
}

// interpolate resamples by linear interpolation at evenly spaced points over
// [0, duration).
func interpolate(mono []float32, srcRate, dstRate int) []float32 {
	srcLen := len(mono)
	n := int(math.Round(float64(srcLen) * float64(dstRate) / float64(srcRate)))
	if n < 1 {
		n = 1
	}
	out := make([]float32, n)
	step := float64(srcLen) / float64(n)
	for i := range n {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= srcLen {
			idx = srcLen - 1
		}
		frac := float32(pos - float64(idx))
		s0 := mono[idx]
		s1 := s0
		if idx+1 < srcLen {
			s1 = mono[idx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}

// RMS returns the root-mean-square amplitude of samples, or 0 for an empty
// slice.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// EncodePCM16 converts float samples to 16-bit signed little-endian PCM. Each
// sample is clamped to [-1, 1], scaled by 32767 and rounded to the nearest
// integer.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := float64(s)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(math.Round(v*32767))))
	}
	return out
}

// DecodePCM16 converts 16-bit signed little-endian PCM to float32 samples in
// [-1.0, 1.0). A trailing odd byte is ignored.
func DecodePCM16(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}

// DecodeFloat32 reinterprets little-endian IEEE-754 bytes as float32
// samples. Capture backends opened in float32 mode deliver this layout.
func DecodeFloat32(raw []byte) []float32 {
	n := len(raw) / 4
	samples := make([]float32, n)
	for i := range n {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
	}
	return samples
}
