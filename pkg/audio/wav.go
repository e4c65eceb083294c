package audio

import "encoding/binary"

// bitsPerSample is fixed at 16 for every WAV container produced here.
const bitsPerSample = 16

// EncodeWAV wraps raw 16-bit signed little-endian PCM data in a standard
// RIFF/WAV container suitable for multipart uploads to transcription APIs.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	// RIFF header
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize)) // file size minus 8
	copy(buf[8:12], "WAVE")

	// fmt chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)                 // chunk size for PCM
	binary.LittleEndian.PutUint16(buf[20:22], 1)                  // format tag: integer PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))   // channel count
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate)) // frames per second
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))   // bytes per second
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign)) // bytes per frame
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)

	// data chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}

// EncodeSegmentWAV is a convenience for the common case of turning a
// normalized mono sample buffer into a 16 kHz WAV file.
func EncodeSegmentWAV(samples []float32) []byte {
	return EncodeWAV(EncodePCM16(samples), CanonicalSampleRate, 1)
}
