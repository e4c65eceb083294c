//go:build miniaudio

// Package miniaudio implements capture.Backend on top of miniaudio via the
// malgo bindings. On Windows, playback endpoints are additionally offered as
// loopback devices through WASAPI so that the far side of a call can be
// captured.
package miniaudio

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/MrWong99/interviewassist/pkg/audio"
	"github.com/MrWong99/interviewassist/pkg/capture"
)

// chunkBuffer is the number of device callbacks buffered between the audio
// thread and Read before chunks are dropped.
const chunkBuffer = 64

// Available reports that the miniaudio backend is compiled in.
func Available() bool { return true }

// Backend enumerates and opens devices through a single miniaudio context.
type Backend struct {
	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	ids     map[string]malgo.DeviceID
	closed  bool
	dropped int
}

// New initialises a miniaudio context.
func New() (*Backend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		slog.Debug("miniaudio", "msg", msg)
	})
	if err != nil {
		return nil, fmt.Errorf("miniaudio: init context: %w", err)
	}
	return &Backend{ctx: ctx, ids: make(map[string]malgo.DeviceID)}, nil
}

// Devices lists capture devices and, on Windows, playback devices exposed as
// loopback endpoints.
func (b *Backend) Devices(loopbackOnly bool) ([]capture.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, capture.ErrStreamClosed
	}

	var out []capture.Device
	if loopbackSupported() {
		infos, err := b.ctx.Devices(malgo.Playback)
		if err != nil {
			return nil, fmt.Errorf("miniaudio: enumerate playback devices: %w", err)
		}
		for _, info := range infos {
			out = append(out, b.register(info, true))
		}
	}
	if !loopbackOnly {
		infos, err := b.ctx.Devices(malgo.Capture)
		if err != nil {
			return nil, fmt.Errorf("miniaudio: enumerate capture devices: %w", err)
		}
		for _, info := range infos {
			out = append(out, b.register(info, false))
		}
	}
	return out, nil
}

// register records the native ID for info and converts it. b.mu must be held.
func (b *Backend) register(info malgo.DeviceInfo, loopback bool) capture.Device {
	id := info.ID.String()
	if loopback {
		id = "loopback:" + id
	}
	b.ids[id] = info.ID

	rate := 0
	for i := 0; i < int(info.FormatCount) && i < len(info.Formats); i++ {
		if r := int(info.Formats[i].SampleRate); r > 0 {
			rate = r
			break
		}
	}
	name := info.Name()
	if loopback {
		name += " [Loopback]"
	}
	return capture.Device{ID: id, Name: name, IsLoopback: loopback, DefaultSampleRate: rate}
}

// Open starts a float32 capture device at sampleRate.
func (b *Backend) Open(dev capture.Device, sampleRate int, frameDuration time.Duration) (capture.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, capture.ErrStreamClosed
	}
	id, ok := b.ids[dev.ID]
	if !ok {
		return nil, fmt.Errorf("miniaudio: unknown device %q", dev.ID)
	}

	kind := malgo.Capture
	channels := 1
	if dev.IsLoopback {
		kind = malgo.Loopback
		channels = 2
	}
	cfg := malgo.DefaultDeviceConfig(kind)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = uint32(channels)
	cfg.Capture.DeviceID = id.Pointer()
	cfg.SampleRate = uint32(sampleRate)
	cfg.Alsa.NoMMap = 1

	frameSamples := int(int64(sampleRate) * int64(frameDuration) / int64(time.Second))
	if frameSamples < 1 {
		frameSamples = 1
	}
	s := &stream{
		rate:     sampleRate,
		channels: channels,
		want:     frameSamples * channels,
		chunks:   make(chan []float32, chunkBuffer),
		lost:     make(chan struct{}),
		done:     make(chan struct{}),
		onDrop:   b.countDrop,
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			s.push(audio.DecodeFloat32(input))
		},
		Stop: s.deviceStopped,
	}
	device, err := malgo.InitDevice(b.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("miniaudio: init device %q at %d Hz: %w", dev.Name, sampleRate, err)
	}
	if got := int(device.SampleRate()); got != 0 && got != sampleRate {
		device.Uninit()
		return nil, fmt.Errorf("miniaudio: device %q opened at %d Hz instead of %d Hz", dev.Name, got, sampleRate)
	}
	s.device = device
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("miniaudio: start device %q: %w", dev.Name, err)
	}
	return s, nil
}

func (b *Backend) countDrop() {
	b.mu.Lock()
	b.dropped++
	n := b.dropped
	b.mu.Unlock()
	if n == 1 || n%100 == 0 {
		slog.Warn("miniaudio: capture buffer full, dropping audio", "dropped_chunks", n)
	}
}

// Close tears down the miniaudio context.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	err := b.ctx.Uninit()
	b.ctx.Free()
	if err != nil {
		return fmt.Errorf("miniaudio: uninit context: %w", err)
	}
	return nil
}

func loopbackSupported() bool { return runtime.GOOS == "windows" }

var _ capture.Backend = (*Backend)(nil)

// stream adapts the push-style device callback to the pull-style
// capture.Stream interface.
type stream struct {
	device   *malgo.Device
	rate     int
	channels int
	want     int

	chunks chan []float32
	onDrop func()

	pending []float32

	lostOnce  sync.Once
	lost      chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// push runs on the audio thread and must not block.
func (s *stream) push(samples []float32) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.chunks <- samples:
	default:
		s.onDrop()
	}
}

// deviceStopped runs when miniaudio stops the device, including after an
// explicit Close.
func (s *stream) deviceStopped() {
	select {
	case <-s.done:
		return
	default:
	}
	s.lostOnce.Do(func() { close(s.lost) })
}

func (s *stream) Read(ctx context.Context) (audio.RawFrame, error) {
	for len(s.pending) < s.want {
		select {
		case <-ctx.Done():
			return audio.RawFrame{}, ctx.Err()
		case <-s.done:
			return audio.RawFrame{}, capture.ErrStreamClosed
		case <-s.lost:
			return audio.RawFrame{}, capture.ErrDeviceLost
		case chunk := <-s.chunks:
			s.pending = append(s.pending, chunk...)
		}
	}
	frame := audio.RawFrame{
		Samples:    append([]float32(nil), s.pending[:s.want]...),
		Channels:   s.channels,
		SampleRate: s.rate,
		Timestamp:  time.Now(),
	}
	s.pending = append(s.pending[:0], s.pending[s.want:]...)
	return frame, nil
}

func (s *stream) SampleRate() int { return s.rate }

func (s *stream) Channels() int { return s.channels }

func (s *stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.device != nil {
			if stopErr := s.device.Stop(); stopErr != nil {
				err = fmt.Errorf("miniaudio: stop device: %w", stopErr)
			}
			s.device.Uninit()
		}
	})
	return err
}

var _ capture.Stream = (*stream)(nil)
