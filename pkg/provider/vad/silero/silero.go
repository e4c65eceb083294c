//go:build silero

package silero

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/MrWong99/interviewassist/pkg/audio"
	"github.com/MrWong99/interviewassist/pkg/provider/vad"
)

const (
	// windowSize is the number of samples per inference call. Silero VAD v5
	// at 16 kHz requires exactly 512 samples (32 ms).
	windowSize = 512

	// stateSize is the hidden state dimension per layer; the state tensor
	// has shape [2, 1, 128].
	stateSize = 128
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// Available reports that the Silero detector is compiled in.
func Available() bool { return true }

// NewFactory returns a vad.DetectorFactory creating Silero detectors.
func NewFactory(opts Options) vad.DetectorFactory {
	return func(aggressiveness int) (vad.Detector, error) {
		d, err := New(opts, aggressiveness)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

// Detector runs Silero VAD inference over 512-sample windows. Frames shorter
// than a window are buffered; the most recent window decision is returned
// until the next window completes.
type Detector struct {
	mu sync.Mutex

	session *ort.AdvancedSession

	input  *ort.Tensor[float32] // [1, 512]
	state  *ort.Tensor[float32] // [2, 1, 128]
	sr     *ort.Tensor[int64]   // [1]
	output *ort.Tensor[float32] // [1, 1]
	stateN *ort.Tensor[float32] // [2, 1, 128]

	buf       []float32
	threshold float32
	last      bool
}

// New loads the model at opts.ModelPath and allocates the inference tensors.
func New(opts Options, aggressiveness int) (*Detector, error) {
	if opts.ModelPath == "" {
		return nil, fmt.Errorf("silero: model path not configured: %w", vad.ErrUnavailable)
	}

	ortInitOnce.Do(func() {
		ort.SetSharedLibraryPath(opts.libraryPath())
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("silero: init onnxruntime: %w: %w", vad.ErrUnavailable, ortInitErr)
	}

	d := &Detector{
		buf:       make([]float32, 0, windowSize*2),
		threshold: Threshold(aggressiveness),
	}
	var err error
	if d.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, windowSize)); err != nil {
		return nil, d.fail("create input tensor", err)
	}
	if d.state, err = ort.NewEmptyTensor[float32](ort.NewShape(2, 1, stateSize)); err != nil {
		return nil, d.fail("create state tensor", err)
	}
	if d.sr, err = ort.NewTensor(ort.NewShape(1), []int64{audio.CanonicalSampleRate}); err != nil {
		return nil, d.fail("create sr tensor", err)
	}
	if d.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1)); err != nil {
		return nil, d.fail("create output tensor", err)
	}
	if d.stateN, err = ort.NewEmptyTensor[float32](ort.NewShape(2, 1, stateSize)); err != nil {
		return nil, d.fail("create stateN tensor", err)
	}
	clear(d.state.GetData())
	clear(d.stateN.GetData())

	d.session, err = ort.NewAdvancedSession(opts.ModelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{d.input, d.state, d.sr},
		[]ort.Value{d.output, d.stateN},
		nil,
	)
	if err != nil {
		return nil, d.fail("create session", err)
	}
	return d, nil
}

func (d *Detector) fail(op string, err error) error {
	d.destroy()
	return fmt.Errorf("silero: %s: %w", op, err)
}

// Process implements vad.Detector.
func (d *Detector) Process(sampleRate int, pcm []byte) (bool, error) {
	if sampleRate != audio.CanonicalSampleRate {
		return false, fmt.Errorf("silero: unsupported sample rate %d", sampleRate)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return false, errors.New("silero: detector closed")
	}

	d.buf = append(d.buf, audio.DecodePCM16(pcm)...)
	for len(d.buf) >= windowSize {
		prob, err := d.infer(d.buf[:windowSize])
		if err != nil {
			return false, err
		}
		d.buf = d.buf[windowSize:]
		d.last = prob >= d.threshold
	}
	return d.last, nil
}

// infer runs one inference and carries the recurrent state forward.
func (d *Detector) infer(window []float32) (float32, error) {
	copy(d.input.GetData(), window)
	if err := d.session.Run(); err != nil {
		return 0, fmt.Errorf("silero: inference: %w", err)
	}
	copy(d.state.GetData(), d.stateN.GetData())
	return d.output.GetData()[0], nil
}

// Close implements vad.Detector.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy()
	return nil
}

func (d *Detector) destroy() {
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	for _, t := range []*ort.Tensor[float32]{d.input, d.state, d.output, d.stateN} {
		if t != nil {
			t.Destroy()
		}
	}
	if d.sr != nil {
		d.sr.Destroy()
	}
	d.input, d.state, d.sr, d.output, d.stateN = nil, nil, nil, nil, nil
}

var _ vad.Detector = (*Detector)(nil)
