package pipeline

import (
	"time"

	"github.com/MrWong99/interviewassist/pkg/audio"
)

// State is the assembler's hysteresis state.
type State int

const (
	// StateIdle means no segment is being accumulated.
	StateIdle State = iota

	// StateActive means speech was confirmed and frames are being collected.
	StateActive
)

// String implements [fmt.Stringer].
func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

// Decision pairs a normalized frame with its voice-activity verdict.
type Decision struct {
	Frame    audio.NormalizedFrame
	IsSpeech bool
}

// Segment is a contiguous run of frames believed to contain one utterance.
// Once returned by [Assembler.Push] it is owned by the caller.
type Segment struct {
	// Frames holds the segment audio in capture order.
	Frames []audio.NormalizedFrame

	// Start is the timestamp of the first frame.
	Start time.Time

	// Forced reports that the segment was closed at the length limit rather
	// than by trailing silence.
	Forced bool
}

// Samples returns the concatenated audio of all frames.
func (s Segment) Samples() []float32 {
	n := 0
	for _, f := range s.Frames {
		n += len(f.Samples)
	}
	out := make([]float32, 0, n)
	for _, f := range s.Frames {
		out = append(out, f.Samples...)
	}
	return out
}

// Duration returns the audio length at the canonical sample rate.
func (s Segment) Duration() time.Duration {
	n := 0
	for _, f := range s.Frames {
		n += len(f.Samples)
	}
	return audio.SamplesDuration(n)
}

// Assembler groups classified frames into speech segments using onset and
// hangover margins. It is not safe for concurrent use; a worker owns one.
//
// While idle, a segment opens once StartMargin consecutive speech frames were
// seen; the confirming frame becomes the first frame of the segment and the
// earlier onset frames are discarded. While active, every frame is appended
// and the segment closes once EndMargin consecutive silence frames were seen.
// The closing silence run is trimmed from the returned segment.
type Assembler struct {
	startMargin int
	endMargin   int
	maxSamples  int

	state      State
	speechRun  int
	silenceRun int
	frames     []audio.NormalizedFrame
	samples    int
}

// NewAssembler returns an idle assembler. Margins below 1 are treated as 1.
// maxSegment of zero or less disables forced closing.
func NewAssembler(startMargin, endMargin int, maxSegment time.Duration) *Assembler {
	a := &Assembler{
		startMargin: max(startMargin, 1),
		endMargin:   max(endMargin, 1),
	}
	if maxSegment > 0 {
		a.maxSamples = int(int64(maxSegment) * audio.CanonicalSampleRate / int64(time.Second))
	}
	return a
}

// State returns the current hysteresis state.
func (a *Assembler) State() State { return a.state }

// Push feeds one decision. It returns a finished segment and true when the
// decision closed one.
func (a *Assembler) Push(d Decision) (Segment, bool) {
	if d.IsSpeech {
		a.speechRun++
		a.silenceRun = 0
	} else {
		a.silenceRun++
		a.speechRun = 0
	}

	if a.state == StateIdle {
		if d.IsSpeech && a.speechRun >= a.startMargin {
			a.state = StateActive
			a.append(d.Frame)
		}
		return Segment{}, false
	}

	a.append(d.Frame)

	if a.silenceRun >= a.endMargin {
		keep := len(a.frames) - a.silenceRun
		return a.finish(keep, false), true
	}
	if a.maxSamples > 0 && a.samples >= a.maxSamples {
		return a.finish(len(a.frames), true), true
	}
	return Segment{}, false
}

// Reset discards any partial segment and returns to idle.
func (a *Assembler) Reset() {
	a.state = StateIdle
	a.speechRun = 0
	a.silenceRun = 0
	a.frames = nil
	a.samples = 0
}

func (a *Assembler) append(f audio.NormalizedFrame) {
	a.frames = append(a.frames, f)
	a.samples += len(f.Samples)
}

func (a *Assembler) finish(keep int, forced bool) Segment {
	frames := a.frames[:max(keep, 0)]
	seg := Segment{Frames: frames, Forced: forced}
	if len(frames) > 0 {
		seg.Start = frames[0].Timestamp
	}
	a.frames = nil
	a.samples = 0
	a.state = StateIdle
	a.speechRun = 0
	a.silenceRun = 0
	return seg
}
