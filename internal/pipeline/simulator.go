package pipeline

import (
	"context"
	"time"
)

// SimulatedPhrases are published in rotation when no capture backend exists.
var SimulatedPhrases = []string{
	"[Simulated] Interviewer: Tell me about yourself.",
	"[Simulated] Interviewer: How do you handle tight deadlines?",
	"[Simulated] Interviewer: Describe a challenging project.",
}

// simulate publishes SimulatedPhrases in order, wrapping around, the first
// one immediately and then every interval until ctx is done.
func (w *Worker) simulate(ctx context.Context) {
	w.logger.Info("pipeline: no capture backend, running transcript simulator",
		"interval", w.cfg.SimulatorInterval)
	i := 0
	repeat(ctx, w.cfg.SimulatorInterval, func() {
		w.publish(ctx, TranscriptEvent{
			Text:      SimulatedPhrases[i%len(SimulatedPhrases)],
			Timestamp: time.Now(),
			Kind:      KindSimulated,
		})
		i++
	})
}
