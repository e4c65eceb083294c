package capture

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
)

// fuzzyThreshold is the minimum Jaro-Winkler similarity for a preferred name
// to select a device when no substring match exists.
const fuzzyThreshold = 0.85

// SelectDevice picks the device to capture from.
//
// A non-empty preferred name matches the first device whose name contains it,
// or is contained by it, ignoring case. Failing that, the loopback device whose
// name is most similar to it wins when the similarity reaches fuzzyThreshold,
// so a typo in the configured name still finds the device. Without a match the
// first loopback device wins, then the first device of any kind. It reports
// false only when devices is empty.
func SelectDevice(devices []Device, preferred string) (Device, bool) {
	if len(devices) == 0 {
		return Device{}, false
	}
	if want := strings.ToLower(strings.TrimSpace(preferred)); want != "" {
		for _, d := range devices {
			name := strings.ToLower(d.Name)
			if name == "" {
				continue
			}
			if strings.Contains(name, want) || strings.Contains(want, name) {
				return d, true
			}
		}
		if d, ok := closestDevice(devices, want); ok {
			return d, true
		}
	}
	for _, d := range devices {
		if d.IsLoopback {
			return d, true
		}
	}
	return devices[0], true
}

// closestDevice returns the loopback device whose lower-cased name is most
// similar to want, if any reaches fuzzyThreshold. Input devices are not
// considered so a misspelt name never overrides the loopback preference.
func closestDevice(devices []Device, want string) (Device, bool) {
	var (
		best  Device
		score float64
	)
	for _, d := range devices {
		if d.Name == "" || !d.IsLoopback {
			continue
		}
		if s := matchr.JaroWinkler(want, strings.ToLower(d.Name), false); s > score {
			best, score = d, s
		}
	}
	return best, score >= fuzzyThreshold
}

// CandidateRates returns the sample rates to try when opening dev: its default
// rate first (when known), then [FallbackRates], without duplicates.
func CandidateRates(dev Device) []int {
	rates := make([]int, 0, len(FallbackRates)+1)
	seen := make(map[int]bool, len(FallbackRates)+1)
	add := func(r int) {
		if r > 0 && !seen[r] {
			seen[r] = true
			rates = append(rates, r)
		}
	}
	add(dev.DefaultSampleRate)
	for _, r := range FallbackRates {
		add(r)
	}
	return rates
}

// Negotiate opens dev at the first rate from [CandidateRates] the backend
// accepts. On failure it returns an error wrapping [ErrOpenFailed] and every
// per-rate error.
func Negotiate(b Backend, dev Device, frameDuration time.Duration) (Stream, int, error) {
	var errs []error
	for _, rate := range CandidateRates(dev) {
		s, err := b.Open(dev, rate, frameDuration)
		if err == nil {
			return s, rate, nil
		}
		errs = append(errs, fmt.Errorf("%d Hz: %w", rate, err))
	}
	return nil, 0, fmt.Errorf("%w: %q: %w", ErrOpenFailed, dev.Name, errors.Join(errs...))
}
