// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"pulse/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Beat tracker defaults.
const (
	envelopeRate    = 250.0 // envelope samples per second
	envelopeWindow  = 8.0   // seconds of envelope kept
	envelopeWarmup  = 3.0   // seconds of envelope needed before estimating
	trackerMinBPM   = DefaultMinBPM
	trackerMaxBPM   = DefaultMaxBPM
	minPeakStrength = 1e-12
	beatPeakRatio   = 0.8 // shortest lag scoring this share of the best wins
)

// EnvelopeTracker estimates tempo from the periodicity of the signal's
// energy envelope. Incoming samples are reduced to an RMS envelope, the
// envelope is turned into an onset strength curve (positive first
// difference), and the autocorrelation of that curve is searched for the
// shortest strong lag between the minimum and maximum tempo. Multiples of
// the beat period score about as high as the period itself, so the first
// peak close to the best one is taken as the beat.
type EnvelopeTracker struct {
	hop     int     // input samples per envelope sample
	rate    float64 // actual envelope sample rate (Hz)
	acc     float64 // running sum of squares for the current hop
	accN    int
	minLag  int
	maxLag  int
	warmup  int
	ring    []float64
	head    int
	count   int
	dirty   bool
	current float64

	// Pre-allocated autocorrelation workspace.
	fft    *fourier.FFT
	onset  []float64
	coeffs []complex128
	acf    []float64
	score  []float64
}

var _ BeatTracker = (*EnvelopeTracker)(nil)

// NewEnvelopeTracker returns a tracker for a stream with the given layout.
// It satisfies TrackerFactory.
func NewEnvelopeTracker(channels, sampleRate int) BeatTracker {
	return newEnvelopeTracker(channels, sampleRate, trackerMinBPM, trackerMaxBPM)
}

// EnvelopeTrackerFactory returns a TrackerFactory searching tempos between
// minBPM and maxBPM.
func EnvelopeTrackerFactory(minBPM, maxBPM float64) TrackerFactory {
	return func(channels, sampleRate int) BeatTracker {
		return newEnvelopeTracker(channels, sampleRate, minBPM, maxBPM)
	}
}

func newEnvelopeTracker(channels, sampleRate int, minBPM, maxBPM float64) *EnvelopeTracker {
	if channels < 1 {
		channels = 1
	}
	hop := int(float64(sampleRate*channels) / envelopeRate)
	if hop < 1 {
		hop = 1
	}
	rate := float64(sampleRate*channels) / float64(hop)

	window := int(envelopeWindow * rate)
	size := bitint.NextPowerOfTwo(2 * window)

	minLag := int(math.Floor(60 * rate / maxBPM))
	if minLag < 3 {
		minLag = 3
	}
	maxLag := int(math.Ceil(60 * rate / minBPM))
	if maxLag >= window {
		maxLag = window - 1
	}

	return &EnvelopeTracker{
		hop:    hop,
		rate:   rate,
		minLag: minLag,
		maxLag: maxLag,
		warmup: int(envelopeWarmup * rate),
		ring:   make([]float64, window),
		fft:    fourier.NewFFT(size),
		onset:  make([]float64, size),
		coeffs: make([]complex128, size/2+1),
		acf:    make([]float64, size),
		score:  make([]float64, maxLag+2),
	}
}

// Feed accumulates samples into the energy envelope.
func (t *EnvelopeTracker) Feed(samples []float32) {
	for _, s := range samples {
		v := float64(s)
		t.acc += v * v
		t.accN++
		if t.accN == t.hop {
			t.push(math.Sqrt(t.acc / float64(t.hop)))
			t.acc, t.accN = 0, 0
		}
	}
}

func (t *EnvelopeTracker) push(v float64) {
	t.ring[t.head] = v
	t.head++
	if t.head == len(t.ring) {
		t.head = 0
	}
	if t.count < len(t.ring) {
		t.count++
	}
	t.dirty = true
}

// Estimate returns the tempo in bpm, or 0 until enough envelope has been
// gathered or when the envelope shows no periodicity. The estimate is only
// recomputed after new envelope samples arrived.
func (t *EnvelopeTracker) Estimate() float64 {
	if t.count < t.warmup || t.count <= t.maxLag+1 {
		return 0
	}
	if t.dirty {
		t.current = t.estimate()
		t.dirty = false
	}
	return t.current
}

func (t *EnvelopeTracker) estimate() float64 {
	n := t.count
	start := t.head - n
	if start < 0 {
		start += len(t.ring)
	}

	// Onset strength: half-wave rectified first difference, mean removed.
	clear(t.onset)
	prev := t.ring[start]
	var mean float64
	for i := 1; i < n; i++ {
		cur := t.ring[(start+i)%len(t.ring)]
		if d := cur - prev; d > 0 {
			t.onset[i] = d
			mean += d
		}
		prev = cur
	}
	mean /= float64(n)
	for i := 0; i < n; i++ {
		t.onset[i] -= mean
	}

	// Autocorrelation via the power spectrum; the zero padding up to size
	// keeps the circular correlation linear.
	t.fft.Coefficients(t.coeffs, t.onset)
	for i, c := range t.coeffs {
		t.coeffs[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	t.fft.Sequence(t.acf, t.coeffs)

	// A period between two envelope samples splits its weight across
	// neighbouring lags, so each lag is scored over its neighbourhood.
	a := t.acf
	for lag := t.minLag - 1; lag <= t.maxLag+1; lag++ {
		t.score[lag] = 0.5*a[lag-2] + a[lag-1] + a[lag] + a[lag+1] + 0.5*a[lag+2]
	}

	top := t.minLag
	for lag := t.minLag + 1; lag <= t.maxLag; lag++ {
		if t.score[lag] > t.score[top] {
			top = lag
		}
	}
	if t.score[top] <= minPeakStrength*a[0] || t.score[top] <= 0 {
		return 0
	}

	best := top
	for lag := t.minLag; lag < top; lag++ {
		s := t.score[lag]
		if s >= beatPeakRatio*t.score[top] && s >= t.score[lag-1] && s > t.score[lag+1] {
			best = lag
			break
		}
	}

	lag := float64(best)
	y0, y1, y2 := t.score[best-1], t.score[best], t.score[best+1]
	if denom := y0 - 2*y1 + y2; denom < 0 {
		if off := 0.5 * (y0 - y2) / denom; math.Abs(off) <= 1 {
			lag += off
		}
	}
	return 60 * t.rate / lag
}
