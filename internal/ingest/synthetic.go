package ingest

import (
	"fmt"
	"math"
)

// Fallback tone parameters. When the accelerometer stops responding the
// bridge firmware substitutes a synthetic 4 Hz tone at half a g so the
// outage surfaces downstream as a sustained, unmistakable tremor signature
// instead of silence.
const (
	FallbackFreqHz = 4.0
	FallbackAmpMG  = 500.0
)

// Tone is one sinusoidal component of a synthetic signal.
type Tone struct {
	// Freq in Hz.
	Freq float64
	// Amp is the peak amplitude in mg.
	Amp float64
}

// Synthesize renders n samples of the summed tones at the given sample
// rate. Sample i is sum over tones of Amp*sin(2*pi*Freq*i/rate).
func Synthesize(n int, rate float64, tones ...Tone) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / rate
		var v float64
		for _, tone := range tones {
			v += tone.Amp * math.Sin(2*math.Pi*tone.Freq*t)
		}
		out[i] = v
	}
	return out
}

// FallbackSignal renders the sensor-failure substitute tone.
func FallbackSignal(n int, rate float64) []float64 {
	return Synthesize(n, rate, Tone{Freq: FallbackFreqHz, Amp: FallbackAmpMG})
}

// Source produces an endless synthetic sample stream, optionally formatted
// as bridge protocol lines. It backs the mock serial feed and the
// simulator.
type Source struct {
	rate  float64
	tones []Tone
	i     int64
}

// NewSource creates a source at the given sample rate. With no tones the
// source emits the fallback tone.
func NewSource(rate float64, tones ...Tone) *Source {
	if len(tones) == 0 {
		tones = []Tone{{Freq: FallbackFreqHz, Amp: FallbackAmpMG}}
	}
	return &Source{rate: rate, tones: tones}
}

// Next returns the next sample value in mg.
func (s *Source) Next() float64 {
	t := float64(s.i) / s.rate
	s.i++
	var v float64
	for _, tone := range s.tones {
		v += tone.Amp * math.Sin(2*math.Pi*tone.Freq*t)
	}
	return v
}

// NextLine returns the next sample formatted as a two-field bridge line.
func (s *Source) NextLine() string {
	uptime := float64(s.i) / s.rate
	return fmt.Sprintf("%.3f,%.3f", uptime, s.Next())
}

// Elapsed returns the stream position in seconds.
func (s *Source) Elapsed() float64 {
	return float64(s.i) / s.rate
}
