package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/opd-ai/hearclear/audio"
)

// spectrumTestRate divides evenly by the probe bin spacing below, so
// probe tones land exactly on FFT bins.
const spectrumTestRate = 48000.0

func genTestSine(samples int, freqHz, amplitude float64) []float32 {
	out := make([]float32, samples)
	step := 2 * math.Pi * freqHz / spectrumTestRate
	for i := range out {
		out[i] = float32(amplitude * math.Sin(step*float64(i)))
	}
	return out
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %f, want 0", got)
	}

	constant := make([]float32, 256)
	for i := range constant {
		constant[i] = 0.5
	}
	if got := RMS(constant); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RMS(constant 0.5) = %f, want 0.5", got)
	}

	// 32 whole cycles, so the sine RMS is amplitude over root two.
	sine := genTestSine(1024, 1500, 1.0)
	want := 1.0 / math.Sqrt2
	if got := RMS(sine); math.Abs(got-want) > 1e-3 {
		t.Errorf("RMS(unit sine) = %f, want %f", got, want)
	}
}

func TestPowerSpectrumTooShort(t *testing.T) {
	for _, n := range []int{0, 1, 3} {
		if _, err := PowerSpectrum(make([]float32, n)); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("PowerSpectrum(%d samples) error = %v, want ErrEmptyInput", n, err)
		}
	}
}

func TestPowerSpectrumPeakBin(t *testing.T) {
	// 1500 Hz over 1024 samples at 48 kHz is exactly bin 32.
	power, err := PowerSpectrum(genTestSine(1024, 1500, 0.8))
	if err != nil {
		t.Fatalf("PowerSpectrum() error: %v", err)
	}
	if len(power) != 512 {
		t.Fatalf("len(power) = %d, want 512", len(power))
	}

	peak := 0
	for i, p := range power {
		if p > power[peak] {
			peak = i
		}
	}
	if peak != 32 {
		t.Errorf("peak bin = %d, want 32", peak)
	}

	// Energy three bins away is far below the peak once the Hann
	// window has contained the leakage.
	if power[40] > power[32]/100 {
		t.Errorf("bin 40 power %e too close to peak %e", power[40], power[32])
	}
}

func TestDominantFrequencyExactBin(t *testing.T) {
	freq, err := DominantFrequency(genTestSine(1024, 1500, 0.5), spectrumTestRate)
	if err != nil {
		t.Fatalf("DominantFrequency() error: %v", err)
	}
	if freq != 1500 {
		t.Errorf("DominantFrequency() = %f, want 1500", freq)
	}
}

func TestDominantFrequencyOffBin(t *testing.T) {
	// 1000 Hz falls between bins; the answer is within one bin width.
	freq, err := DominantFrequency(genTestSine(1024, 1000, 0.5), spectrumTestRate)
	if err != nil {
		t.Fatalf("DominantFrequency() error: %v", err)
	}
	binWidth := spectrumTestRate / 1024
	if math.Abs(freq-1000) > binWidth {
		t.Errorf("DominantFrequency() = %f, want 1000 within %f", freq, binWidth)
	}
}

func TestDominantFrequencyIgnoresDC(t *testing.T) {
	sine := genTestSine(1024, 1500, 0.3)
	for i := range sine {
		sine[i] += 0.5
	}

	freq, err := DominantFrequency(sine, spectrumTestRate)
	if err != nil {
		t.Fatalf("DominantFrequency() error: %v", err)
	}
	if freq != 1500 {
		t.Errorf("DominantFrequency() = %f, want 1500 despite DC offset", freq)
	}
}

func TestDominantFrequencyBadRate(t *testing.T) {
	if _, err := DominantFrequency(genTestSine(64, 1000, 1), 0); !errors.Is(err, ErrProbeFrequency) {
		t.Errorf("DominantFrequency(rate 0) error = %v, want ErrProbeFrequency", err)
	}
}

func TestChainResponseTransparent(t *testing.T) {
	chain, err := audio.NewEffectChain(spectrumTestRate, 7)
	if err != nil {
		t.Fatalf("NewEffectChain() error: %v", err)
	}

	for _, freqHz := range []float64{125, 1000, 8000} {
		gain, err := ChainResponseDB(chain, freqHz)
		if err != nil {
			t.Fatalf("ChainResponseDB(%f) error: %v", freqHz, err)
		}
		if math.Abs(gain) > 0.01 {
			t.Errorf("transparent chain gain at %f Hz = %f dB, want 0", freqHz, gain)
		}
	}
}

func TestChainResponseBoostedBand(t *testing.T) {
	chain, err := audio.NewEffectChain(spectrumTestRate, 7)
	if err != nil {
		t.Fatalf("NewEffectChain() error: %v", err)
	}
	err = chain.SetBand(3, audio.Band{
		FrequencyHz: 1000,
		GainDB:      12,
		Bandwidth:   0.5,
		Type:        audio.FilterParametric,
	})
	if err != nil {
		t.Fatalf("SetBand() error: %v", err)
	}

	atCenter, err := ChainResponseDB(chain, 1000)
	if err != nil {
		t.Fatalf("ChainResponseDB(1000) error: %v", err)
	}
	if atCenter < 11 || atCenter > 12.5 {
		t.Errorf("gain at boosted center = %f dB, want near 12", atCenter)
	}

	chain.Reset()
	farAway, err := ChainResponseDB(chain, 8000)
	if err != nil {
		t.Fatalf("ChainResponseDB(8000) error: %v", err)
	}
	if math.Abs(farAway) > 2 {
		t.Errorf("gain three octaves up = %f dB, want near 0", farAway)
	}
}

func TestChainResponseHighPass(t *testing.T) {
	chain, err := audio.NewEffectChain(spectrumTestRate, 7)
	if err != nil {
		t.Fatalf("NewEffectChain() error: %v", err)
	}
	err = chain.SetBand(0, audio.Band{
		FrequencyHz: 1000,
		Bandwidth:   0.5,
		Type:        audio.FilterHighPass,
	})
	if err != nil {
		t.Fatalf("SetBand() error: %v", err)
	}

	below, err := ChainResponseDB(chain, 125)
	if err != nil {
		t.Fatalf("ChainResponseDB(125) error: %v", err)
	}
	if below > -20 {
		t.Errorf("gain three octaves below cutoff = %f dB, want strong attenuation", below)
	}

	chain.Reset()
	above, err := ChainResponseDB(chain, 8000)
	if err != nil {
		t.Fatalf("ChainResponseDB(8000) error: %v", err)
	}
	if math.Abs(above) > 1 {
		t.Errorf("gain in passband = %f dB, want near 0", above)
	}
}

func TestChainResponseValidation(t *testing.T) {
	if _, err := ChainResponseDB(nil, 1000); !errors.Is(err, ErrNilChain) {
		t.Errorf("nil chain error = %v, want ErrNilChain", err)
	}

	chain, err := audio.NewEffectChain(spectrumTestRate, 7)
	if err != nil {
		t.Fatalf("NewEffectChain() error: %v", err)
	}
	for _, freqHz := range []float64{0, -100, 24000, 30000} {
		if _, err := ChainResponseDB(chain, freqHz); !errors.Is(err, ErrProbeFrequency) {
			t.Errorf("ChainResponseDB(%f) error = %v, want ErrProbeFrequency", freqHz, err)
		}
	}
}

func TestResponseCurve(t *testing.T) {
	chain, err := audio.NewEffectChain(spectrumTestRate, 7)
	if err != nil {
		t.Fatalf("NewEffectChain() error: %v", err)
	}

	// The unmeasurable 96 kHz entry is skipped, not fatal.
	curve, err := ResponseCurve(chain, []int{125, 1000, 8000, 96000})
	if err != nil {
		t.Fatalf("ResponseCurve() error: %v", err)
	}
	if len(curve) != 3 {
		t.Fatalf("len(curve) = %d, want 3", len(curve))
	}
	for freqHz, gain := range curve {
		if math.Abs(gain) > 0.01 {
			t.Errorf("transparent gain at %d Hz = %f dB, want 0", freqHz, gain)
		}
	}

	if _, err := ResponseCurve(nil, []int{1000}); !errors.Is(err, ErrNilChain) {
		t.Errorf("ResponseCurve(nil) error = %v, want ErrNilChain", err)
	}
}
