package audio

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToneGenerator(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		wantRate   float64
	}{
		{
			name:       "standard_rate",
			sampleRate: 48000,
			wantRate:   48000,
		},
		{
			name:       "cd_rate",
			sampleRate: 44100,
			wantRate:   44100,
		},
		{
			name:       "zero_rate_falls_back_to_default",
			sampleRate: 0,
			wantRate:   DefaultSampleRate,
		},
		{
			name:       "negative_rate_falls_back_to_default",
			sampleRate: -1,
			wantRate:   DefaultSampleRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewToneGenerator(tt.sampleRate)
			require.NotNil(t, gen)
			assert.Equal(t, tt.wantRate, gen.GetSampleRate())
			assert.Equal(t, 0.0, gen.GetFrequency())
			assert.Equal(t, 0.0, gen.GetAmplitude())
		})
	}
}

func TestToneParamsPackRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		freqHz    float32
		amplitude float32
	}{
		{name: "zero_pair", freqHz: 0, amplitude: 0},
		{name: "typical_tone", freqHz: 1000, amplitude: 0.5},
		{name: "low_band_edge", freqHz: 125, amplitude: 0.0000316},
		{name: "full_scale", freqHz: 8000, amplitude: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			freqHz, amplitude := unpackToneParams(packToneParams(tt.freqHz, tt.amplitude))
			assert.Equal(t, tt.freqHz, freqHz)
			assert.Equal(t, tt.amplitude, amplitude)
		})
	}
}

func TestToneGeneratorSilentByDefault(t *testing.T) {
	gen := NewToneGenerator(48000)

	out := make([]float32, 256)
	for i := range out {
		out[i] = 0.75
	}
	gen.Render(out)

	for i, sample := range out {
		require.Equal(t, float32(0), sample, "sample %d", i)
	}
}

func TestToneGeneratorRenderMatchesSine(t *testing.T) {
	gen := NewToneGenerator(48000)
	gen.SetFrequency(1000)
	gen.SetAmplitude(0.5)

	out := make([]float32, 480)
	gen.Render(out)

	for i, sample := range out {
		want := 0.5 * math.Sin(twoPi*1000*float64(i)/48000)
		assert.InDelta(t, want, float64(sample), 1e-5, "sample %d", i)
	}
}

func TestToneGeneratorPhaseContinuityAcrossAmplitudeChange(t *testing.T) {
	gen := NewToneGenerator(48000)
	gen.SetFrequency(1000)
	gen.SetAmplitude(0.3)

	first := make([]float32, 480)
	gen.Render(first)

	gen.SetAmplitude(0.8)
	second := make([]float32, 480)
	gen.Render(second)

	// The second block must continue the sine from where the first
	// block left off, only scaled by the new amplitude.
	for i, sample := range second {
		want := 0.8 * math.Sin(twoPi*1000*float64(480+i)/48000)
		require.InDelta(t, want, float64(sample), 1e-4, "sample %d", i)
	}
}

func TestToneGeneratorPhaseContinuityAcrossFrequencyChange(t *testing.T) {
	gen := NewToneGenerator(48000)
	gen.SetFrequency(440)
	gen.SetAmplitude(1.0)

	first := make([]float32, 128)
	gen.Render(first)

	gen.SetFrequency(880)
	second := make([]float32, 1)
	gen.Render(second)

	// First sample after the switch still uses the phase accumulated at
	// the old frequency.
	wantPhase := math.Mod(twoPi*440*128/48000, twoPi)
	assert.InDelta(t, math.Sin(wantPhase), float64(second[0]), 1e-4)
}

func TestToneGeneratorResetStartsAtZeroCrossing(t *testing.T) {
	gen := NewToneGenerator(48000)
	gen.SetFrequency(1234)
	gen.SetAmplitude(1.0)

	warmup := make([]float32, 333)
	gen.Render(warmup)

	gen.Reset()
	out := make([]float32, 480)
	gen.Render(out)

	assert.Equal(t, float32(0), out[0])
	for i, sample := range out {
		want := math.Sin(twoPi * 1234 * float64(i) / 48000)
		require.InDelta(t, want, float64(sample), 1e-4, "sample %d", i)
	}
}

func TestToneGeneratorSilenceStillAdvancesPhase(t *testing.T) {
	gen := NewToneGenerator(48000)
	gen.SetFrequency(1000)
	gen.SetAmplitude(0)

	silent := make([]float32, 480)
	gen.Render(silent)
	for i, sample := range silent {
		require.Equal(t, float32(0), sample, "sample %d", i)
	}

	// Raising the amplitude afterwards picks up the advanced phase, not
	// a fresh one.
	gen.SetAmplitude(1.0)
	out := make([]float32, 1)
	gen.Render(out)

	wantPhase := math.Mod(twoPi*1000*480/48000, twoPi)
	assert.InDelta(t, math.Sin(wantPhase), float64(out[0]), 1e-4)
}

func TestToneGeneratorFrequencyClamping(t *testing.T) {
	gen := NewToneGenerator(48000)

	gen.SetFrequency(-500)
	assert.Equal(t, 0.0, gen.GetFrequency())

	gen.SetFrequency(96000)
	assert.Equal(t, 24000.0, gen.GetFrequency())

	gen.SetFrequency(8000)
	assert.Equal(t, 8000.0, gen.GetFrequency())
}

func TestToneGeneratorAmplitudeClamping(t *testing.T) {
	gen := NewToneGenerator(48000)

	gen.SetAmplitude(-0.5)
	assert.Equal(t, 0.0, gen.GetAmplitude())

	gen.SetAmplitude(2.5)
	assert.Equal(t, 1.0, gen.GetAmplitude())

	gen.SetAmplitude(0.25)
	assert.InDelta(t, 0.25, gen.GetAmplitude(), 1e-7)
}

func TestToneGeneratorSetterPreservesOtherParameter(t *testing.T) {
	gen := NewToneGenerator(48000)
	gen.SetFrequency(2000)
	gen.SetAmplitude(0.6)

	gen.SetFrequency(4000)
	assert.InDelta(t, 0.6, gen.GetAmplitude(), 1e-7)

	gen.SetAmplitude(0.1)
	assert.Equal(t, 4000.0, gen.GetFrequency())
}

// TestToneGeneratorConcurrentControl exercises the control path from
// multiple goroutines while the render loop runs, for the race detector.
// Readers must only ever observe values that some writer stored.
func TestToneGeneratorConcurrentControl(t *testing.T) {
	gen := NewToneGenerator(48000)
	frequencies := []float64{440, 880, 1760}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for _, freq := range frequencies {
		wg.Add(1)
		go func(f float64) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					gen.SetFrequency(f)
					gen.SetAmplitude(f / 1760)
				}
			}
		}(freq)
	}

	out := make([]float32, 256)
	for i := 0; i < 200; i++ {
		gen.Render(out)
		got := gen.GetFrequency()
		assert.Contains(t, frequencies, got)
	}

	close(stop)
	wg.Wait()
}

func TestToneGeneratorRenderAllocationFree(t *testing.T) {
	gen := NewToneGenerator(48000)
	gen.SetFrequency(1000)
	gen.SetAmplitude(0.5)
	out := make([]float32, 512)
	gen.Render(out)

	allocs := testing.AllocsPerRun(100, func() {
		gen.Render(out)
	})
	assert.Equal(t, 0.0, allocs)
}

func BenchmarkToneGeneratorRender(b *testing.B) {
	gen := NewToneGenerator(48000)
	gen.SetFrequency(1000)
	gen.SetAmplitude(0.5)
	out := make([]float32, 512)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		gen.Render(out)
	}
}
