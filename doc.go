// Package hearclear implements a self-fitting hearing assistance system.
//
// HearClear measures a listener's hearing thresholds with a pure-tone
// ascending test, converts the measured audiogram into per-band equalizer
// corrections plus gentle compression, and applies them to live audio on
// its way to the output device. This package provides the main API facade
// that integrates all subsystems: tone generation, the correction chain,
// the threshold test engine, profile storage, and playback.
//
// # Getting Started
//
// Create an instance with options and register the completion callback:
//
//	options := hearclear.NewOptions()
//	options.SampleRate = 48000
//
//	hc, err := hearclear.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer hc.Close()
//
//	hc.OnTestComplete(func(sessionID string, profile audiometry.HearingProfile) {
//	    fmt.Printf("Test %s finished with %d thresholds\n", sessionID, len(profile))
//	})
//
// # Running a Threshold Test
//
// The engine presents tones; the caller owns presentation timing and
// feeds back the listener's responses:
//
//	sessionID, err := hc.StartTest()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for hc.TestStatus().Phase.Active() {
//	    time.Sleep(1500 * time.Millisecond) // let the tone sound
//	    hc.StopTestTone()                   // move to awaiting-response
//	    heard := askListener()
//	    hc.RecordResponse(heard)
//	}
//
// Each frequency starts at 30 dB HL and rises in 5 dB steps until the
// listener hears it or 90 dB HL is exhausted. On completion the measured
// profile is applied to the correction chain and saved under
// [DefaultProfileName] automatically.
//
// # Core Types
//
// The package defines several core types:
//
//   - [HearClear]: Main API facade integrating all subsystems
//   - [Options]: Configuration options for creating a new instance
//   - [SinkFactory]: Injectable output construction (testing support)
//
// # Applying Corrections
//
// Corrections come from a measured profile, a stored profile, or a named
// preset:
//
//	// From the thresholds of a completed or stored test
//	err = hc.ApplyProfile(profile)
//	err = hc.LoadProfile("left-ear-march")
//
//	// From a named preset, bypassing the test engine
//	err = hc.ApplyPreset(audiometry.PresetVoiceIsolation)
//
//	// Trim the overall output level afterwards
//	hc.SetMasterGain(-3)
//
// # Calibration Tones
//
// Outside a test, calibrated tones verify the output path:
//
//	hc.PlayTestTone(1000, 60) // 1 kHz at 60 dB HL
//	time.Sleep(2 * time.Second)
//	hc.StopTestTone()
//
// # Streaming Input
//
// A decoded Opus stream can be routed through the fitted correction
// chain:
//
//	stream, err := hc.AttachStream()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for packet := range packets {
//	    stream.PushPacket(packet)
//	}
//	hc.DetachStream()
//
// # Profile Management
//
// Measured profiles persist in memory for the session:
//
//	err = hc.SaveProfile("after-concert")
//	names := hc.ProfileNames()
//	err = hc.LoadProfile("after-concert")
//	err = hc.DeleteProfile("after-concert")
//
// # Verification
//
// The applied correction can be measured rather than trusted:
//
//	curve, err := hc.ResponseCurve()
//	for freqHz, gainDB := range curve {
//	    fmt.Printf("%5d Hz  %+.1f dB\n", freqHz, gainDB)
//	}
//
// # Deterministic Testing
//
// Audio output is injectable for reproducible tests on machines without
// sound hardware:
//
//	options := hearclear.NewOptions()
//	options.SinkFactory = func(rate int, src playback.SampleSource) (playback.Sink, error) {
//	    return playback.NewNullSink(src)
//	}
package hearclear
