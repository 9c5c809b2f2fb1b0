package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/hearclear/audiometry"
)

// stubController walks the test phases the way the real engine does,
// without any audio behind it.
type stubController struct {
	phase     audiometry.TestPhase
	freqIndex int
	levelDB   float64
	results   audiometry.HearingProfile

	startErr    error
	responseErr error
	starts      int
	stops       int
	responses   []bool
	cancels     int
}

func newStubController() *stubController {
	return &stubController{results: audiometry.HearingProfile{}}
}

func (s *stubController) StartTest() (string, error) {
	if s.startErr != nil {
		return "", s.startErr
	}
	s.starts++
	s.phase = audiometry.PhasePlayingTone
	s.freqIndex = 0
	s.levelDB = audiometry.StartLevelDB
	return "session", nil
}

func (s *stubController) StopTestTone() error {
	s.stops++
	if s.phase == audiometry.PhasePlayingTone {
		s.phase = audiometry.PhaseAwaitingResponse
	}
	return nil
}

func (s *stubController) RecordResponse(heard bool) error {
	if s.responseErr != nil {
		return s.responseErr
	}
	s.responses = append(s.responses, heard)
	if heard {
		s.results[audiometry.TestFrequencies[s.freqIndex]] = s.levelDB
		s.freqIndex++
		s.levelDB = audiometry.StartLevelDB
		if s.freqIndex >= len(audiometry.TestFrequencies) {
			s.phase = audiometry.PhaseComplete
			return nil
		}
	} else {
		s.levelDB += audiometry.LevelStepDB
	}
	s.phase = audiometry.PhasePlayingTone
	return nil
}

func (s *stubController) CancelTest() error {
	s.cancels++
	s.phase = audiometry.PhaseIdle
	s.results = audiometry.HearingProfile{}
	return nil
}

func (s *stubController) TestStatus() audiometry.TestStatus {
	status := audiometry.TestStatus{
		Phase:          s.phase,
		LevelDB:        s.levelDB,
		FrequencyIndex: s.freqIndex,
		FrequencyCount: len(audiometry.TestFrequencies),
	}
	if s.phase.Active() {
		status.FrequencyHz = audiometry.TestFrequencies[s.freqIndex]
	}
	return status
}

func (s *stubController) TestResults() audiometry.HearingProfile {
	return s.results
}

func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// step applies a message and returns the typed model.
func step(t *testing.T, m TestModel, msg tea.Msg) (TestModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(TestModel)
	require.True(t, ok, "Update must return a TestModel")
	return model, cmd
}

func TestModelStartsTestOnInit(t *testing.T) {
	ctrl := newStubController()
	m := NewTestModel(ctrl)

	cmd := m.Init()
	require.NotNil(t, cmd)
	msg := cmd()

	started, ok := msg.(testStartedMsg)
	require.True(t, ok)
	assert.NoError(t, started.err)
	assert.Equal(t, 1, ctrl.starts)
	assert.Equal(t, audiometry.PhasePlayingTone, ctrl.phase)
}

func TestModelStartFailureQuits(t *testing.T) {
	ctrl := newStubController()
	ctrl.startErr = errors.New("device unavailable")
	m := NewTestModel(ctrl)

	msg := m.Init()()
	m, cmd := step(t, m, msg)

	assert.Error(t, m.Err)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModelPresentationTimerPromptsListener(t *testing.T) {
	ctrl := newStubController()
	m := NewTestModel(ctrl)
	m, cmd := step(t, m, m.Init()())
	require.NotNil(t, cmd, "a presentation timer should be armed")

	m, _ = step(t, m, presentationDoneMsg{seq: m.seq})
	assert.Equal(t, 1, ctrl.stops)
	assert.Equal(t, audiometry.PhaseAwaitingResponse, ctrl.phase)
	assert.Contains(t, m.View(), "Did you hear the tone?")
}

func TestModelStaleTimerIgnored(t *testing.T) {
	ctrl := newStubController()
	m := NewTestModel(ctrl)
	m, _ = step(t, m, m.Init()())

	// A timer from a presentation that no longer exists does nothing.
	m, _ = step(t, m, presentationDoneMsg{seq: m.seq - 1})
	assert.Equal(t, 0, ctrl.stops)
	assert.Equal(t, audiometry.PhasePlayingTone, ctrl.phase)
}

func TestModelRecordsResponses(t *testing.T) {
	ctrl := newStubController()
	m := NewTestModel(ctrl)
	m, _ = step(t, m, m.Init()())
	m, _ = step(t, m, presentationDoneMsg{seq: m.seq})

	m, cmd := step(t, m, keyMsg("n"))
	require.Equal(t, []bool{false}, ctrl.responses)
	assert.Equal(t, 35.0, ctrl.levelDB)
	require.NotNil(t, cmd, "a new presentation timer should be armed")

	m, _ = step(t, m, presentationDoneMsg{seq: m.seq})
	m, _ = step(t, m, keyMsg("y"))
	assert.Equal(t, []bool{false, true}, ctrl.responses)
	assert.Equal(t, 35.0, ctrl.results[125])
}

func TestModelResponseKeysIgnoredWhenIdle(t *testing.T) {
	ctrl := newStubController()
	m := NewTestModel(ctrl)

	m, cmd := step(t, m, keyMsg("y"))
	assert.Nil(t, cmd)
	assert.Empty(t, ctrl.responses)
	_ = m
}

func TestModelCompletesAfterAllFrequencies(t *testing.T) {
	ctrl := newStubController()
	m := NewTestModel(ctrl)
	m, _ = step(t, m, m.Init()())

	for range audiometry.TestFrequencies {
		m, _ = step(t, m, presentationDoneMsg{seq: m.seq})
		m, _ = step(t, m, keyMsg("y"))
	}

	assert.True(t, m.done)
	assert.Equal(t, audiometry.PhaseComplete, ctrl.phase)

	view := m.View()
	assert.Contains(t, view, "Test Complete")
	assert.Contains(t, view, "Pure-tone average: 30.0 dB HL (mild)")
}

func TestModelCancelOnQuit(t *testing.T) {
	ctrl := newStubController()
	m := NewTestModel(ctrl)
	m, _ = step(t, m, m.Init()())

	m, cmd := step(t, m, keyMsg("q"))
	assert.Equal(t, 1, ctrl.cancels)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	_ = m
}

func TestModelQuitAfterCompletionDoesNotCancel(t *testing.T) {
	ctrl := newStubController()
	m := NewTestModel(ctrl)
	m, _ = step(t, m, m.Init()())

	for range audiometry.TestFrequencies {
		m, _ = step(t, m, presentationDoneMsg{seq: m.seq})
		m, _ = step(t, m, keyMsg("y"))
	}
	require.True(t, m.done)

	m, cmd := step(t, m, keyMsg("q"))
	assert.Equal(t, 0, ctrl.cancels)
	require.NotNil(t, cmd)
	_ = m
}

func TestModelResponseErrorQuits(t *testing.T) {
	ctrl := newStubController()
	m := NewTestModel(ctrl)
	m, _ = step(t, m, m.Init()())
	m, _ = step(t, m, presentationDoneMsg{seq: m.seq})

	ctrl.responseErr = errors.New("engine stopped")
	m, cmd := step(t, m, keyMsg("y"))
	assert.Error(t, m.Err)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Test failed")
}

func TestAudiogramMarksThresholdsAndUnheard(t *testing.T) {
	profile := audiometry.HearingProfile{
		125:  30,
		250:  45,
		8000: audiometry.NotHeard,
	}

	gram := renderAudiogram(profile)
	lines := strings.Split(gram, "\n")

	// Header plus rows 0 through 90 plus the NR row.
	require.GreaterOrEqual(t, len(lines), 12)
	assert.Contains(t, lines[0], "125")
	assert.Contains(t, lines[0], "8k")

	var row30, row50, rowNR string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "     30 "):
			row30 = line
		case strings.HasPrefix(line, "     50 "):
			row50 = line
		case strings.HasPrefix(line, "     NR "):
			rowNR = line
		}
	}
	assert.Contains(t, row30, "O", "125 Hz threshold of 30 sits on the 30 row")
	assert.Contains(t, row50, "O", "250 Hz threshold of 45 snaps to the 50 row")
	assert.Contains(t, rowNR, "x", "unheard 8 kHz lands on the NR row")
}

func TestNearestRow(t *testing.T) {
	tests := []struct {
		threshold float64
		want      int
	}{
		{threshold: 0, want: 0},
		{threshold: 30, want: 30},
		{threshold: 34, want: 30},
		{threshold: 35, want: 40},
		{threshold: 45, want: 50},
		{threshold: 90, want: 90},
	}
	for _, tt := range tests {
		if got := nearestRow(tt.threshold); got != tt.want {
			t.Errorf("nearestRow(%f) = %d, want %d", tt.threshold, got, tt.want)
		}
	}
}
