// Package ui provides the Bubbletea terminal user interface for the
// interactive hearing threshold test.
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/opd-ai/hearclear/audiometry"
)

// toneDuration is how long each tone sounds before the listener is
// asked whether they heard it.
const toneDuration = 1500 * time.Millisecond

// Controller is the slice of the HearClear API the test UI drives.
type Controller interface {
	StartTest() (string, error)
	StopTestTone() error
	RecordResponse(heard bool) error
	CancelTest() error
	TestStatus() audiometry.TestStatus
	TestResults() audiometry.HearingProfile
}

// TestModel is the Bubbletea model for a threshold test session.
type TestModel struct {
	ctrl Controller

	status    audiometry.TestStatus
	responses int
	seq       int
	done      bool
	cancelled bool

	// Err holds the failure that ended the session, if any. The
	// command layer inspects it after the program exits.
	Err error

	width  int
	height int
}

// NewTestModel creates the model for one test session.
func NewTestModel(ctrl Controller) TestModel {
	return TestModel{ctrl: ctrl}
}

// Init starts the test as soon as the program is running.
func (m TestModel) Init() tea.Cmd {
	return m.startTest
}

func (m TestModel) startTest() tea.Msg {
	_, err := m.ctrl.StartTest()
	return testStartedMsg{err: err}
}

// presentationTimer arms the timer that ends the given presentation.
func presentationTimer(seq int) tea.Cmd {
	return tea.Tick(toneDuration, func(time.Time) tea.Msg {
		return presentationDoneMsg{seq: seq}
	})
}

// Update handles messages and updates the model.
func (m TestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case testStartedMsg:
		if msg.err != nil {
			m.Err = msg.err
			return m, tea.Quit
		}
		m.status = m.ctrl.TestStatus()
		m.seq++
		return m, presentationTimer(m.seq)

	case presentationDoneMsg:
		// A timer armed for an earlier tone can fire after the
		// listener already answered; only the current one counts.
		if msg.seq != m.seq || m.done {
			return m, nil
		}
		m.ctrl.StopTestTone()
		m.status = m.ctrl.TestStatus()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m TestModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if !m.done {
			m.ctrl.CancelTest()
			m.cancelled = true
		}
		return m, tea.Quit

	case "y", "n":
		if m.done || !m.status.Phase.Active() {
			return m, nil
		}
		if err := m.ctrl.RecordResponse(msg.String() == "y"); err != nil {
			m.Err = err
			return m, tea.Quit
		}
		m.responses++
		m.status = m.ctrl.TestStatus()
		if m.status.Phase == audiometry.PhaseComplete {
			m.done = true
			return m, nil
		}
		m.seq++
		return m, presentationTimer(m.seq)
	}

	return m, nil
}

// View renders the UI.
func (m TestModel) View() string {
	if m.Err != nil {
		return renderError(m.Err)
	}
	if m.done {
		return renderSummary(m.ctrl.TestResults())
	}
	return renderTestView(m)
}
