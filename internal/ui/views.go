package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/opd-ai/hearclear/audiometry"
)

// audiogramLevelStep is the row spacing of the audiogram grid in dB.
const audiogramLevelStep = 10

// frequencyLabels returns compact column headers for the audiometric
// frequencies.
func frequencyLabels() []string {
	labels := make([]string, len(audiometry.TestFrequencies))
	for i, freqHz := range audiometry.TestFrequencies {
		if freqHz >= 1000 {
			labels[i] = fmt.Sprintf("%dk", freqHz/1000)
		} else {
			labels[i] = fmt.Sprintf("%d", freqHz)
		}
	}
	return labels
}

// renderTestView renders the in-progress test screen.
func renderTestView(m TestModel) string {
	var b strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5F87FF")).
		Render("HearClear Hearing Test")
	b.WriteString(title)
	b.WriteString("\n\n")

	if m.status.FrequencyCount > 0 {
		b.WriteString(fmt.Sprintf("Frequency %d of %d: %d Hz at %.0f dB HL\n\n",
			m.status.FrequencyIndex+1, m.status.FrequencyCount,
			m.status.FrequencyHz, m.status.LevelDB))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#5F87FF")).
		Padding(0, 1).
		Width(52)

	switch m.status.Phase {
	case audiometry.PhasePlayingTone:
		b.WriteString(box.Render("Listen carefully, a tone is playing now."))
	case audiometry.PhaseAwaitingResponse:
		prompt := lipgloss.NewStyle().Bold(true).
			Render("Did you hear the tone?") + "\n\n[y]es    [n]o"
		b.WriteString(box.Render(prompt))
	default:
		b.WriteString(box.Render("Preparing..."))
	}
	b.WriteString("\n\n")

	results := m.ctrl.TestResults()
	if len(results) > 0 {
		b.WriteString(fmt.Sprintf("Thresholds measured: %d of %d\n",
			len(results), len(audiometry.TestFrequencies)))
	}

	hint := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render("press q to cancel")
	b.WriteString("\n" + hint)

	return b.String()
}

// renderSummary renders the completed-test screen with the audiogram.
func renderSummary(profile audiometry.HearingProfile) string {
	var b strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00AA00")).
		Render("Test Complete")
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString(renderAudiogram(profile))
	b.WriteString("\n")

	if average, err := profile.PureToneAverage(); err == nil {
		degree := audiometry.ClassifyLoss(average)
		b.WriteString(fmt.Sprintf("Pure-tone average: %.1f dB HL (%s)\n", average, degree))
	} else {
		b.WriteString("No audible thresholds in the speech range.\n")
	}

	b.WriteString("Correction applied and saved as the latest profile.\n\n")
	b.WriteString(lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render("press q to exit"))

	return b.String()
}

// renderAudiogram draws measured thresholds on a level-by-frequency
// grid: level increases downwards as on a clinical audiogram, and
// frequencies never heard sit on the NR row below the scale.
func renderAudiogram(profile audiometry.HearingProfile) string {
	var b strings.Builder

	marker := lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000")).Render("O")
	unheard := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Render("x")

	b.WriteString("  dB HL ")
	for _, label := range frequencyLabels() {
		b.WriteString(fmt.Sprintf("%5s", label))
	}
	b.WriteString("\n")

	// Styled glyphs carry escape codes, so cells are padded by hand
	// rather than with a width verb.
	for level := 0; level <= int(audiometry.MaxLevelDB); level += audiogramLevelStep {
		b.WriteString(fmt.Sprintf("  %5d ", level))
		for _, freqHz := range audiometry.TestFrequencies {
			cell := "·"
			if threshold, ok := profile.Threshold(freqHz); ok && threshold != audiometry.NotHeard {
				if nearestRow(threshold) == level {
					cell = marker
				}
			}
			b.WriteString("    " + cell)
		}
		b.WriteString("\n")
	}

	b.WriteString("     NR ")
	for _, freqHz := range audiometry.TestFrequencies {
		cell := "·"
		if threshold, ok := profile.Threshold(freqHz); ok && threshold == audiometry.NotHeard {
			cell = unheard
		}
		b.WriteString("    " + cell)
	}
	b.WriteString("\n")

	return b.String()
}

// nearestRow snaps a threshold to the closest audiogram grid row.
func nearestRow(threshold float64) int {
	row := int(threshold/audiogramLevelStep+0.5) * audiogramLevelStep
	if row > int(audiometry.MaxLevelDB) {
		row = int(audiometry.MaxLevelDB)
	}
	return row
}

// renderError renders a fatal session error.
func renderError(err error) string {
	icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000")).Render("x")
	return fmt.Sprintf(" %s Test failed: %v\n", icon, err)
}
