package ui

// testStartedMsg reports the outcome of starting the threshold test.
type testStartedMsg struct {
	err error
}

// presentationDoneMsg fires when the current tone has sounded long
// enough. The sequence number identifies which presentation the timer
// was armed for, so a late timer from an already-answered tone is
// ignored.
type presentationDoneMsg struct {
	seq int
}
