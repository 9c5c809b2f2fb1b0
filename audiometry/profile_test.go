package audiometry

import (
	"errors"
	"testing"
)

func TestHearingProfileThreshold(t *testing.T) {
	profile := HearingProfile{1000: 25, 4000: NotHeard}

	level, ok := profile.Threshold(1000)
	if !ok || level != 25 {
		t.Errorf("Threshold(1000) = (%f, %v), want (25, true)", level, ok)
	}

	level, ok = profile.Threshold(4000)
	if !ok || level != NotHeard {
		t.Errorf("Threshold(4000) = (%f, %v), want sentinel, true", level, ok)
	}

	if _, ok := profile.Threshold(250); ok {
		t.Error("Threshold(250) reported a measurement that was never taken")
	}
}

func TestHearingProfileHeard(t *testing.T) {
	profile := HearingProfile{500: 0, 1000: 45, 2000: NotHeard}

	tests := []struct {
		freqHz int
		want   bool
	}{
		{freqHz: 500, want: true},
		{freqHz: 1000, want: true},
		{freqHz: 2000, want: false},
		{freqHz: 8000, want: false},
	}

	for _, tt := range tests {
		if got := profile.Heard(tt.freqHz); got != tt.want {
			t.Errorf("Heard(%d) = %v, want %v", tt.freqHz, got, tt.want)
		}
	}
}

func TestHearingProfileIsComplete(t *testing.T) {
	profile := HearingProfile{}
	if profile.IsComplete() {
		t.Error("empty profile reported complete")
	}

	for _, freq := range TestFrequencies[:len(TestFrequencies)-1] {
		profile[freq] = 30
	}
	if profile.IsComplete() {
		t.Error("profile missing one frequency reported complete")
	}

	profile[TestFrequencies[len(TestFrequencies)-1]] = NotHeard
	if !profile.IsComplete() {
		t.Error("profile with every frequency measured reported incomplete")
	}
}

func TestHearingProfileClone(t *testing.T) {
	original := HearingProfile{500: 20, 1000: 35}
	clone := original.Clone()

	clone[500] = 80
	clone[8000] = 10

	if original[500] != 20 {
		t.Errorf("mutating clone changed original: got %f, want 20", original[500])
	}
	if _, ok := original.Threshold(8000); ok {
		t.Error("adding to clone added to original")
	}

	if got := HearingProfile(nil).Clone(); got == nil || len(got) != 0 {
		t.Errorf("nil profile clone = %v, want empty map", got)
	}
}

func TestPureToneAverage(t *testing.T) {
	profile := HearingProfile{500: 20, 1000: 30, 2000: 40, 4000: 50}

	avg, err := profile.PureToneAverage()
	if err != nil {
		t.Fatalf("PureToneAverage() error: %v", err)
	}
	if avg != 35 {
		t.Errorf("PureToneAverage() = %f, want 35", avg)
	}
}

func TestPureToneAverageIgnoresOuterFrequencies(t *testing.T) {
	// 125 and 8000 Hz sit outside the speech range the average
	// summarizes; extreme values there must not move it.
	profile := HearingProfile{
		125: 90, 500: 20, 1000: 20, 2000: 20, 4000: 20, 8000: 90,
	}

	avg, err := profile.PureToneAverage()
	if err != nil {
		t.Fatalf("PureToneAverage() error: %v", err)
	}
	if avg != 20 {
		t.Errorf("PureToneAverage() = %f, want 20", avg)
	}
}

func TestPureToneAverageSkipsUnheard(t *testing.T) {
	profile := HearingProfile{500: 30, 1000: NotHeard, 2000: 60}

	avg, err := profile.PureToneAverage()
	if err != nil {
		t.Fatalf("PureToneAverage() error: %v", err)
	}
	if avg != 45 {
		t.Errorf("PureToneAverage() = %f, want 45 (sentinel excluded)", avg)
	}
}

func TestPureToneAverageNoAudibleThresholds(t *testing.T) {
	tests := []struct {
		name    string
		profile HearingProfile
	}{
		{name: "empty", profile: HearingProfile{}},
		{name: "all_unheard", profile: HearingProfile{500: NotHeard, 1000: NotHeard}},
		{name: "only_outer_frequencies", profile: HearingProfile{125: 20, 8000: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.profile.PureToneAverage(); !errors.Is(err, ErrNoAudibleThresholds) {
				t.Errorf("PureToneAverage() error = %v, want ErrNoAudibleThresholds", err)
			}
		})
	}
}

func TestClassifyLoss(t *testing.T) {
	tests := []struct {
		averageDB float64
		want      LossDegree
	}{
		{averageDB: 0, want: LossNormal},
		{averageDB: 20, want: LossNormal},
		{averageDB: 21, want: LossMild},
		{averageDB: 40, want: LossMild},
		{averageDB: 41, want: LossModerate},
		{averageDB: 70, want: LossModerate},
		{averageDB: 71, want: LossSevere},
		{averageDB: 90, want: LossSevere},
		{averageDB: 91, want: LossProfound},
	}

	for _, tt := range tests {
		if got := ClassifyLoss(tt.averageDB); got != tt.want {
			t.Errorf("ClassifyLoss(%f) = %v, want %v", tt.averageDB, got, tt.want)
		}
	}
}

func TestLossDegreeString(t *testing.T) {
	tests := []struct {
		degree LossDegree
		want   string
	}{
		{degree: LossNormal, want: "normal"},
		{degree: LossMild, want: "mild"},
		{degree: LossModerate, want: "moderate"},
		{degree: LossSevere, want: "severe"},
		{degree: LossProfound, want: "profound"},
		{degree: LossDegree(42), want: "unknown"},
	}

	for _, tt := range tests {
		if got := tt.degree.String(); got != tt.want {
			t.Errorf("LossDegree(%d).String() = %q, want %q", tt.degree, got, tt.want)
		}
	}
}
