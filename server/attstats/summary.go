package attstats

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Attention percentage bands for the summary histogram
const (
	highAttentionPct   = 70
	mediumAttentionPct = 30
)

// If the gap between two samples exceeds this, we assume frames were dropped
// and stop attributing wall time to the gap
const maxSampleGap = time.Second

// Summary condenses a recording's sample series into a handful of numbers.
// It is computed once, when the recording stops, and stored on the recording.
type Summary struct {
	AverageAttentionPct    float64 `json:"averageAttentionPct"`
	AverageDistractedPct   float64 `json:"averageDistractedPct"`
	AverageNotAttentivePct float64 `json:"averageNotAttentivePct"`
	StdDevAttentionPct     float64 `json:"stdDevAttentionPct"`
	MaxAttentionPct        float64 `json:"maxAttentionPct"`
	MinAttentionPct        float64 `json:"minAttentionPct"`
	AveragePeople          float64 `json:"averagePeople"`

	// Frame counts per attention band (high >= 70%, medium 30..70%, low < 30%)
	HighAttentionFrames   int `json:"highAttentionFrames"`
	MediumAttentionFrames int `json:"mediumAttentionFrames"`
	LowAttentionFrames    int `json:"lowAttentionFrames"`

	// Wall time attributed to each label, weighted by the fraction of people
	// carrying that label in each frame
	AttentiveSeconds    float64 `json:"attentiveSeconds"`
	DistractedSeconds   float64 `json:"distractedSeconds"`
	NotAttentiveSeconds float64 `json:"notAttentiveSeconds"`
}

// ComputeSummary reduces a sample series to a Summary.
// Samples must be in time order. An empty series yields a zero Summary.
func ComputeSummary(samples []Sample) Summary {
	s := Summary{}
	if len(samples) == 0 {
		return s
	}

	attentionPct := make([]float64, len(samples))
	distractedPct := make([]float64, len(samples))
	notAttentivePct := make([]float64, len(samples))
	people := make([]float64, len(samples))

	for i := range samples {
		sample := &samples[i]
		people[i] = float64(sample.Total)
		if sample.Total != 0 {
			attentionPct[i] = 100 * float64(sample.Attentive) / float64(sample.Total)
			distractedPct[i] = 100 * float64(sample.Distracted) / float64(sample.Total)
			notAttentivePct[i] = 100 * float64(sample.NotAttentive) / float64(sample.Total)
		}

		switch {
		case attentionPct[i] >= highAttentionPct:
			s.HighAttentionFrames++
		case attentionPct[i] >= mediumAttentionPct:
			s.MediumAttentionFrames++
		default:
			s.LowAttentionFrames++
		}

		if i > 0 {
			gap := samples[i].Time.Get().Sub(samples[i-1].Time.Get())
			if gap > 0 && gap <= maxSampleGap {
				seconds := gap.Seconds()
				s.AttentiveSeconds += seconds * attentionPct[i] / 100
				s.DistractedSeconds += seconds * distractedPct[i] / 100
				s.NotAttentiveSeconds += seconds * notAttentivePct[i] / 100
			}
		}
	}

	s.AverageAttentionPct = stat.Mean(attentionPct, nil)
	s.AverageDistractedPct = stat.Mean(distractedPct, nil)
	s.AverageNotAttentivePct = stat.Mean(notAttentivePct, nil)
	s.AveragePeople = stat.Mean(people, nil)
	s.MaxAttentionPct = floats.Max(attentionPct)
	s.MinAttentionPct = floats.Min(attentionPct)
	if len(samples) > 1 {
		s.StdDevAttentionPct = stat.StdDev(attentionPct, nil)
	}
	return s
}
