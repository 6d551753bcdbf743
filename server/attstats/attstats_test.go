package attstats

import (
	"os"
	"testing"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/gaze/server/attention"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *AttStats {
	t.Helper()
	removeTestDB := func() {
		os.Remove("test_attstats.sqlite")
		os.Remove("test_attstats.sqlite-shm")
		os.Remove("test_attstats.sqlite-wal")
	}
	removeTestDB()
	t.Cleanup(removeTestDB)
	s, err := Open(logs.NewTestingLog(t), "test_attstats.sqlite")
	require.NoError(t, err)
	return s
}

func TestRecordingLifecycle(t *testing.T) {
	s := setup(t)
	defer s.Close()

	recordingID, err := s.StartRecording(3, "morning session")
	require.NoError(t, err)

	baseTime := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for frame := 0; frame < 20; frame++ {
		counts := attention.Counts{Attentive: 3, Distracted: 1, NotAttentive: 1, Total: 5}
		if frame >= 10 {
			counts = attention.Counts{Attentive: 1, Distracted: 2, NotAttentive: 2, Total: 5}
		}
		err = s.RecordFrame(recordingID, baseTime.Add(time.Duration(frame)*50*time.Millisecond), counts)
		require.NoError(t, err)
	}

	rec, err := s.StopRecording(recordingID)
	require.NoError(t, err)
	require.Equal(t, int64(20), rec.NumFrames)
	require.NotNil(t, rec.Summary)

	summary := rec.Summary.Data
	require.InDelta(t, 40.0, summary.AverageAttentionPct, 1e-9) // half at 60%, half at 20%
	require.Equal(t, 60.0, summary.MaxAttentionPct)
	require.Equal(t, 20.0, summary.MinAttentionPct)
	require.InDelta(t, 5.0, summary.AveragePeople, 1e-9)

	// Stopping twice is an error
	_, err = s.StopRecording(recordingID)
	require.Error(t, err)

	// Frames for a stopped recording are discarded, not an error
	require.NoError(t, s.RecordFrame(recordingID, baseTime.Add(time.Second), attention.Counts{Total: 1}))

	recs, err := s.ListRecordings(3)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "morning session", recs[0].Name)

	recs, err = s.ListRecordings(99)
	require.NoError(t, err)
	require.Empty(t, recs)

	samples, err := s.Samples(recordingID)
	require.NoError(t, err)
	require.Len(t, samples, 20)
	require.Equal(t, 3, samples[0].Attentive)
	require.Equal(t, 60.0, samples[0].AttentionPct())
	require.NotZero(t, rec.EndTime)
	require.GreaterOrEqual(t, rec.Duration(), time.Duration(0))
}

func TestComputeSummary(t *testing.T) {
	require.Equal(t, Summary{}, ComputeSummary(nil))

	baseTime := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	mkSample := func(frame, attentive, distracted, notAttentive int) Sample {
		return Sample{
			Time:         dbh.MakeIntTime(baseTime.Add(time.Duration(frame) * 50 * time.Millisecond)),
			Attentive:    attentive,
			Distracted:   distracted,
			NotAttentive: notAttentive,
			Total:        attentive + distracted + notAttentive,
		}
	}
	samples := []Sample{
		mkSample(0, 2, 0, 0), // 100%
		mkSample(1, 1, 1, 0), // 50%
		mkSample(2, 0, 1, 1), // 0%
		mkSample(3, 2, 0, 0), // 100%
	}

	summary := ComputeSummary(samples)
	require.InDelta(t, 62.5, summary.AverageAttentionPct, 1e-9)
	require.Equal(t, 100.0, summary.MaxAttentionPct)
	require.Equal(t, 0.0, summary.MinAttentionPct)
	require.Equal(t, 2, summary.HighAttentionFrames)
	require.Equal(t, 1, summary.MediumAttentionFrames)
	require.Equal(t, 1, summary.LowAttentionFrames)
	require.InDelta(t, 0.05*(0.5+0+1.0), summary.AttentiveSeconds, 1e-9)

	// A sample gap longer than maxSampleGap contributes no wall time
	samples = []Sample{
		mkSample(0, 1, 0, 0),
		{
			Time:      dbh.MakeIntTime(baseTime.Add(time.Minute)),
			Attentive: 1,
			Total:     1,
		},
	}
	summary = ComputeSummary(samples)
	require.Equal(t, 0.0, summary.AttentiveSeconds)
}
