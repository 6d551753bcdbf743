package attstats

import (
	"time"

	"github.com/cyclopcam/dbh"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// A recording is one contiguous attention analysis run on one camera.
// SYNC-ATTSTATS-RECORDING
type Recording struct {
	BaseModel
	Camera    int64                   `json:"camera"`
	Name      string                  `json:"name"` // Optional friendly name, eg "Tuesday lecture"
	StartTime dbh.IntTime             `json:"startTime"`
	EndTime   dbh.IntTime             `json:"endTime"`
	NumFrames int64                   `json:"numFrames"`
	Summary   *dbh.JSONField[Summary] `json:"summary"` // Computed once, when the recording stops
}

func (Recording) TableName() string {
	return "recording"
}

// Duration of the recording, or zero if it has not been stopped yet
func (r *Recording) Duration() time.Duration {
	if r.EndTime == 0 {
		return 0
	}
	return r.EndTime.Get().Sub(r.StartTime.Get())
}

// One frame's aggregate attention counts.
// SYNC-ATTSTATS-SAMPLE
type Sample struct {
	BaseModel
	RecordingID  int64       `json:"recordingID"`
	Time         dbh.IntTime `json:"time"`
	Attentive    int         `json:"attentive"`
	Distracted   int         `json:"distracted"`
	NotAttentive int         `json:"notAttentive"`
	Total        int         `json:"total"`
}

func (Sample) TableName() string {
	return "sample"
}

// AttentionPct is the percentage of visible people who are attentive
func (s *Sample) AttentionPct() float64 {
	if s.Total == 0 {
		return 0
	}
	return 100 * float64(s.Attentive) / float64(s.Total)
}
