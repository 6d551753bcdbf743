package attstats

import (
	"fmt"
	"sync"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/gaze/server/attention"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

// Number of samples we buffer in memory before writing them to the database.
// Batching keeps the per-frame cost of recording negligible.
const sampleFlushThreshold = 256

// AttStats records per-frame attention counts against recordings, and
// produces summary statistics when a recording stops.
type AttStats struct {
	log logs.Log
	db  *gorm.DB

	lock   sync.Mutex
	active map[int64]*activeRecording // Recording ID -> buffered state
}

type activeRecording struct {
	recording Recording
	pending   []Sample // Samples not yet written to the DB
}

// Open or create the stats DB
func Open(logger logs.Log, dbFilename string) (*AttStats, error) {
	logger = logs.NewPrefixLogger(logger, "AttStats")
	db, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbFilename), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database %v: %w", dbFilename, err)
	}
	return &AttStats{
		log:    logger,
		db:     db,
		active: map[int64]*activeRecording{},
	}, nil
}

// StartRecording creates a new recording for the camera and returns its id
func (s *AttStats) StartRecording(camera int64, name string) (int64, error) {
	rec := Recording{
		Camera:    camera,
		Name:      name,
		StartTime: dbh.MakeIntTime(time.Now()),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("failed to create recording: %w", err)
	}

	s.lock.Lock()
	s.active[rec.ID] = &activeRecording{recording: rec}
	s.lock.Unlock()

	s.log.Infof("Started recording %v on camera %v", rec.ID, camera)
	return rec.ID, nil
}

// RecordFrame adds one frame's counts to the recording.
// Frames for a recording that is not active are silently discarded; this
// happens naturally when a recording is stopped while frames are in flight.
func (s *AttStats) RecordFrame(recordingID int64, framePTS time.Time, counts attention.Counts) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	active := s.active[recordingID]
	if active == nil {
		return nil
	}
	active.pending = append(active.pending, Sample{
		RecordingID:  recordingID,
		Time:         dbh.MakeIntTime(framePTS),
		Attentive:    counts.Attentive,
		Distracted:   counts.Distracted,
		NotAttentive: counts.NotAttentive,
		Total:        counts.Total,
	})
	active.recording.NumFrames++
	if len(active.pending) >= sampleFlushThreshold {
		return s.flushLocked(active)
	}
	return nil
}

// Must be called with lock held
func (s *AttStats) flushLocked(active *activeRecording) error {
	if len(active.pending) == 0 {
		return nil
	}
	if err := s.db.Create(&active.pending).Error; err != nil {
		return fmt.Errorf("failed to write %v samples: %w", len(active.pending), err)
	}
	active.pending = nil
	return nil
}

// StopRecording flushes the recording's samples, computes its summary, and
// returns the finalized recording
func (s *AttStats) StopRecording(recordingID int64) (*Recording, error) {
	s.lock.Lock()
	active := s.active[recordingID]
	if active == nil {
		s.lock.Unlock()
		return nil, fmt.Errorf("recording %v is not active", recordingID)
	}
	delete(s.active, recordingID)
	err := s.flushLocked(active)
	s.lock.Unlock()
	if err != nil {
		return nil, err
	}

	samples, err := s.Samples(recordingID)
	if err != nil {
		return nil, err
	}
	summary := ComputeSummary(samples)

	rec := active.recording
	rec.EndTime = dbh.MakeIntTime(time.Now())
	rec.Summary = dbh.MakeJSONField(summary)
	if err := s.db.Save(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to finalize recording %v: %w", recordingID, err)
	}

	s.log.Infof("Stopped recording %v (%v frames, %.1f%% average attention)",
		recordingID, rec.NumFrames, summary.AverageAttentionPct)
	return &rec, nil
}

// GetRecording fetches one recording by id
func (s *AttStats) GetRecording(recordingID int64) (*Recording, error) {
	rec := Recording{}
	if err := s.db.First(&rec, recordingID).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecordings returns all recordings for a camera, newest first.
// camera = 0 returns recordings for all cameras.
func (s *AttStats) ListRecordings(camera int64) ([]Recording, error) {
	recs := []Recording{}
	q := s.db.Order("start_time DESC")
	if camera != 0 {
		q = q.Where("camera = ?", camera)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Samples returns the full sample series of a recording, in time order
func (s *AttStats) Samples(recordingID int64) ([]Sample, error) {
	samples := []Sample{}
	if err := s.db.Where("recording_id = ?", recordingID).Order("time").Find(&samples).Error; err != nil {
		return nil, err
	}
	return samples, nil
}

// Close flushes any active recordings without computing summaries.
// Recordings left active are resumable in the sense that their samples are
// preserved, but they will have no summary.
func (s *AttStats) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for id, active := range s.active {
		if err := s.flushLocked(active); err != nil {
			s.log.Errorf("Failed to flush recording %v during close: %v", id, err)
		}
	}
	s.active = map[int64]*activeRecording{}
}
