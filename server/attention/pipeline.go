package attention

import (
	"fmt"
	"sync"
	"time"

	"github.com/cyclopcam/gaze/pkg/nn"
	"github.com/cyclopcam/logs"
)

// Result is the attention verdict for one tracked person in one frame.
// Immutable once produced.
type Result struct {
	ID         int64   `json:"id"`
	Box        nn.Rect `json:"box"`
	Label      Label   `json:"label"`
	Confidence float32 `json:"confidence"`
	// Head direction unit vector in image space, for arrow overlays.
	// Nil when we have no usable pose.
	Direction *[2]float32 `json:"direction,omitempty"`
	// Number of frames in which this person has been detected
	Sightings int       `json:"sightings"`
	FirstSeen time.Time `json:"firstSeen"`
	// Pixels travelled since the oldest retained position
	Movement float32 `json:"movement"`
}

// Counts are recomputed from scratch every frame. There are no running
// totals in here; cumulative statistics belong to attstats.
type Counts struct {
	Attentive    int `json:"attentive"`
	Distracted   int `json:"distracted"`
	NotAttentive int `json:"notAttentive"`
	Total        int `json:"total"`
}

func (c *Counts) add(l Label) {
	switch l {
	case LabelAttentive:
		c.Attentive++
	case LabelDistracted:
		c.Distracted++
	case LabelNotAttentive:
		c.NotAttentive++
	}
	c.Total++
}

// FrameAnalysis is everything we produce for a single frame
type FrameAnalysis struct {
	FramePTS time.Time `json:"framePTS"`
	Results  []Result  `json:"results"`
	Counts   Counts    `json:"counts"`
}

// Session is the attention pipeline for one camera (or one video job).
// It is the sole owner of the track set and the pose history. Frames must be
// fed strictly in arrival order; the tracker's disappearance bookkeeping and
// the pose smoothing both depend on sequential continuity.
//
// Independent sessions share no state, so multiple cameras run as multiple
// Session objects with no coordination between them.
type Session struct {
	log      logs.Log
	settings Settings

	// Guards tracker + history. ProcessFrame is the unit of atomicity; a
	// concurrent Reset (eg from an API call) never observes a half-processed frame.
	lock       sync.Mutex
	tracker    *tracker
	history    *poseHistory
	frameCount int64
}

func NewSession(logger logs.Log, settings Settings) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid attention settings: %w", err)
	}
	s := &Session{
		log:      logger,
		settings: settings,
	}
	s.tracker = newTracker(&s.settings)
	s.history = newPoseHistory(&s.settings)
	return s, nil
}

func (s *Session) Settings() Settings {
	return s.settings
}

// ProcessFrame runs one frame through tracking, pose scoring, and
// classification, and returns a result per live track.
//
// poses[i] is the pose estimate for detections[i]. A short poses slice is
// legal: detections without a pose are treated as face-not-detected. Extra
// poses beyond len(detections) are ignored. This is a total function over any
// well-formed input; zero detections and first-ever frames are ordinary cases.
func (s *Session) ProcessFrame(detections []nn.Detection, poses []nn.FacePose, frameWidth, frameHeight int, framePTS time.Time) *FrameAnalysis {
	s.lock.Lock()
	defer s.lock.Unlock()

	_, removed := s.tracker.update(detections, frameWidth, frameHeight, framePTS)
	s.history.remove(removed)

	analysis := &FrameAnalysis{
		FramePTS: framePTS,
		Results:  make([]Result, 0, len(s.tracker.tracks)), // non-nil, so JSON output is always an array
	}

	for _, t := range s.tracker.tracks {
		var pose *nn.FacePose
		if t.matchedDetection >= 0 && t.matchedDetection < len(poses) {
			pose = &poses[t.matchedDetection]
		}
		yaw, pitch, havePose, smoothed := s.history.observe(t.id, pose)
		label := classify(&s.settings, yaw, pitch, havePose, smoothed)

		result := Result{
			ID:         t.id,
			Box:        t.box,
			Label:      label,
			Confidence: smoothed,
			Sightings:  t.totalSightings,
			FirstSeen:  t.firstSeen,
			Movement:   t.distanceFromOrigin(),
		}
		if havePose {
			dx, dy := nn.FacePose{Yaw: yaw, Pitch: pitch, FaceDetected: true}.DirectionVector()
			result.Direction = &[2]float32{dx, dy}
		}
		analysis.Results = append(analysis.Results, result)
		analysis.Counts.add(label)
	}

	s.frameCount++
	return analysis
}

// Reset clears the track set, the pose history, and the id counter.
// Used when a session restarts (eg a new stream on the same camera).
// Atomic with respect to ProcessFrame.
func (s *Session) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tracker.reset()
	s.history.reset()
	s.log.Infof("Attention session reset after %v frames", s.frameCount)
	s.frameCount = 0
}

// LiveTrackCount returns the number of people currently being tracked,
// including those in their disappearance grace period.
func (s *Session) LiveTrackCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.tracker.liveTrackCount()
}
