package attention

import (
	"github.com/chewxy/math32"
	"github.com/cyclopcam/gaze/pkg/gen"
	"github.com/cyclopcam/gaze/pkg/nn"
)

// confidenceWindow is a fixed-capacity FIFO over recent per-frame attention
// confidence values. When full, the oldest sample is evicted.
type confidenceWindow struct {
	samples []float32 // ring storage, capacity fixed at creation
	head    int       // index of the oldest sample
	count   int
}

func newConfidenceWindow(capacity int) confidenceWindow {
	return confidenceWindow{
		samples: make([]float32, capacity),
	}
}

func (w *confidenceWindow) push(v float32) {
	if w.count < len(w.samples) {
		w.samples[(w.head+w.count)%len(w.samples)] = v
		w.count++
	} else {
		w.samples[w.head] = v
		w.head = (w.head + 1) % len(w.samples)
	}
}

// mean returns the arithmetic mean of the window, or 0 if the window is empty
func (w *confidenceWindow) mean() float32 {
	if w.count == 0 {
		return 0
	}
	sum := float32(0)
	for i := 0; i < w.count; i++ {
		sum += w.samples[(w.head+i)%len(w.samples)]
	}
	return sum / float32(w.count)
}

// Per-track pose state
type poseRecord struct {
	window      confidenceWindow
	lastYaw     float32
	lastPitch   float32
	hasLastPose bool
	fallbackAge int // consecutive frames served from lastYaw/lastPitch
}

// poseHistory maintains, per track id, a rolling window of attention
// confidence samples and the last valid head pose. It is what makes the
// attention labels stable when the pose estimator drops a frame.
type poseHistory struct {
	settings *Settings
	records  map[int64]*poseRecord
}

func newPoseHistory(settings *Settings) *poseHistory {
	return &poseHistory{
		settings: settings,
		records:  map[int64]*poseRecord{},
	}
}

// observe folds the current frame's raw pose (or its absence) into the track's
// history, and returns the pose to classify against plus the smoothed confidence.
//
// When the face is not detected this frame but we have a last known pose, that
// pose is returned, and no confidence sample is appended. Appending one would
// let a string of fallback frames inflate the average.
func (h *poseHistory) observe(trackID int64, pose *nn.FacePose) (yaw, pitch float32, havePose bool, smoothed float32) {
	rec := h.records[trackID]
	if rec == nil {
		rec = &poseRecord{
			window: newConfidenceWindow(h.settings.WindowSize),
		}
		h.records[trackID] = rec
	}

	if pose != nil && pose.FaceDetected {
		confidence := instantConfidence(pose.Yaw, pose.Pitch)
		rec.window.push(confidence)
		rec.lastYaw = pose.Yaw
		rec.lastPitch = pose.Pitch
		rec.hasLastPose = true
		rec.fallbackAge = 0
		return pose.Yaw, pose.Pitch, true, rec.window.mean()
	}

	if rec.hasLastPose {
		rec.fallbackAge++
		if h.settings.MaxFallbackAge > 0 && rec.fallbackAge > h.settings.MaxFallbackAge {
			// The face has been gone too long to keep trusting a stale pose
			return 0, 0, false, 0
		}
		return rec.lastYaw, rec.lastPitch, true, rec.window.mean()
	}

	return 0, 0, false, 0
}

// instantConfidence measures how close to center a head pose is.
// 1.0 when facing dead center, falling to 0 at 90 degrees. Yaw is weighted
// more heavily than pitch, because horizontal turning is the stronger signal
// of lost attention.
func instantConfidence(yaw, pitch float32) float32 {
	yawConf := gen.Clamp(1-math32.Abs(yaw)/90, 0, 1)
	pitchConf := gen.Clamp(1-math32.Abs(pitch)/90, 0, 1)
	return yawConf*0.6 + pitchConf*0.4
}

// remove deletes all state for the given track ids. Called with the tracker's
// removed ids after every frame, which is what keeps memory bounded by the
// number of live tracks.
func (h *poseHistory) remove(trackIDs []int64) {
	for _, id := range trackIDs {
		delete(h.records, id)
	}
}

func (h *poseHistory) size() int {
	return len(h.records)
}

func (h *poseHistory) reset() {
	h.records = map[int64]*poseRecord{}
}
