package monitor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyclopcam/gaze/pkg/nn"
	"github.com/cyclopcam/gaze/pkg/perfstats"
	"github.com/cyclopcam/gaze/server/attention"
	"github.com/cyclopcam/logs"
)

// Monitor runs attention analysis for any number of cameras.
//
// Each camera gets its own attention.Session, so there is no cross-talk
// between cameras. A single analyzer goroutine consumes the frame queue,
// which guarantees that each camera's frames are processed in arrival order.
//
// Frame ingestion is push based. Whoever runs the NN models calls InjectFrame
// with each frame's detections and poses. That caller is either an embedder
// linking this package into its own process, or an external detector posting
// frames to our HTTP API. We never pull video ourselves.

// SYNC-ANALYZER-QUEUE-SIZE
const analyzerQueueSize = 100

// Cameras that haven't sent a frame for this long get their session discarded
const cameraForgetTime = time.Hour

// A frame's worth of upstream NN output, waiting for analysis
type analyzerQueueItem struct {
	cameraID    int64
	framePTS    time.Time
	frameWidth  int
	frameHeight int
	detections  []nn.Detection
	poses       []nn.FacePose
}

// Per-camera analysis output for one frame
type AnalysisState struct {
	CameraID    int64              `json:"cameraID"`
	FramePTS    time.Time          `json:"framePTS"`
	FrameWidth  int                `json:"frameWidth"`
	FrameHeight int                `json:"frameHeight"`
	Results     []attention.Result `json:"results"`
	Counts      attention.Counts   `json:"counts"`
}

// Internal state of the analyzer for a single camera
type monitorCamera struct {
	cameraID int64
	session  *attention.Session
	lastSeen time.Time

	lock      sync.Mutex // Guards lastState
	lastState *AnalysisState
}

type Monitor struct {
	Log      logs.Log
	settings attention.Settings

	queue           chan analyzerQueueItem
	analyzerStopped chan bool

	camerasLock sync.RWMutex
	cameras     map[int64]*monitorCamera

	watchersLock       sync.RWMutex
	watchers           map[int64][]chan *AnalysisState
	watchersAllCameras []chan *AnalysisState

	lastDropMsg atomic.Int64 // Unix nanoseconds of the last dropped-frames warning

	perfLock  sync.Mutex
	framePerf perfstats.TimeAccumulator
}

func NewMonitor(logger logs.Log, settings attention.Settings) (*Monitor, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid attention settings: %w", err)
	}
	m := &Monitor{
		Log:             logger,
		settings:        settings,
		queue:           make(chan analyzerQueueItem, analyzerQueueSize),
		analyzerStopped: make(chan bool),
		cameras:         map[int64]*monitorCamera{},
		watchers:        map[int64][]chan *AnalysisState{},
	}
	go m.analyzer()
	return m, nil
}

func (m *Monitor) Close() {
	m.Log.Infof("Monitor shutting down")
	close(m.queue)
	<-m.analyzerStopped
	m.Log.Infof("Monitor is closed")
}

// InjectFrame queues one frame's detections and poses for analysis.
// poses[i] belongs to detections[i] (the pose estimator's ordering contract).
// If the analyzer is falling behind, the frame is dropped. Dropping is the
// right call here: the tracker tolerates a skipped frame, but a stalled
// ingestion pipeline stalls every camera.
func (m *Monitor) InjectFrame(cameraID int64, framePTS time.Time, frameWidth, frameHeight int, detections []nn.Detection, poses []nn.FacePose) {
	item := analyzerQueueItem{
		cameraID:    cameraID,
		framePTS:    framePTS,
		frameWidth:  frameWidth,
		frameHeight: frameHeight,
		detections:  detections,
		poses:       poses,
	}
	// SYNC-ANALYZER-QUEUE-SIZE
	if len(m.queue) >= cap(m.queue)*9/10 {
		// InjectFrame is called from any number of goroutines, so the
		// rate limit on this warning is a compare-and-swap
		now := time.Now().UnixNano()
		last := m.lastDropMsg.Load()
		if now-last > int64(15*time.Second) && m.lastDropMsg.CompareAndSwap(last, now) {
			m.Log.Warnf("Analyzer is falling behind. I am going to drop frames (camera %v)", cameraID)
		}
		return
	}
	m.queue <- item
}

func (m *Monitor) analyzer() {
	for {
		item, ok := <-m.queue
		if !ok {
			break
		}
		cam := m.cameraState(item.cameraID)
		if cam == nil {
			continue
		}

		start := time.Now()
		analysis := cam.session.ProcessFrame(item.detections, item.poses, item.frameWidth, item.frameHeight, item.framePTS)
		elapsed := time.Now().Sub(start)

		m.perfLock.Lock()
		m.framePerf.AddSample(elapsed)
		m.perfLock.Unlock()

		state := &AnalysisState{
			CameraID:    item.cameraID,
			FramePTS:    item.framePTS,
			FrameWidth:  item.frameWidth,
			FrameHeight: item.frameHeight,
			Results:     analysis.Results,
			Counts:      analysis.Counts,
		}
		cam.lock.Lock()
		cam.lastState = state
		cam.lock.Unlock()
		cam.lastSeen = time.Now()

		m.sendToWatchers(state)
		m.forgetIdleCameras()
	}
	close(m.analyzerStopped)
}

// cameraState returns the state for the camera, creating it on first sight
func (m *Monitor) cameraState(cameraID int64) *monitorCamera {
	m.camerasLock.RLock()
	cam := m.cameras[cameraID]
	m.camerasLock.RUnlock()
	if cam != nil {
		return cam
	}

	session, err := attention.NewSession(logs.NewPrefixLogger(m.Log, fmt.Sprintf("Camera %v", cameraID)), m.settings)
	if err != nil {
		// Can't happen: settings were validated in NewMonitor
		m.Log.Errorf("Failed to create attention session for camera %v: %v", cameraID, err)
		return nil
	}
	cam = &monitorCamera{
		cameraID: cameraID,
		session:  session,
		lastSeen: time.Now(),
	}
	m.camerasLock.Lock()
	m.cameras[cameraID] = cam
	m.camerasLock.Unlock()
	m.Log.Infof("Monitor: new camera %v", cameraID)
	return cam
}

// Delete cameras that we haven't seen in a while
func (m *Monitor) forgetIdleCameras() {
	m.camerasLock.Lock()
	defer m.camerasLock.Unlock()
	for cameraID, cam := range m.cameras {
		if time.Now().Sub(cam.lastSeen) > cameraForgetTime {
			m.Log.Infof("Monitor: forgetting idle camera %v", cameraID)
			delete(m.cameras, cameraID)
		}
	}
}

// LatestState returns the most recent analysis for the camera, or nil if the
// camera has never produced a frame
func (m *Monitor) LatestState(cameraID int64) *AnalysisState {
	m.camerasLock.RLock()
	cam := m.cameras[cameraID]
	m.camerasLock.RUnlock()
	if cam == nil {
		return nil
	}
	cam.lock.Lock()
	defer cam.lock.Unlock()
	return cam.lastState
}

// ResetCamera clears the camera's tracking and pose state, as if the stream
// had just started. Returns false if the camera is unknown.
func (m *Monitor) ResetCamera(cameraID int64) bool {
	m.camerasLock.RLock()
	cam := m.cameras[cameraID]
	m.camerasLock.RUnlock()
	if cam == nil {
		return false
	}
	cam.session.Reset()
	cam.lock.Lock()
	cam.lastState = nil
	cam.lock.Unlock()
	return true
}

// CameraIDs returns the ids of all cameras seen recently
func (m *Monitor) CameraIDs() []int64 {
	m.camerasLock.RLock()
	defer m.camerasLock.RUnlock()
	ids := make([]int64, 0, len(m.cameras))
	for id := range m.cameras {
		ids = append(ids, id)
	}
	return ids
}

// AverageFrameTime returns the average time spent analyzing one frame
func (m *Monitor) AverageFrameTime() time.Duration {
	m.perfLock.Lock()
	defer m.perfLock.Unlock()
	return m.framePerf.Average()
}
