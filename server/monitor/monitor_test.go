package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/cyclopcam/gaze/pkg/nn"
	"github.com/cyclopcam/gaze/server/attention"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func waitForState(t *testing.T, ch chan *AnalysisState) *AnalysisState {
	t.Helper()
	select {
	case state := <-ch:
		return state
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for analysis state")
		return nil
	}
}

// Two cameras are fully independent sessions: each camera's first person
// gets id 1, and resetting one camera leaves the other untouched
func TestMonitorIndependentCameras(t *testing.T) {
	m, err := NewMonitor(logs.NewTestingLog(t), attention.DefaultSettings())
	require.NoError(t, err)
	defer m.Close()

	ch := m.AddWatcherAllCameras()
	defer m.RemoveWatcherAllCameras(ch)

	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	detections := []nn.Detection{{Box: nn.MakeRect(100, 100, 80, 160), Confidence: 0.9}}
	poses := []nn.FacePose{{Yaw: 0, Pitch: 0, FaceDetected: true}}

	m.InjectFrame(1, baseTime, 640, 480, detections, poses)
	m.InjectFrame(2, baseTime, 640, 480, detections, poses)

	seen := map[int64]*AnalysisState{}
	for len(seen) < 2 {
		state := waitForState(t, ch)
		seen[state.CameraID] = state
	}
	for _, cameraID := range []int64{1, 2} {
		state := seen[cameraID]
		require.Len(t, state.Results, 1)
		require.Equal(t, int64(1), state.Results[0].ID)
		require.Equal(t, attention.LabelAttentive, state.Results[0].Label)
	}

	require.NotNil(t, m.LatestState(1))
	require.NotNil(t, m.LatestState(2))
	require.ElementsMatch(t, []int64{1, 2}, m.CameraIDs())

	require.True(t, m.ResetCamera(1))
	require.Nil(t, m.LatestState(1))
	require.NotNil(t, m.LatestState(2))
	require.False(t, m.ResetCamera(99))
}

// A per-camera watcher only sees its own camera
func TestMonitorCameraWatcher(t *testing.T) {
	m, err := NewMonitor(logs.NewTestingLog(t), attention.DefaultSettings())
	require.NoError(t, err)
	defer m.Close()

	ch := m.AddWatcher(7)
	defer m.RemoveWatcher(7, ch)

	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	detections := []nn.Detection{{Box: nn.MakeRect(100, 100, 80, 160), Confidence: 0.9}}
	poses := []nn.FacePose{{Yaw: 0, Pitch: 0, FaceDetected: true}}

	m.InjectFrame(3, baseTime, 640, 480, detections, poses)
	m.InjectFrame(7, baseTime, 640, 480, detections, poses)

	state := waitForState(t, ch)
	require.Equal(t, int64(7), state.CameraID)
	require.Empty(t, ch)
}

// Many cameras can hit the drop path at the same time. Run this under the
// race detector: the drop warning's rate limit must be safe for concurrent
// callers. No analyzer is running here, so the queue stays full and every
// call takes the drop path.
func TestMonitorConcurrentDrops(t *testing.T) {
	m := &Monitor{
		Log:      logs.NewTestingLog(t),
		settings: attention.DefaultSettings(),
		queue:    make(chan analyzerQueueItem, analyzerQueueSize),
		cameras:  map[int64]*monitorCamera{},
		watchers: map[int64][]chan *AnalysisState{},
	}
	for len(m.queue) < cap(m.queue) {
		m.queue <- analyzerQueueItem{}
	}

	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	wg := sync.WaitGroup{}
	for cameraID := int64(1); cameraID <= 8; cameraID++ {
		wg.Add(1)
		go func(cameraID int64) {
			defer wg.Done()
			for frame := 0; frame < 100; frame++ {
				m.InjectFrame(cameraID, baseTime, 640, 480, nil, nil)
			}
		}(cameraID)
	}
	wg.Wait()
	require.Equal(t, cap(m.queue), len(m.queue))
}

func TestMonitorRejectsBadSettings(t *testing.T) {
	settings := attention.DefaultSettings()
	settings.IOUThreshold = -1
	_, err := NewMonitor(logs.NewTestingLog(t), settings)
	require.Error(t, err)
}
