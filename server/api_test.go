package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cyclopcam/gaze/pkg/nn"
	"github.com/cyclopcam/gaze/server/attention"
	"github.com/cyclopcam/gaze/server/config"
	"github.com/cyclopcam/gaze/server/monitor"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) (*Server, *httptest.Server) {
	dbFile := "test_server_api.sqlite"
	removeDB(dbFile)()

	cfg := config.Default()
	cfg.StatsDB = dbFile
	s, err := NewServer(logs.NewTestingLog(t), cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(s.setupHttpRoutes())
	t.Cleanup(func() {
		ts.Close()
		s.Shutdown()
		removeDB(dbFile)()
	})
	return s, ts
}

// POST a frame of NN output over the API, then read the analysis back as JSON
// and as a rendered debug image
func TestFrameIngestAndDebugImage(t *testing.T) {
	_, ts := setupTestServer(t)

	frame := injectFrameJSON{
		FramePTS:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		FrameWidth:  640,
		FrameHeight: 480,
		Detections:  []nn.Detection{{Box: nn.MakeRect(100, 100, 80, 160), Confidence: 0.9}},
		Poses:       []nn.FacePose{{Yaw: 0, Pitch: 0, FaceDetected: true}},
	}
	body, err := json.Marshal(&frame)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/camera/5/frame", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	resp.Body.Close()

	// Analysis is asynchronous, so poll for the latest state
	var latest *monitor.AnalysisState
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && latest == nil {
		resp, err := http.Get(ts.URL + "/api/camera/5/latest")
		require.NoError(t, err)
		if resp.StatusCode == 200 {
			latest = &monitor.AnalysisState{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(latest))
		} else {
			time.Sleep(10 * time.Millisecond)
		}
		resp.Body.Close()
	}
	require.NotNil(t, latest)
	require.Len(t, latest.Results, 1)
	require.Equal(t, int64(1), latest.Results[0].ID)
	require.Equal(t, attention.LabelAttentive, latest.Results[0].Label)
	require.Equal(t, 640, latest.FrameWidth)
	require.Equal(t, 480, latest.FrameHeight)

	resp, err = http.Get(ts.URL + "/api/camera/5/debug.png")
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 640, 480), img.Bounds())

	// A camera that has never produced a frame has nothing to render
	resp, err = http.Get(ts.URL + "/api/camera/99/debug.png")
	require.NoError(t, err)
	require.Equal(t, 404, resp.StatusCode)
	resp.Body.Close()
}
