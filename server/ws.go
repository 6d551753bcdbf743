package server

import (
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

// httpCameraWS streams per-frame analysis for one camera over a websocket.
// Each message is one JSON-encoded AnalysisState. If the client falls behind,
// the monitor drops frames for it, so a slow client only hurts itself.
func (s *Server) httpCameraWS(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cameraID := www.ParseID(params.ByName("cameraID"))

	c, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Errorf("httpCameraWS websocket upgrade failed: %v", err)
		return
	}
	defer c.Close()

	s.Log.Infof("httpCameraWS starting (camera %v)", cameraID)

	frames := s.Monitor.AddWatcher(cameraID)
	defer s.Monitor.RemoveWatcher(cameraID, frames)

	// The only thing we expect from the client is a close. Reads also service
	// control frames, so we keep a read pump running.
	closed := make(chan bool)
	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				close(closed)
				return
			}
		}
	}()

	// Send the last known state immediately, so the client doesn't wait for
	// the next frame before it can draw something
	if state := s.Monitor.LatestState(cameraID); state != nil {
		if err := c.WriteJSON(state); err != nil {
			s.Log.Infof("httpCameraWS closing (camera %v): %v", cameraID, err)
			return
		}
	}

	for {
		select {
		case state := <-frames:
			if err := c.WriteJSON(state); err != nil {
				s.Log.Infof("httpCameraWS closing (camera %v): %v", cameraID, err)
				return
			}
		case <-closed:
			s.Log.Infof("httpCameraWS client disconnected (camera %v)", cameraID)
			return
		}
	}
}
