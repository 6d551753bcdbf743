package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/cyclopcam/gaze/server/attstats"
	"github.com/cyclopcam/gaze/server/config"
	"github.com/cyclopcam/gaze/server/monitor"
	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
)

type Server struct {
	Log     logs.Log
	Config  *config.Config
	Monitor *monitor.Monitor
	Stats   *attstats.AttStats

	// Closed once Shutdown has finished. main waits on this, because Shutdown
	// runs on the signal goroutine, and ListenHTTP returns as soon as the HTTP
	// listener closes, which is the first step of shutdown, not the last.
	ShutdownComplete chan error

	wsUpgrader websocket.Upgrader
	httpServer *http.Server

	// Cameras with an active stats recording
	recordingsLock sync.Mutex
	recordings     map[int64]int64 // camera -> recording id

	recorderFrames  chan *monitor.AnalysisState
	recorderStopped chan bool
}

func NewServer(logger logs.Log, cfg *config.Config) (*Server, error) {
	mon, err := monitor.NewMonitor(logger, cfg.AttentionSettings())
	if err != nil {
		return nil, err
	}
	stats, err := attstats.Open(logger, cfg.StatsDB)
	if err != nil {
		mon.Close()
		return nil, err
	}
	s := &Server{
		Log:              logger,
		Config:           cfg,
		Monitor:          mon,
		Stats:            stats,
		ShutdownComplete: make(chan error),
		recordings:       map[int64]int64{},
		recorderFrames:   mon.AddWatcherAllCameras(),
		recorderStopped:  make(chan bool),
	}
	go s.recorder()
	return s, nil
}

// ListenHTTP blocks until the HTTP server shuts down
func (s *Server) ListenHTTP() error {
	router := s.setupHttpRoutes()
	addr := fmt.Sprintf(":%v", s.Config.HTTPPort)
	s.Log.Infof("Listening on %v", addr)
	s.httpServer = &http.Server{Addr: addr, Handler: router}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown() {
	s.Log.Infof("Server shutting down")
	if s.httpServer != nil {
		s.httpServer.Close()
	}
	s.Monitor.RemoveWatcherAllCameras(s.recorderFrames)
	close(s.recorderFrames)
	<-s.recorderStopped

	// Stop active recordings cleanly, so they get summaries
	s.recordingsLock.Lock()
	active := map[int64]int64{}
	for camera, recordingID := range s.recordings {
		active[camera] = recordingID
	}
	s.recordings = map[int64]int64{}
	s.recordingsLock.Unlock()
	for _, recordingID := range active {
		if _, err := s.Stats.StopRecording(recordingID); err != nil {
			s.Log.Errorf("Failed to stop recording %v during shutdown: %v", recordingID, err)
		}
	}

	s.Monitor.Close()
	s.Stats.Close()
	s.Log.Infof("Server is closed")
	close(s.ShutdownComplete)
}

// recorder feeds analyzed frames into the stats DB, for cameras that have an
// active recording
func (s *Server) recorder() {
	for state := range s.recorderFrames {
		s.recordingsLock.Lock()
		recordingID, ok := s.recordings[state.CameraID]
		s.recordingsLock.Unlock()
		if !ok {
			continue
		}
		if err := s.Stats.RecordFrame(recordingID, state.FramePTS, state.Counts); err != nil {
			s.Log.Errorf("Failed to record frame for recording %v: %v", recordingID, err)
		}
	}
	close(s.recorderStopped)
}
